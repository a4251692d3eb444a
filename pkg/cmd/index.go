package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ksysoev/fedsearch/pkg/index"
)

// newIndexCmd builds the "index" subcommand, which ingests every configured
// source into the local search index, optionally rebuilding it from scratch.
func newIndexCmd(flags *cmdFlags) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest configured sources into the local search index",
		Long:  "Scan every configured source and apply additions, updates and removals to the local search index.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexCommand(flags, rebuild)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "discard the existing index and reindex every source from scratch")

	return cmd
}

func runIndexCommand(flags *cmdFlags, rebuild bool) error {
	if err := initLogger(flags); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stats, err := index.Run(index.Config{
		IndexDir:          cfg.Index.Dir,
		Sources:           cfg.Sources,
		MaxIndexedChars:   cfg.Limits.MaxIndexedChars,
		WriterMemoryBytes: cfg.Index.WriterMemoryBytes,
	}, rebuild)
	if err != nil {
		return fmt.Errorf("failed to run indexer: %w", err)
	}

	fmt.Printf( //nolint:forbidigo // CLI output is intentional
		"scanned=%d indexed=%d skipped=%d removed=%d\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Removed,
	)

	return nil
}
