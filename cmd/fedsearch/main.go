package main

import (
	"fmt"
	"os"

	"github.com/ksysoev/fedsearch/pkg/cmd"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := cmd.InitCommand(cmd.BuildInfo{
		AppName: "fedsearch",
		Version: version,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
