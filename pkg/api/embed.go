package api

import _ "embed"

//go:embed static/fedsearch.js
var embedJS []byte
