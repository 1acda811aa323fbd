// Package configs carries the default tuning and catalogs so binaries and
// tests work without a -configs directory.
package configs

import "embed"

//go:embed tuning.yaml *.json events/*.json
var FS embed.FS
