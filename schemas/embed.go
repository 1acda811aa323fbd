// Package schemas holds the JSON Schemas for the wire protocol. Request
// schemas (<op>.schema.json) are generated by cmd/schemagen; the envelope
// schemas (hello, welcome, op, result) are maintained by hand.
package schemas

import "embed"

//go:embed *.schema.json
var FS embed.FS
