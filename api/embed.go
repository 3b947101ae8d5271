// Package api holds the OpenAPI description served by the server.
package api

import "embed"

// Docs contains openapi.yaml.
//
//go:embed openapi.yaml
var Docs embed.FS
