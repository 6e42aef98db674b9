// Package assets bundles the script-side resource cache implementations.
package assets

import "embed"

// FS holds Scripts/ResourceCache.{js,lua,gos}; .gos files are Go source
// interpreted by yaegi.
//
//go:embed Scripts
var FS embed.FS
