// Package templates embeds the HTML views rendered by the web handlers.
package templates

import "embed"

// FS holds every view and layout. Names are relative to this directory
// without the .html extension, e.g. "index" or "layouts/main".
//
//go:embed *.html layouts/*.html
var FS embed.FS
