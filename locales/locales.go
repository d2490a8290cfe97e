// Package locales embeds the translation files loaded by utils.InitI18n
package locales

import "embed"

// FS holds active.<lang>.toml for every supported language
//
//go:embed active.*.toml
var FS embed.FS

// Languages lists the tags with a translation file, default first
var Languages = []string{"en", "ja"}
