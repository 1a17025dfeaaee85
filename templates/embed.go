package templates

import "embed"

// EmailFS contains the HTML email bodies rendered with html/template.
//
//go:embed email/*.html
var EmailFS embed.FS
