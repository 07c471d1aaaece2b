// ABOUTME: Embeds HTML templates into the binary using go:embed
// ABOUTME: Provides templateFS for loading templates at startup

package webui

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
