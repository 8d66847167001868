package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Content formats accepted on create and update.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
	)
	// raw HTML 交给 sanitizer 过滤
	markdownSanitizer = newContentSanitizer()
)

// NormalizeFormat maps user input onto a known format. Unknown values
// return false.
func NormalizeFormat(format string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatHTML:
		return FormatHTML, true
	case FormatMarkdown, "md":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// RenderMarkdown converts markdown into sanitised HTML.
func RenderMarkdown(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(expandVideoEmbeds(source)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return markdownSanitizer.Sanitize(buf.String()), nil
}
