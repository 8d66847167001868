package content

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultExcerptLength is the preview length used when callers pass none.
const DefaultExcerptLength = 150

const ellipsis = "..."

// Stripper turns HTML into plain text with whitespace collapsed to single spaces.
type Stripper func(markup string) string

// blockElements break words apart: their boundaries become whitespace.
var blockElements = map[atom.Atom]struct{}{
	atom.P: {}, atom.Div: {}, atom.Br: {}, atom.Hr: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Ul: {}, atom.Ol: {}, atom.Li: {}, atom.Dl: {}, atom.Dt: {}, atom.Dd: {},
	atom.Blockquote: {}, atom.Pre: {}, atom.Figure: {}, atom.Figcaption: {},
	atom.Table: {}, atom.Tr: {}, atom.Td: {}, atom.Th: {},
	atom.Section: {}, atom.Article: {}, atom.Header: {}, atom.Footer: {}, atom.Aside: {}, atom.Nav: {},
}

// skippedElements never contribute text.
var skippedElements = map[atom.Atom]struct{}{
	atom.Script: {}, atom.Style: {}, atom.Noscript: {}, atom.Template: {},
}

var (
	blockTagPattern = regexp.MustCompile(`(?i)</?(?:p|div|br|hr|h[1-6]|ul|ol|li|dl|dt|dd|blockquote|pre|figure|figcaption|table|tr|td|th|section|article|header|footer|aside|nav)\b[^>]*>`)
	strictPolicy    = bluemonday.StrictPolicy()
)

// ExtractExcerpt derives a plain-text preview of at most maxLength runes
// (plus a trailing ellipsis when truncated) using the tokenizer stripper.
func ExtractExcerpt(markup string, maxLength int) string {
	return ExtractExcerptWith(StripHTML, markup, maxLength)
}

// ExtractExcerptWith is ExtractExcerpt with an explicit strip strategy.
func ExtractExcerptWith(strip Stripper, markup string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	return truncateAtWord(strip(markup), maxLength)
}

// StripHTML walks the markup with an HTML tokenizer, keeping decoded text
// and turning block element boundaries into spaces.
func StripHTML(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if _, skip := skippedElements[a]; skip {
				switch {
				case tt == html.StartTagToken:
					skipDepth++
				case tt == html.EndTagToken && skipDepth > 0:
					skipDepth--
				}
				continue
			}
			if _, block := blockElements[a]; block {
				b.WriteByte(' ')
			}
		}
	}
}

// StripHTMLWithPolicy strips markup with bluemonday's strict policy after
// padding block tags with spaces.
func StripHTMLWithPolicy(markup string) string {
	spaced := blockTagPattern.ReplaceAllStringFunc(markup, func(tag string) string {
		return " " + tag + " "
	})
	text := strictPolicy.Sanitize(spaced)
	return collapseWhitespace(stdhtml.UnescapeString(text))
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateAtWord cuts at the last space at rune index <= maxLength, or at
// maxLength exactly when the leading run has no space.
func truncateAtWord(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	cut := maxLength
	for i := maxLength; i > 0; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}

	return strings.TrimRight(string(runes[:cut]), " ") + ellipsis
}
