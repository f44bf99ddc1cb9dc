// Package normalize turns raw, possibly HTML, email content into plain text
// and decides whether an extracted value is usable at all.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxValueLength is the longest extracted value that is not garbage.
const MaxValueLength = 150

// PreviewLength is the number of plain-text characters of the body that
// the classifier and generic extractors look at.
const PreviewLength = 800

// cleanCutset is trimmed from both ends of an extracted value.
const cleanCutset = " .-,;:\"'/[]"

var (
	cssBlockRe    = regexp.MustCompile(`\{[^}]*\}`)
	cssSelectorRe = regexp.MustCompile(`[.#][a-zA-Z_][\w-]*\s*\{`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	controlRe     = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	garbageRe     = regexp.MustCompile(`(?i)[{};]|color\s*:|font-|background|margin|padding|display\s*:`)
)

// blockElements start a new line when rendered as text.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "footer": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// StripMarkup returns the plain text of an email body on a single line.
// Style, script and noscript blocks are dropped with their content, entities
// are unescaped, CSS fragments, URLs and control characters are removed,
// and all whitespace runs collapse to one space.
func StripMarkup(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(scrub(text)), " ")
}

// StripMarkupLines is StripMarkup that keeps line structure: block elements
// and newlines end a line, whitespace inside a line collapses, and blank
// lines are dropped. Non-empty output always ends with a newline so that
// label patterns such as "Position: X\n" match on the last line.
func StripMarkupLines(text string) string {
	if text == "" {
		return ""
	}
	scrubbed := strings.ReplaceAll(scrub(text), "\r\n", "\n")
	scrubbed = strings.ReplaceAll(scrubbed, "\r", "\n")

	var sb strings.Builder
	for _, line := range strings.Split(scrubbed, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		sb.WriteString(strings.Join(fields, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Preview returns the first PreviewLength characters of the plain-text body.
func Preview(body string) string {
	return Truncate(StripMarkup(body), PreviewLength)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// scrub removes markup and residue but leaves whitespace untouched.
func scrub(text string) string {
	if strings.ContainsAny(text, "<&") {
		text = renderText(text)
	}
	text = cssBlockRe.ReplaceAllString(text, " ")
	text = cssSelectorRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	return controlRe.ReplaceAllString(text, "")
}

// renderText parses text as HTML and returns its visible text content.
func renderText(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return html.UnescapeString(text)
	}
	doc.Find("style, script, noscript").Remove()

	var sb strings.Builder
	for _, n := range doc.Nodes {
		writeText(&sb, n)
	}
	return sb.String()
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		sb.WriteByte(' ')
		return
	case html.ElementNode:
		if blockElements[n.Data] {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if n.Type == html.ElementNode {
		if blockElements[n.Data] {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
	}
}

// IsGarbage reports whether a candidate value looks like markup or CSS
// residue rather than real data.
func IsGarbage(text string) bool {
	if text == "" {
		return true
	}
	n := utf8.RuneCountInString(text)
	if n > MaxValueLength {
		return true
	}
	if garbageRe.MatchString(text) {
		return true
	}

	dense := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			dense++
		}
	}
	if n > 5 && float64(dense)/float64(n) < 0.6 {
		return true
	}

	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '/' {
			return -1
		}
		return r
	}, text)
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Clean normalises a single extracted value. It strips markup and edge
// punctuation, drops unbalanced outer parentheses, and returns "" when the
// result is garbage.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = StripMarkup(text)
	text = strings.Trim(text, cleanCutset)
	for strings.HasPrefix(text, "(") && !strings.Contains(text, ")") {
		text = strings.TrimSpace(text[1:])
	}
	for strings.HasSuffix(text, ")") && !strings.Contains(text, "(") {
		text = strings.TrimSpace(text[:len(text)-1])
	}
	if IsGarbage(text) {
		return ""
	}
	return Truncate(text, MaxValueLength)
}
