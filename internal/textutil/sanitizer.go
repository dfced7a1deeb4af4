package textutil

import (
	htmlutil "html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// blockTags are rendered as a paragraph break when stripped; list items
// also get a leading bullet so enumerations survive as plain text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
var multiBlank = regexp.MustCompile(`\n{3,}`)
var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// smartPunctuation folds curly quotes/dashes down to their ASCII form so
// downstream keyword matching doesn't miss on typographic variants.
var smartPunctuation = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
	"–", "-", "—", "-",
	"…", "...",
	" ", " ",
)

// SanitizeHTML turns raw HTML job-description markup into clean text:
// entities decoded, tags stripped while preserving paragraph and list
// structure, Unicode normalised (NFC), smart punctuation folded, control
// characters removed (spec §4.2, §6). Re-sanitising an already-sanitised
// string is the identity (spec §8 round-trip property), since none of the
// transformations below are triggered by the plain text they produce.
func SanitizeHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return SanitizeText(htmlutil.UnescapeString(raw))
	}

	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		walkNode(n, &b)
	}

	return SanitizeText(b.String())
}

func walkNode(n *html.Node, b *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if tag == "script" || tag == "style" {
			return
		}
		if tag == "li" {
			b.WriteString("\n- ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkNode(c, b)
		}
		if blockTags[tag] {
			b.WriteString("\n")
		}
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkNode(c, b)
		}
	}
}

// SanitizeText applies the non-HTML parts of sanitisation to already-plain
// text: entity decode, Unicode normalisation, smart punctuation folding,
// control-character and whitespace collapsing.
func SanitizeText(s string) string {
	s = htmlutil.UnescapeString(s)
	s = norm.NFC.String(s)
	s = smartPunctuation.Replace(s)
	s = controlChars.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	return strings.TrimSpace(s)
}
