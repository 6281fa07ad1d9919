package helpers

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy

	structurePolicyOnce sync.Once
	structurePolicy     *bluemonday.Policy
)

// StructureTags is the allow-list kept by structure-preserving extraction.
var StructureTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "ul", "ol", "li",
	"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption",
	"strong", "b", "em", "i", "a", "br", "div", "span",
}

// StrictHTMLPolicy strips every element and attribute.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// StructurePolicy keeps the StructureTags elements with no attributes except
// href on anchors. Everything else is unwrapped and its text kept.
func StructurePolicy() *bluemonday.Policy {
	structurePolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(StructureTags...)
		p.AllowAttrs("href").OnElements("a")
		p.AllowURLSchemes("http", "https", "mailto")
		p.AllowRelativeURLs(true)
		p.RequireParseableURLs(true)
		structurePolicy = p
	})
	return structurePolicy
}

// SanitizeHTMLStrict removes every HTML tag from s and trims the result.
func SanitizeHTMLStrict(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(StrictHTMLPolicy().Sanitize(s))
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	spaceAroundNL   = regexp.MustCompile(` *\n *`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// SanitizeStructured applies StructurePolicy to s and collapses redundant
// whitespace and blank lines.
func SanitizeStructured(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return CollapseWhitespace(StructurePolicy().Sanitize(s))
}

// CollapseWhitespace squeezes runs of spaces and keeps at most one blank line
// between paragraphs.
func CollapseWhitespace(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundNL.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
