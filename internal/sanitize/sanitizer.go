// Package sanitize restricts HTML to the tags and attributes the editor,
// the markdown bridge and the DOCX packager understand.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

// AllowedTags lists every element that survives sanitization, besides <style>.
var AllowedTags = []string{
	"b", "i", "u", "s", "em", "strong", "a",
	"p", "br", "ul", "ol", "li",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"div", "span",
	"table", "thead", "tbody", "tr", "th", "td",
	"img",
}

// AllowedAttrs lists every attribute that survives sanitization.
var AllowedAttrs = []string{"href", "src", "style", "class", "id", "data-style-name"}

// Sanitizer strips anything outside the allow-list. Unsafe content is
// removed silently; text inside removed tags is kept.
//
// Thread-safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds the allow-list policy.
func New() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(AllowedTags...)
	p.AllowAttrs(AllowedAttrs...).Globally()

	// extracted style sheets travel inline with the content
	p.AllowUnsafe(true)
	p.AllowElements("style")
	p.AllowNoAttrs().OnElements("style", "span", "div")

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowDataURIImages()

	return &Sanitizer{policy: p}
}

// Sanitize never fails.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
