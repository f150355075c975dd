package sanitize

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"",
	"plain text",
	`<h1 class="heading1" data-style-name="heading 1">Title</h1><p>Body</p>`,
	`<script>alert(1)</script><p>after</p>`,
	`<p onclick="steal()">click</p>`,
	`<a href="javascript:alert(1)">bad link</a>`,
	`<a href="https://example.com/a?b=c&d=e">good link</a>`,
	`<img src="data:image/png;base64,iVBORw0KGgo=">`,
	`<iframe src="https://evil.example"></iframe><section><p>kept</p></section>`,
	`<style>.normal { color: red; } p > span { margin: 0 }</style><p class="normal">styled</p>`,
	`<table class="docx-table"><tr class="docx-tr"><td class="docx-td">cell</td></tr></table>`,
	`<p>quotes ' " &amp; &lt;tag&gt;</p>`,
	`<ul><li>A<ul><li>nested</li></ul></li></ul>`,
	`<span style="color: #FF0000; font-size: 14pt">red</span>`,
	`<p><unknown>text</unknown><font color="red">font</font></p>`,
	`<div id="x" title="t" data-other="y">attrs</div>`,
}

func TestSanitize_Idempotent(t *testing.T) {
	s := New()
	for _, input := range corpus {
		once := s.Sanitize(input)
		assert.Equal(t, once, s.Sanitize(once), input)
	}
}

func TestSanitize_OnlyAllowedTags(t *testing.T) {
	allowed := map[string]bool{"style": true}
	for _, tag := range AllowedTags {
		allowed[tag] = true
	}

	s := New()
	for _, input := range corpus {
		out := s.Sanitize(input)
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + out + "</body>"))
		require.NoError(t, err)
		doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
			name := goquery.NodeName(sel)
			assert.True(t, allowed[name], "tag %q survived in %q", name, out)
		})
	}
}

func TestSanitize_StripsUnsafe(t *testing.T) {
	s := New()

	out := s.Sanitize(`<script>alert(1)</script><p onclick="steal()">click</p>`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "<p>click</p>")

	out = s.Sanitize(`<a href="javascript:alert(1)">bad link</a>`)
	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, "bad link")
}

func TestSanitize_KeepsAllowed(t *testing.T) {
	s := New()

	in := `<h1 class="heading1 docx-style-heading-1" data-style-name="heading 1" id="t">Title</h1>`
	assert.Equal(t, in, s.Sanitize(in))

	out := s.Sanitize(`<span style="color: #FF0000">red</span>`)
	assert.Contains(t, out, `style="color: #FF0000"`)

	out = s.Sanitize(`<img src="data:image/png;base64,iVBORw0KGgo=">`)
	assert.Contains(t, out, `src="data:image/png;base64,iVBORw0KGgo="`)

	out = s.Sanitize(`<style>.normal { color: red; }</style>`)
	assert.Equal(t, `<style>.normal { color: red; }</style>`, out)
}

func TestSanitize_UnwrapsUnknownTags(t *testing.T) {
	out := New().Sanitize(`<section><article>inner text</article></section>`)
	assert.Equal(t, "inner text", out)
}
