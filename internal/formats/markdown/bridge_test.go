package markdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_EmptyInput(t *testing.T) {
	b := NewBridge()

	_, err := b.HTMLToMarkdown("")
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, DirectionToMarkdown, convErr.Direction)

	_, err = b.MarkdownToHTML("")
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, DirectionToHTML, convErr.Direction)
}

func TestBridge_WhitespaceInput(t *testing.T) {
	b := NewBridge()

	md, err := b.HTMLToMarkdown("   \n  ")
	require.NoError(t, err)
	assert.Equal(t, "", md)

	out, err := b.MarkdownToHTML(" \n\t")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestBridge_DropsDataImages(t *testing.T) {
	inputs := []string{
		`<p>before<img src="data:image/png;base64,iVBORw0KGgo=">after</p>`,
		`<p><img src="DATA:image/jpeg;base64,/9j/4AAQ" alt="photo"></p><p>text</p>`,
		`<h1>t</h1><img src="data:image/gif;base64,R0lGODlh">`,
	}
	for _, withFormat := range []bool{false, true} {
		var opts []Option
		if withFormat {
			opts = append(opts, WithFormatting())
		}
		b := NewBridge(opts...)
		for _, in := range inputs {
			md, err := b.HTMLToMarkdown(in)
			require.NoError(t, err)
			assert.NotContains(t, strings.ToLower(md), "data:image", in)
		}
	}
}

func TestBridge_KeepsRemoteImages(t *testing.T) {
	md, err := NewBridge().HTMLToMarkdown(`<p><img src="https://example.com/a.png" alt="a"></p>`)
	require.NoError(t, err)
	assert.Contains(t, md, "https://example.com/a.png")
}

func TestBridge_RoundTrip(t *testing.T) {
	b := NewBridge()

	md, err := b.HTMLToMarkdown("<h1>Title</h1><ul><li>A</li><li>B</li></ul>")
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")

	out, err := b.MarkdownToHTML(md)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("h1").Length())
	assert.Equal(t, "Title", doc.Find("h1").Text())
	assert.Equal(t, 2, doc.Find("li").Length())
}

func TestBridge_InlineFormatting(t *testing.T) {
	b := NewBridge()

	md, err := b.HTMLToMarkdown("<p><strong>bold</strong> and <em>italic</em></p>")
	require.NoError(t, err)
	assert.Contains(t, md, "**bold**")

	out, err := b.MarkdownToHTML(md)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<em>italic</em>")
}

func TestBridge_GFMTables(t *testing.T) {
	out, err := NewBridge().MarkdownToHTML("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("table").Length())
	assert.Equal(t, 2, doc.Find("td").Length())
}

func TestBridge_RawHTML(t *testing.T) {
	src := "<div class=\"note\">raw</div>\n\ntext\n"

	out, err := NewBridge().MarkdownToHTML(src)
	require.NoError(t, err)
	assert.NotContains(t, out, `class="note"`)

	out, err = NewBridge(WithRawHTML()).MarkdownToHTML(src)
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="note">raw</div>`)
}
