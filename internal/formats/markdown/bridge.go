// Package markdown converts editor HTML to Markdown on the way out to the
// translation service and converts the translated Markdown back to HTML.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/Kunde21/markdownfmt/v3"
	mdfmt "github.com/Kunde21/markdownfmt/v3/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

const (
	DirectionToMarkdown = "html-to-markdown"
	DirectionToHTML     = "markdown-to-html"
)

// ConversionError 表示 HTML 与 Markdown 之间的转换失败
type ConversionError struct {
	Direction string
	Reason    string
	Err       error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s conversion failed: %s: %v", e.Direction, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s conversion failed: %s", e.Direction, e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type options struct {
	format  bool
	rawHTML bool
}

// Option configures a Bridge.
type Option func(*options)

// WithFormatting normalizes outbound Markdown with markdownfmt.
func WithFormatting() Option {
	return func(o *options) { o.format = true }
}

// WithRawHTML keeps raw HTML blocks found in inbound Markdown.
func WithRawHTML() Option {
	return func(o *options) { o.rawHTML = true }
}

// Bridge holds immutable converter configuration and is safe for concurrent use.
type Bridge struct {
	toMarkdown *converter.Converter
	toHTML     goldmark.Markdown
	format     bool
}

// NewBridge builds both converters.
func NewBridge(opts ...Option) *Bridge {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	// PriorityEarly runs before the commonmark image renderer.
	conv.Register.RendererFor("img", converter.TagTypeInline,
		func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
			if isDataImage(dom.GetAttributeOr(n, "src", "")) {
				return converter.RenderSuccess
			}
			return converter.RenderTryNext
		},
		converter.PriorityEarly,
	)

	rendererOpts := []renderer.Option{gmhtml.WithXHTML()}
	if o.rawHTML {
		rendererOpts = append(rendererOpts, gmhtml.WithUnsafe())
	}

	return &Bridge{
		toMarkdown: conv,
		toHTML: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(rendererOpts...),
		),
		format: o.format,
	}
}

// HTMLToMarkdown drops embedded data-URI images; the translation service
// only receives text.
func (b *Bridge) HTMLToMarkdown(src string) (string, error) {
	if src == "" {
		return "", &ConversionError{Direction: DirectionToMarkdown, Reason: "empty input"}
	}

	md, err := b.toMarkdown.ConvertString(src)
	if err != nil {
		return "", &ConversionError{Direction: DirectionToMarkdown, Reason: "converter failed", Err: err}
	}

	if b.format && strings.TrimSpace(md) != "" {
		formatted, err := markdownfmt.Process("", []byte(md), mdfmt.WithCodeFormatters(mdfmt.GoCodeFormatter))
		if err != nil {
			return "", &ConversionError{Direction: DirectionToMarkdown, Reason: "markdown formatting failed", Err: err}
		}
		md = string(formatted)
	}

	return strings.TrimSpace(md), nil
}

// MarkdownToHTML renders CommonMark plus GFM tables, strikethrough and autolinks.
func (b *Bridge) MarkdownToHTML(src string) (string, error) {
	if src == "" {
		return "", &ConversionError{Direction: DirectionToHTML, Reason: "empty input"}
	}

	var buf bytes.Buffer
	if err := b.toHTML.Convert([]byte(src), &buf); err != nil {
		return "", &ConversionError{Direction: DirectionToHTML, Reason: "renderer failed", Err: err}
	}
	return strings.TrimSpace(buf.String()), nil
}

func isDataImage(src string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(src)), "data:image")
}
