package document

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// DocxMIMEType identifies a word-processing download.
	DocxMIMEType = MIMETypeDOCX
	// DefaultFileName is used when the caller does not name the download.
	DefaultFileName = "converted-file.docx"

	bulletNumID = "1"
)

var headingSizes = map[int]int{1: 64, 2: 48, 3: 36}

// blockHandler maps one body-level element to document paragraphs.
type blockHandler func(s *goquery.Selection) []wParagraph

// Packager serializes editor HTML into a minimal DOCX package.
type Packager struct {
	handlers map[string]blockHandler
}

// NewPackager returns a packager with the standard element mapping.
func NewPackager() *Packager {
	return &Packager{
		handlers: map[string]blockHandler{
			"h1":     headingHandler(1),
			"h2":     headingHandler(2),
			"h3":     headingHandler(3),
			"p":      paragraphHandler,
			"strong": emphasisHandler(true, false),
			"em":     emphasisHandler(false, true),
			"ul":     bulletListHandler,
			"style":  skipHandler,
			"script": skipHandler,
		},
	}
}

// Package converts html to DOCX bytes.
func (p *Packager) Package(htmlContent string) ([]byte, error) {
	pkg, err := p.Build(htmlContent)
	if err != nil {
		return nil, err
	}
	data, err := pkg.Bytes()
	if err != nil {
		return nil, newPackagingError("failed to serialize package", err)
	}
	return data, nil
}

// Build converts html to an in-memory package.
func (p *Packager) Build(htmlContent string) (*Package, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, newPackagingError("nothing to download", ErrEmptyContent)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, newPackagingError("failed to parse html", err)
	}
	// An editor left with only empty paragraphs ("<p></p>", "<P> </P>") has
	// nothing to download.
	if strings.TrimSpace(doc.Find("body").Text()) == "" {
		return nil, newPackagingError("nothing to download", ErrEmptyContent)
	}

	paragraphs := p.convertBody(doc.Find("body"))
	if len(paragraphs) == 0 {
		return nil, newPackagingError("nothing to download", ErrEmptyContent)
	}

	hasBullets := false
	for _, para := range paragraphs {
		if para.Props != nil && para.Props.NumPr != nil {
			hasBullets = true
			break
		}
	}

	return assemblePackage(paragraphs, hasBullets)
}

func (p *Packager) convertBody(body *goquery.Selection) []wParagraph {
	var out []wParagraph
	body.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			if strings.TrimSpace(node.Data) == "" {
				return
			}
			out = append(out, plainParagraph(node.Data, DefaultFontSize, DefaultSpacingAfter))
		case html.ElementNode:
			handler, ok := p.handlers[strings.ToLower(node.Data)]
			if !ok {
				handler = fallbackHandler
			}
			out = append(out, handler(s)...)
		}
	})
	return out
}

func headingHandler(level int) blockHandler {
	return func(s *goquery.Selection) []wParagraph {
		style := styleOf(s)
		return []wParagraph{{
			Props: &wParagraphProps{
				Style:   &wVal{Val: "Heading" + strconv.Itoa(level)},
				Spacing: spacingAfter(style["margin-bottom"]),
				Jc:      &wVal{Val: "left"},
			},
			Runs: []wRun{newRun(s.Text(), runFormatting{bold: true, size: headingSizes[level]})},
		}}
	}
}

func paragraphHandler(s *goquery.Selection) []wParagraph {
	style := styleOf(s)
	base := runFormatting{size: ParseFontSize(style["font-size"])}

	var runs []wRun
	collectRuns(s, base, &runs)
	return []wParagraph{{
		Props: &wParagraphProps{Spacing: spacingAfter(style["margin-bottom"])},
		Runs:  runs,
	}}
}

func emphasisHandler(bold, italic bool) blockHandler {
	return func(s *goquery.Selection) []wParagraph {
		style := styleOf(s)
		f := runFormatting{bold: bold, italic: italic, size: ParseFontSize(style["font-size"])}
		return []wParagraph{{
			Props: &wParagraphProps{Spacing: spacingAfter(style["margin-bottom"])},
			Runs:  []wRun{newRun(s.Text(), f)},
		}}
	}
}

func bulletListHandler(s *goquery.Selection) []wParagraph {
	var out []wParagraph
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		// nested lists produce their own items
		text := li.Clone().Find("ul, ol").Remove().End().Text()
		style := styleOf(li)
		out = append(out, wParagraph{
			Props: &wParagraphProps{
				NumPr: &wNumPr{
					Level: wIntVal{Val: 0},
					NumID: wVal{Val: bulletNumID},
				},
				Spacing: spacingAfter(style["margin-bottom"]),
			},
			Runs: []wRun{newRun(text, runFormatting{size: ParseFontSize(style["font-size"])})},
		})
	})
	return out
}

func fallbackHandler(s *goquery.Selection) []wParagraph {
	style := styleOf(s)
	f := runFormatting{size: ParseFontSize(style["font-size"])}
	if font, ok := resolveFontFamily(style["font-family"]); ok {
		f.font = font
	}
	if color, ok := resolveColor(style["color"]); ok {
		f.color = color
	}
	return []wParagraph{{
		Props: &wParagraphProps{Spacing: spacingAfter(style["margin-bottom"])},
		Runs:  []wRun{newRun(s.Text(), f)},
	}}
}

func skipHandler(*goquery.Selection) []wParagraph {
	return nil
}

func plainParagraph(text string, size, after int) wParagraph {
	return wParagraph{
		Props: &wParagraphProps{Spacing: &wSpacing{After: after}},
		Runs:  []wRun{newRun(text, runFormatting{size: size})},
	}
}

// runFormatting is the inherited state while walking inline content.
type runFormatting struct {
	bold      bool
	italic    bool
	underline bool
	strike    bool
	size      int
	color     string
	font      string
}

// collectRuns walks inline children, emitting one run per text node.
func collectRuns(s *goquery.Selection, f runFormatting, runs *[]wRun) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		node := c.Get(0)
		switch node.Type {
		case html.TextNode:
			if node.Data != "" {
				*runs = append(*runs, newRun(node.Data, f))
			}
		case html.ElementNode:
			child := f
			switch strings.ToLower(node.Data) {
			case "br":
				*runs = append(*runs, wRun{Props: f.props(), Items: []interface{}{wBreak{}}})
				return
			case "strong", "b":
				child.bold = true
			case "em", "i":
				child.italic = true
			case "u":
				child.underline = true
			case "s", "strike", "del":
				child.strike = true
			}
			style := styleOf(c)
			if v, ok := style["font-size"]; ok {
				child.size = ParseFontSize(v)
			}
			if color, ok := resolveColor(style["color"]); ok {
				child.color = color
			}
			if font, ok := resolveFontFamily(style["font-family"]); ok {
				child.font = font
			}
			collectRuns(c, child, runs)
		}
	})
}

func newRun(text string, f runFormatting) wRun {
	t := wText{Text: text}
	if strings.TrimSpace(text) != text {
		t.Space = "preserve"
	}
	return wRun{Props: f.props(), Items: []interface{}{t}}
}

func (f runFormatting) props() *wRunProps {
	rp := &wRunProps{}
	if f.font != "" {
		rp.Fonts = &wFonts{ASCII: f.font, HAnsi: f.font}
	}
	if f.bold {
		rp.Bold = &wEmpty{}
	}
	if f.italic {
		rp.Italic = &wEmpty{}
	}
	if f.strike {
		rp.Strike = &wEmpty{}
	}
	if f.color != "" {
		rp.Color = &wVal{Val: f.color}
	}
	if f.size > 0 {
		rp.Size = &wIntVal{Val: f.size}
		rp.SizeCS = &wIntVal{Val: f.size}
	}
	if f.underline {
		rp.Underline = &wVal{Val: "single"}
	}
	return rp
}

func spacingAfter(margin string) *wSpacing {
	return &wSpacing{After: ParseMarginBottom(margin)}
}

func styleOf(s *goquery.Selection) map[string]string {
	style, _ := s.Attr("style")
	return parseInlineStyle(style)
}

func assemblePackage(paragraphs []wParagraph, hasBullets bool) (*Package, error) {
	pkg := NewPackage()

	types := ContentTypes{
		Namespace: ContentTypesNamespace,
		Defaults: []Default{
			{Extension: "rels", ContentType: relationshipsContentType},
			{Extension: "xml", ContentType: defaultXMLContentType},
		},
		Overrides: []Override{
			{PartName: "/" + PartDocument, ContentType: mainDocumentContentType},
		},
	}
	if hasBullets {
		types.Overrides = append(types.Overrides, Override{PartName: "/" + PartNumbering, ContentType: numberingContentType})
	}
	if err := pkg.AddXMLPart(PartContentTypes, types); err != nil {
		return nil, newPackagingError("content types", err)
	}

	rootRels := Relationships{
		Namespace: PackageRelationshipsNS,
		Relationships: []Relationship{
			{ID: "rId1", Type: officeDocumentRelType, Target: PartDocument},
		},
	}
	if err := pkg.AddXMLPart(PartRootRels, rootRels); err != nil {
		return nil, newPackagingError("relationships", err)
	}

	doc := wDocument{
		XmlnsW: WordprocessingMLNamespace,
		XmlnsR: DocumentRelationshipsNS,
		Body: wBody{
			Paragraphs: paragraphs,
			SectPr:     defaultSection(),
		},
	}
	if err := pkg.AddXMLPart(PartDocument, doc); err != nil {
		return nil, newPackagingError("document body", err)
	}

	if hasBullets {
		docRels := Relationships{
			Namespace: PackageRelationshipsNS,
			Relationships: []Relationship{
				{ID: "rId1", Type: numberingRelType, Target: "numbering.xml"},
			},
		}
		if err := pkg.AddXMLPart(PartDocumentRels, docRels); err != nil {
			return nil, newPackagingError("document relationships", err)
		}
		if err := pkg.AddXMLPart(PartNumbering, bulletNumbering()); err != nil {
			return nil, newPackagingError("numbering", err)
		}
	}
	return pkg, nil
}

// A4 portrait with one-inch margins.
func defaultSection() wSectPr {
	return wSectPr{
		PageSize: wPageSize{W: 11906, H: 16838},
		PageMargin: wPageMargin{
			Top: 1440, Right: 1440, Bottom: 1440, Left: 1440,
			Header: 708, Footer: 708, Gutter: 0,
		},
	}
}

func bulletNumbering() wNumbering {
	return wNumbering{
		XmlnsW: WordprocessingMLNamespace,
		AbstractNums: []wAbstractNum{{
			ID: 0,
			Levels: []wLevel{{
				Level:    0,
				Start:    wIntVal{Val: 1},
				NumFmt:   wVal{Val: "bullet"},
				LvlText:  wVal{Val: "•"},
				LvlJc:    wVal{Val: "left"},
				ParaProp: wLevelParagraph{Indent: wIndent{Left: 720, Hanging: 360}},
			}},
		}},
		Nums: []wNum{{ID: 1, AbstractNumID: wIntVal{Val: 0}}},
	}
}

// Writer-side WordprocessingML elements. Names carry the w: prefix
// literally so the output matches what word processors expect.

type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	XmlnsW  string   `xml:"xmlns:w,attr"`
	XmlnsR  string   `xml:"xmlns:r,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Paragraphs []wParagraph `xml:"w:p"`
	SectPr     wSectPr      `xml:"w:sectPr"`
}

type wSectPr struct {
	PageSize   wPageSize   `xml:"w:pgSz"`
	PageMargin wPageMargin `xml:"w:pgMar"`
}

type wPageSize struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type wPageMargin struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
	Gutter int `xml:"w:gutter,attr"`
}

type wParagraph struct {
	Props *wParagraphProps `xml:"w:pPr,omitempty"`
	Runs  []wRun           `xml:"w:r"`
}

type wParagraphProps struct {
	Style   *wVal     `xml:"w:pStyle,omitempty"`
	NumPr   *wNumPr   `xml:"w:numPr,omitempty"`
	Spacing *wSpacing `xml:"w:spacing,omitempty"`
	Jc      *wVal     `xml:"w:jc,omitempty"`
}

type wNumPr struct {
	Level wIntVal `xml:"w:ilvl"`
	NumID wVal    `xml:"w:numId"`
}

type wSpacing struct {
	After int `xml:"w:after,attr"`
}

type wRun struct {
	Props *wRunProps `xml:"w:rPr,omitempty"`
	Items []interface{}
}

type wRunProps struct {
	Fonts     *wFonts  `xml:"w:rFonts,omitempty"`
	Bold      *wEmpty  `xml:"w:b,omitempty"`
	Italic    *wEmpty  `xml:"w:i,omitempty"`
	Strike    *wEmpty  `xml:"w:strike,omitempty"`
	Color     *wVal    `xml:"w:color,omitempty"`
	Size      *wIntVal `xml:"w:sz,omitempty"`
	SizeCS    *wIntVal `xml:"w:szCs,omitempty"`
	Underline *wVal    `xml:"w:u,omitempty"`
}

type wFonts struct {
	ASCII string `xml:"w:ascii,attr"`
	HAnsi string `xml:"w:hAnsi,attr"`
}

type wText struct {
	XMLName xml.Name `xml:"w:t"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type wBreak struct {
	XMLName xml.Name `xml:"w:br"`
}

type wEmpty struct{}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wIntVal struct {
	Val int `xml:"w:val,attr"`
}

type wNumbering struct {
	XMLName      xml.Name       `xml:"w:numbering"`
	XmlnsW       string         `xml:"xmlns:w,attr"`
	AbstractNums []wAbstractNum `xml:"w:abstractNum"`
	Nums         []wNum         `xml:"w:num"`
}

type wAbstractNum struct {
	ID     int      `xml:"w:abstractNumId,attr"`
	Levels []wLevel `xml:"w:lvl"`
}

type wLevel struct {
	Level    int             `xml:"w:ilvl,attr"`
	Start    wIntVal         `xml:"w:start"`
	NumFmt   wVal            `xml:"w:numFmt"`
	LvlText  wVal            `xml:"w:lvlText"`
	LvlJc    wVal            `xml:"w:lvlJc"`
	ParaProp wLevelParagraph `xml:"w:pPr"`
}

type wLevelParagraph struct {
	Indent wIndent `xml:"w:ind"`
}

type wIndent struct {
	Left    int `xml:"w:left,attr"`
	Hanging int `xml:"w:hanging,attr"`
}

type wNum struct {
	ID            int     `xml:"w:numId,attr"`
	AbstractNumID wIntVal `xml:"w:abstractNumId"`
}
