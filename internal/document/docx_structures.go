package document

import (
	"encoding/xml"
	"strings"
)

// DOCX XML Namespaces
const (
	WordprocessingMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	PackageRelationshipsNS    = "http://schemas.openxmlformats.org/package/2006/relationships"
	DocumentRelationshipsNS   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	ContentTypesNamespace     = "http://schemas.openxmlformats.org/package/2006/content-types"
	officeDocumentRelType     = DocumentRelationshipsNS + "/officeDocument"
	numberingRelType          = DocumentRelationshipsNS + "/numbering"
	hyperlinkRelType          = DocumentRelationshipsNS + "/hyperlink"
	mainDocumentContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	numberingContentType      = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	relationshipsContentType  = "application/vnd.openxmlformats-package.relationships+xml"
	defaultXMLContentType     = "application/xml"
	xmlDeclaration            = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// WordDocument represents the main document.xml structure
type WordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    Body     `xml:"body"`
}

// Body holds the top-level blocks of a document in source order.
type Body struct {
	Blocks []Block
}

// Block is either a paragraph or a table.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
}

// UnmarshalXML keeps paragraphs and tables interleaved as they appear.
func (b *Body) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	blocks, err := decodeBlocks(d)
	if err != nil {
		return err
	}
	b.Blocks = blocks
	return nil
}

func decodeBlocks(d *xml.Decoder) ([]Block, error) {
	var blocks []Block
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var p Paragraph
				if err := d.DecodeElement(&p, &t); err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Paragraph: &p})
			case "tbl":
				var tbl Table
				if err := d.DecodeElement(&tbl, &t); err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Table: &tbl})
			case "sdt", "sdtContent", "customXml":
				// content controls wrap ordinary blocks
				inner, err := decodeBlocks(d)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, inner...)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return blocks, nil
		}
	}
}

// Paragraph represents a paragraph element
type Paragraph struct {
	Properties *ParagraphProps
	Content    []Inline
}

// Inline is a run or a hyperlink inside a paragraph.
type Inline struct {
	Run       *Run
	Hyperlink *Hyperlink
}

// UnmarshalXML decodes pPr, runs and hyperlinks, preserving their order.
func (p *Paragraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				p.Properties = &ParagraphProps{}
				if err := d.DecodeElement(p.Properties, &t); err != nil {
					return err
				}
			case "r":
				var r Run
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Content = append(p.Content, Inline{Run: &r})
			case "hyperlink":
				var h Hyperlink
				if err := d.DecodeElement(&h, &t); err != nil {
					return err
				}
				p.Content = append(p.Content, Inline{Hyperlink: &h})
			case "ins", "smartTag", "fldSimple", "customXml":
				var wrapper runContainer
				if err := d.DecodeElement(&wrapper, &t); err != nil {
					return err
				}
				for i := range wrapper.Runs {
					p.Content = append(p.Content, Inline{Run: &wrapper.Runs[i]})
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type runContainer struct {
	Runs []Run `xml:"r"`
}

// ParagraphProps represents paragraph properties
type ParagraphProps struct {
	Style   *ValAttr          `xml:"pStyle"`
	NumPr   *NumberingProps   `xml:"numPr"`
	Spacing *ParagraphSpacing `xml:"spacing"`
	Align   *ValAttr          `xml:"jc"`
}

// StyleID returns the paragraph style id or "".
func (pp *ParagraphProps) StyleID() string {
	if pp == nil || pp.Style == nil {
		return ""
	}
	return pp.Style.Val
}

// NumberingProps marks a paragraph as a list item.
type NumberingProps struct {
	Level *ValAttr `xml:"ilvl"`
	NumID *ValAttr `xml:"numId"`
}

// ParagraphSpacing represents paragraph spacing
type ParagraphSpacing struct {
	After  string `xml:"after,attr,omitempty"`
	Before string `xml:"before,attr,omitempty"`
	Line   string `xml:"line,attr,omitempty"`
}

// ValAttr is the common <w:x w:val="..."/> shape.
type ValAttr struct {
	Val string `xml:"val,attr"`
}

// Toggle is an on/off property such as <w:b/> or <w:b w:val="0"/>.
type Toggle struct {
	Val string `xml:"val,attr"`
}

// On reports whether the toggle is enabled.
func (t *Toggle) On() bool {
	if t == nil {
		return false
	}
	switch strings.ToLower(t.Val) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// RunContentKind identifies what a run content item carries.
type RunContentKind int

const (
	RunText RunContentKind = iota
	RunTab
	RunBreak
	RunImage
)

// RunContent is one ordered piece of a run.
type RunContent struct {
	Kind RunContentKind
	Text string
	// EmbedID is the relationship id of an embedded image.
	EmbedID string
}

// Run represents a text run
type Run struct {
	Properties *RunProps
	Content    []RunContent
}

// Text concatenates the run's text, tabs and breaks.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		switch c.Kind {
		case RunText:
			sb.WriteString(c.Text)
		case RunTab:
			sb.WriteString("\t")
		case RunBreak:
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// UnmarshalXML decodes run properties and the ordered run content.
func (r *Run) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				r.Properties = &RunProps{}
				if err := d.DecodeElement(r.Properties, &t); err != nil {
					return err
				}
			case "t", "delText":
				var text string
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				if t.Name.Local == "t" {
					r.Content = append(r.Content, RunContent{Kind: RunText, Text: text})
				}
			case "tab":
				r.Content = append(r.Content, RunContent{Kind: RunTab})
				if err := d.Skip(); err != nil {
					return err
				}
			case "br", "cr":
				if attrValue(t.Attr, "type") != "page" {
					r.Content = append(r.Content, RunContent{Kind: RunBreak})
				}
				if err := d.Skip(); err != nil {
					return err
				}
			case "drawing":
				embed, err := findBlipEmbed(d)
				if err != nil {
					return err
				}
				if embed != "" {
					r.Content = append(r.Content, RunContent{Kind: RunImage, EmbedID: embed})
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// findBlipEmbed consumes a drawing element and returns the first a:blip r:embed.
func findBlipEmbed(d *xml.Decoder) (string, error) {
	embed := ""
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "blip" && embed == "" {
				embed = attrValue(t.Attr, "embed")
			}
		case xml.EndElement:
			depth--
		}
	}
	return embed, nil
}

func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// RunProps represents run properties
type RunProps struct {
	Style     *ValAttr `xml:"rStyle"`
	Bold      *Toggle  `xml:"b"`
	Italic    *Toggle  `xml:"i"`
	Underline *ValAttr `xml:"u"`
	Strike    *Toggle  `xml:"strike"`
	Color     *ValAttr `xml:"color"`
	Size      *ValAttr `xml:"sz"`
	Font      *RunFont `xml:"rFonts"`
	Highlight *ValAttr `xml:"highlight"`
}

// RunFont represents font settings
type RunFont struct {
	ASCII    string `xml:"ascii,attr,omitempty"`
	HAnsi    string `xml:"hAnsi,attr,omitempty"`
	EastAsia string `xml:"eastAsia,attr,omitempty"`
}

// Hyperlink represents a hyperlink
type Hyperlink struct {
	ID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	Anchor string `xml:"anchor,attr"`
	Runs   []Run  `xml:"r"`
}

// Table represents a table element
type Table struct {
	Rows []TableRow `xml:"tr"`
}

// TableRow represents a table row
type TableRow struct {
	Cells []TableCell `xml:"tc"`
}

// TableCell represents a table cell; cells may nest tables.
type TableCell struct {
	Blocks []Block
}

// UnmarshalXML decodes the cell's blocks in order.
func (c *TableCell) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	blocks, err := decodeBlocks(d)
	if err != nil {
		return err
	}
	c.Blocks = blocks
	return nil
}

// StylesPart represents word/styles.xml
type StylesPart struct {
	Styles []StyleDef `xml:"style"`
}

// StyleDef is one style definition.
type StyleDef struct {
	Type    string   `xml:"type,attr"`
	StyleID string   `xml:"styleId,attr"`
	Name    ValAttr  `xml:"name"`
	BasedOn *ValAttr `xml:"basedOn"`
}

// NumberingPart represents word/numbering.xml
type NumberingPart struct {
	AbstractNums []AbstractNum `xml:"abstractNum"`
	Nums         []Num         `xml:"num"`
}

// AbstractNum defines list levels.
type AbstractNum struct {
	ID     string     `xml:"abstractNumId,attr"`
	Levels []NumLevel `xml:"lvl"`
}

// NumLevel is one list level.
type NumLevel struct {
	Level  string  `xml:"ilvl,attr"`
	NumFmt ValAttr `xml:"numFmt"`
}

// Num binds a numId to an abstract definition.
type Num struct {
	NumID         string  `xml:"numId,attr"`
	AbstractNumID ValAttr `xml:"abstractNumId"`
}

// ContentTypes represents [Content_Types].xml
type ContentTypes struct {
	XMLName   xml.Name   `xml:"Types"`
	Namespace string     `xml:"xmlns,attr"`
	Defaults  []Default  `xml:"Default"`
	Overrides []Override `xml:"Override"`
}

// Default represents a default content type
type Default struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// Override represents an override content type
type Override struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// Relationships represents relationships
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Namespace     string         `xml:"xmlns,attr"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship represents a relationship
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}
