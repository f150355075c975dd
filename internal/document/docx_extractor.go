package document

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// paragraph style name (normalized) -> element
var paragraphStyleMap = map[string]struct {
	tag   string
	class string
}{
	"normal":   {"p", "normal"},
	"heading1": {"h1", "heading1"},
	"heading2": {"h2", "heading2"},
	"heading3": {"h3", "heading3"},
	"heading4": {"h4", ""},
	"heading5": {"h5", ""},
	"heading6": {"h6", ""},
	"title":    {"h1", ""},
	"subtitle": {"h2", ""},
}

// character style name (normalized) -> element
var runStyleMap = map[string]string{
	"strong":   "strong",
	"emphasis": "em",
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// Extract converts a DOCX package into HTML and a CSS style sheet.
// An empty document yields empty HTML and styles.
func Extract(data []byte) (*Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, newExtractionError("not a valid DOCX container", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mainPart, ok := files["word/document.xml"]
	if !ok {
		return nil, newExtractionError("not a valid DOCX container", ErrMissingMainPart)
	}

	var doc WordDocument
	if err := decodeXMLPart(mainPart, &doc); err != nil {
		return nil, newExtractionError("malformed word/document.xml", err)
	}

	x := &extractor{
		files:     files,
		styles:    make(map[string]string),
		listTypes: make(map[string]map[string]string),
		rels:      make(map[string]Relationship),
	}
	// Auxiliary parts are optional; a damaged one only loses its feature.
	x.loadStyles()
	x.loadNumbering()
	x.loadRelationships()

	w := newBlockWriter(x)
	w.writeBlocks(doc.Body.Blocks)
	raw := w.String()

	if strings.TrimSpace(raw) == "" {
		return &Extraction{}, nil
	}
	return finalizeExtraction(raw)
}

// finalizeExtraction collects inline styles into a style sheet and tags
// elements produced from named styles with their derived class.
func finalizeExtraction(raw string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, newExtractionError("failed to re-parse generated html", err)
	}
	body := doc.Find("body")

	sheet := NewStyleSheet()
	body.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		decl, _ := s.Attr("style")
		sheet.Set(styleSelector(s), strings.TrimSpace(decl))
	})

	body.Find("[data-style-name]").Each(func(_ int, s *goquery.Selection) {
		if name, _ := s.Attr("data-style-name"); strings.TrimSpace(name) != "" {
			addClass(s, StyleClass(name))
		}
	})

	out, err := body.Html()
	if err != nil {
		return nil, newExtractionError("failed to serialize html", err)
	}

	styles := DefaultStyles
	if sheet.Len() > 0 {
		styles += "\n" + sheet.String()
	}
	return &Extraction{HTML: out, Styles: styles}, nil
}

// addClass appends class once and leaves the attribute single-spaced.
func addClass(s *goquery.Selection, class string) {
	current, _ := s.Attr("class")
	fields := strings.Fields(current)
	for _, f := range fields {
		if f == class {
			s.SetAttr("class", strings.Join(fields, " "))
			return
		}
	}
	s.SetAttr("class", strings.Join(append(fields, class), " "))
}

// styleSelector is ".class" when the element has a class, else its tag.
func styleSelector(s *goquery.Selection) string {
	if class, ok := s.Attr("class"); ok {
		if fields := strings.Fields(class); len(fields) > 0 {
			return "." + strings.Join(fields, ".")
		}
	}
	return strings.ToLower(goquery.NodeName(s))
}

type extractor struct {
	files map[string]*zip.File
	// styleId -> style name
	styles map[string]string
	// numId -> ilvl -> numFmt
	listTypes map[string]map[string]string
	rels      map[string]Relationship
}

func (x *extractor) loadStyles() {
	f, ok := x.files["word/styles.xml"]
	if !ok {
		return
	}
	var part StylesPart
	if err := decodeXMLPart(f, &part); err != nil {
		return
	}
	for _, s := range part.Styles {
		if s.StyleID != "" && s.Name.Val != "" {
			x.styles[s.StyleID] = s.Name.Val
		}
	}
}

func (x *extractor) loadNumbering() {
	f, ok := x.files["word/numbering.xml"]
	if !ok {
		return
	}
	var part NumberingPart
	if err := decodeXMLPart(f, &part); err != nil {
		return
	}
	abstract := make(map[string]map[string]string, len(part.AbstractNums))
	for _, a := range part.AbstractNums {
		levels := make(map[string]string, len(a.Levels))
		for _, l := range a.Levels {
			levels[l.Level] = l.NumFmt.Val
		}
		abstract[a.ID] = levels
	}
	for _, n := range part.Nums {
		if levels, ok := abstract[n.AbstractNumID.Val]; ok {
			x.listTypes[n.NumID] = levels
		}
	}
}

func (x *extractor) loadRelationships() {
	f, ok := x.files["word/_rels/document.xml.rels"]
	if !ok {
		return
	}
	var rels Relationships
	if err := decodeXMLPart(f, &rels); err != nil {
		return
	}
	for _, r := range rels.Relationships {
		x.rels[r.ID] = r
	}
}

// styleName resolves a style id to its display name, falling back to the id.
func (x *extractor) styleName(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := x.styles[id]; ok {
		return name
	}
	return id
}

// listTag returns "ul" for bullet numbering and "ol" otherwise.
func (x *extractor) listTag(numID, level string) string {
	levels, ok := x.listTypes[numID]
	if !ok {
		return "ul"
	}
	if fmtVal, ok := levels[level]; ok && fmtVal != "bullet" {
		return "ol"
	}
	return "ul"
}

func (x *extractor) hyperlinkTarget(h *Hyperlink) string {
	if h.ID != "" {
		if r, ok := x.rels[h.ID]; ok {
			return r.Target
		}
	}
	if h.Anchor != "" {
		return "#" + h.Anchor
	}
	return ""
}

// imageSource returns a data URI for an embedded image, or "".
func (x *extractor) imageSource(embedID string) string {
	r, ok := x.rels[embedID]
	if !ok || r.TargetMode == "External" {
		return ""
	}
	target := strings.TrimPrefix(r.Target, "/")
	if !strings.HasPrefix(r.Target, "/") {
		target = path.Join("word", r.Target)
	}
	f, ok := x.files[target]
	if !ok {
		return ""
	}
	mimeType, ok := imageMIMETypes[strings.ToLower(path.Ext(target))]
	if !ok {
		return ""
	}
	data, err := readZipFile(f)
	if err != nil {
		return ""
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// normalizeStyleKey makes "Heading 1" and "Heading1" compare equal.
func normalizeStyleKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

// blockWriter renders blocks to HTML, grouping list paragraphs.
type blockWriter struct {
	x     *extractor
	sb    strings.Builder
	lists []string
}

func newBlockWriter(x *extractor) *blockWriter {
	return &blockWriter{x: x}
}

func (w *blockWriter) String() string {
	w.closeLists(0)
	return w.sb.String()
}

func (w *blockWriter) writeBlocks(blocks []Block) {
	for _, b := range blocks {
		switch {
		case b.Paragraph != nil:
			w.writeParagraph(b.Paragraph)
		case b.Table != nil:
			w.closeLists(0)
			w.writeTable(b.Table)
		}
	}
}

func (w *blockWriter) writeParagraph(p *Paragraph) {
	content := w.x.renderInlines(p.Content)
	styleName := w.x.styleName(p.Properties.StyleID())

	if num := p.Properties.numbering(); num != nil {
		w.writeListItem(num, styleName, content)
		return
	}
	w.closeLists(0)

	// empty paragraphs are dropped
	if strings.TrimSpace(content) == "" {
		return
	}

	tag, class := "p", ""
	if styleName != "" {
		if m, ok := paragraphStyleMap[normalizeStyleKey(styleName)]; ok {
			tag, class = m.tag, m.class
		}
	}

	w.sb.WriteString("<" + tag)
	if class != "" {
		writeAttr(&w.sb, "class", class)
	}
	if styleName != "" {
		writeAttr(&w.sb, "data-style-name", styleName)
	}
	if css := p.Properties.alignCSS(); css != "" {
		writeAttr(&w.sb, "style", css)
	}
	w.sb.WriteString(">" + content + "</" + tag + ">")
}

func (w *blockWriter) writeListItem(num *listRef, styleName, content string) {
	depth := num.level + 1
	tag := w.x.listTag(num.numID, strconv.Itoa(num.level))

	for len(w.lists) > depth {
		w.closeTop()
	}
	if len(w.lists) == depth {
		if w.lists[depth-1] == tag {
			w.sb.WriteString("</li>")
			w.openItem(styleName, content)
			return
		}
		w.closeTop()
	}
	for len(w.lists) < depth {
		w.sb.WriteString("<" + tag + ">")
		w.lists = append(w.lists, tag)
		if len(w.lists) < depth {
			w.sb.WriteString("<li>")
		}
	}
	w.openItem(styleName, content)
}

func (w *blockWriter) openItem(styleName, content string) {
	w.sb.WriteString("<li")
	if styleName != "" {
		writeAttr(&w.sb, "data-style-name", styleName)
	}
	w.sb.WriteString(">" + content)
}

func (w *blockWriter) closeTop() {
	top := w.lists[len(w.lists)-1]
	w.sb.WriteString("</li></" + top + ">")
	w.lists = w.lists[:len(w.lists)-1]
}

func (w *blockWriter) closeLists(depth int) {
	for len(w.lists) > depth {
		w.closeTop()
	}
}

func (w *blockWriter) writeTable(t *Table) {
	w.sb.WriteString(`<table class="docx-table">`)
	for _, row := range t.Rows {
		w.sb.WriteString(`<tr class="docx-tr">`)
		for _, cell := range row.Cells {
			inner := newBlockWriter(w.x)
			inner.writeBlocks(cell.Blocks)
			w.sb.WriteString(`<td class="docx-td">` + inner.String() + `</td>`)
		}
		w.sb.WriteString(`</tr>`)
	}
	w.sb.WriteString(`</table>`)
}

type listRef struct {
	numID string
	level int
}

func (pp *ParagraphProps) numbering() *listRef {
	if pp == nil || pp.NumPr == nil || pp.NumPr.NumID == nil || pp.NumPr.NumID.Val == "0" {
		return nil
	}
	ref := &listRef{numID: pp.NumPr.NumID.Val}
	if pp.NumPr.Level != nil {
		if lvl, err := strconv.Atoi(pp.NumPr.Level.Val); err == nil && lvl >= 0 && lvl < 9 {
			ref.level = lvl
		}
	}
	return ref
}

func (pp *ParagraphProps) alignCSS() string {
	if pp == nil || pp.Align == nil {
		return ""
	}
	switch pp.Align.Val {
	case "center":
		return "text-align: center"
	case "right", "end":
		return "text-align: right"
	case "both", "distribute":
		return "text-align: justify"
	}
	return ""
}

// runFormat is the formatting state that decides run grouping.
type runFormat struct {
	styleName string
	bold      bool
	italic    bool
	underline bool
	strike    bool
	css       string
}

func (x *extractor) formatOf(r *Run) runFormat {
	rp := r.Properties
	if rp == nil {
		return runFormat{}
	}
	f := runFormat{
		bold:   rp.Bold.On(),
		italic: rp.Italic.On(),
		strike: rp.Strike.On(),
	}
	if rp.Style != nil {
		f.styleName = x.styleName(rp.Style.Val)
	}
	if rp.Underline != nil && rp.Underline.Val != "none" && rp.Underline.Val != "0" {
		f.underline = true
	}

	var decls []string
	if rp.Color != nil && rp.Color.Val != "" && rp.Color.Val != "auto" {
		decls = append(decls, "color: #"+strings.ToUpper(rp.Color.Val))
	}
	if rp.Size != nil {
		if hp, err := strconv.Atoi(rp.Size.Val); err == nil && hp > 0 {
			decls = append(decls, "font-size: "+strconv.FormatFloat(float64(hp)/2, 'f', -1, 64)+"pt")
		}
	}
	if rp.Font != nil && rp.Font.ASCII != "" {
		decls = append(decls, "font-family: "+rp.Font.ASCII)
	}
	if rp.Highlight != nil && rp.Highlight.Val != "" && rp.Highlight.Val != "none" {
		decls = append(decls, "background-color: "+rp.Highlight.Val)
	}
	f.css = strings.Join(decls, "; ")
	return f
}

// renderInlines renders runs and hyperlinks, merging adjacent runs that
// share formatting.
func (x *extractor) renderInlines(items []Inline) string {
	var sb strings.Builder
	var pending []*Run
	flush := func() {
		x.writeRunGroups(&sb, pending)
		pending = pending[:0]
	}
	for _, item := range items {
		switch {
		case item.Run != nil:
			pending = append(pending, item.Run)
		case item.Hyperlink != nil:
			flush()
			runs := make([]*Run, len(item.Hyperlink.Runs))
			for i := range item.Hyperlink.Runs {
				runs[i] = &item.Hyperlink.Runs[i]
			}
			var inner strings.Builder
			x.writeRunGroups(&inner, runs)
			if href := x.hyperlinkTarget(item.Hyperlink); href != "" {
				sb.WriteString("<a")
				writeAttr(&sb, "href", href)
				sb.WriteString(">" + inner.String() + "</a>")
			} else {
				sb.WriteString(inner.String())
			}
		}
	}
	flush()
	return sb.String()
}

func (x *extractor) writeRunGroups(sb *strings.Builder, runs []*Run) {
	i := 0
	for i < len(runs) {
		format := x.formatOf(runs[i])
		var content strings.Builder
		j := i
		for ; j < len(runs) && x.formatOf(runs[j]) == format; j++ {
			x.writeRunContent(&content, runs[j])
		}
		if content.Len() > 0 {
			writeFormatted(sb, format, content.String())
		}
		i = j
	}
}

func (x *extractor) writeRunContent(sb *strings.Builder, r *Run) {
	for _, c := range r.Content {
		switch c.Kind {
		case RunText:
			sb.WriteString(html.EscapeString(c.Text))
		case RunTab:
			sb.WriteString("\t")
		case RunBreak:
			sb.WriteString("<br>")
		case RunImage:
			if src := x.imageSource(c.EmbedID); src != "" {
				sb.WriteString("<img")
				writeAttr(sb, "src", src)
				sb.WriteString(">")
			}
		}
	}
}

func writeFormatted(sb *strings.Builder, f runFormat, content string) {
	var closers []string
	open := func(tag string, attrs ...string) {
		sb.WriteString("<" + tag)
		for i := 0; i+1 < len(attrs); i += 2 {
			writeAttr(sb, attrs[i], attrs[i+1])
		}
		sb.WriteString(">")
		closers = append(closers, "</"+tag+">")
	}

	styled := ""
	if f.styleName != "" {
		tag, ok := runStyleMap[normalizeStyleKey(f.styleName)]
		if !ok {
			tag = "span"
		}
		open(tag, "data-style-name", f.styleName)
		styled = tag
	}
	if f.bold && styled != "strong" {
		open("strong")
	}
	if f.italic && styled != "em" {
		open("em")
	}
	if f.underline {
		open("u")
	}
	if f.strike {
		open("s")
	}
	if f.css != "" {
		open("span", "style", f.css)
	}

	sb.WriteString(content)
	for i := len(closers) - 1; i >= 0; i-- {
		sb.WriteString(closers[i])
	}
}

func writeAttr(sb *strings.Builder, key, val string) {
	sb.WriteString(" " + key + `="` + html.EscapeString(val) + `"`)
}

func decodeXMLPart(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.Name, err)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
