package document

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>
  <w:style w:type="paragraph" w:styleId="Quote"><w:name w:val="Intense Quote"/></w:style>
  <w:style w:type="character" w:styleId="Strong"><w:name w:val="Strong"/></w:style>
  <w:style w:type="character" w:styleId="Emphasis"><w:name w:val="Emphasis"/></w:style>
</w:styles>`

const testNumberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>
  <w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>
  <w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
  <w:num w:numId="2"><w:abstractNumId w:val="1"/></w:num>
</w:numbering>`

const testRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/" TargetMode="External"/>
  <Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
  xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">
<w:body>` + body + `<w:sectPr/></w:body></w:document>`
}

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func extractBody(t *testing.T, body string) *Extraction {
	t.Helper()
	data := buildDocx(t, map[string]string{
		"word/document.xml":            wrapBody(body),
		"word/styles.xml":              testStylesXML,
		"word/numbering.xml":           testNumberingXML,
		"word/_rels/document.xml.rels": testRelsXML,
		"word/media/image1.png":        "\x89PNG fake",
	})
	result, err := Extract(data)
	require.NoError(t, err)
	return result
}

func parseHTML(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestExtract_InvalidContainer(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := Extract([]byte("definitely not a docx"))
		require.Error(t, err)
		assert.True(t, IsExtractionError(err))
	})

	t.Run("missing main part", func(t *testing.T) {
		data := buildDocx(t, map[string]string{"word/styles.xml": testStylesXML})
		_, err := Extract(data)
		require.Error(t, err)
		assert.True(t, IsExtractionError(err))
		assert.ErrorIs(t, err, ErrMissingMainPart)
	})

	t.Run("malformed document xml", func(t *testing.T) {
		data := buildDocx(t, map[string]string{"word/document.xml": "<w:document><w:body><w:p>"})
		_, err := Extract(data)
		require.Error(t, err)
		assert.True(t, IsExtractionError(err))
	})
}

func TestExtract_EmptyDocument(t *testing.T) {
	result := extractBody(t, `<w:p/><w:p><w:r><w:t>   </w:t></w:r></w:p>`)
	assert.Equal(t, "", result.HTML)
	assert.Equal(t, "", result.Styles)
}

func TestExtract_ParagraphStyles(t *testing.T) {
	result := extractBody(t, `
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Title</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Section</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>Body</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Quote"/></w:pPr><w:r><w:t>Quoted</w:t></w:r></w:p>
<w:p><w:r><w:t>Plain</w:t></w:r></w:p>`)

	doc := parseHTML(t, result.HTML)

	h1 := doc.Find("h1")
	require.Equal(t, 1, h1.Length())
	assert.Equal(t, "Title", h1.Text())
	assert.True(t, h1.HasClass("heading1"))
	assert.True(t, h1.HasClass("docx-style-heading-1"))
	class, _ := h1.Attr("class")
	assert.Equal(t, "heading1 docx-style-heading-1", class)
	assert.NotContains(t, result.HTML, "  docx-style-")
	name, _ := h1.Attr("data-style-name")
	assert.Equal(t, "heading 1", name)

	assert.True(t, doc.Find("h2").HasClass("heading2"))

	normal := doc.Find("p.normal")
	require.Equal(t, 1, normal.Length())
	assert.Equal(t, "Body", normal.Text())
	assert.True(t, normal.HasClass("docx-style-normal"))

	quote := doc.Find("p.docx-style-intense-quote")
	require.Equal(t, 1, quote.Length())
	assert.Equal(t, "Quoted", quote.Text())

	plain := doc.Find("p").Last()
	assert.Equal(t, "Plain", plain.Text())
	_, hasClass := plain.Attr("class")
	assert.False(t, hasClass)

	assert.True(t, strings.HasPrefix(result.Styles, DefaultStyles))
}

func TestExtract_RunFormatting(t *testing.T) {
	result := extractBody(t, `
<w:p>
  <w:r><w:rPr><w:rStyle w:val="Strong"/></w:rPr><w:t>strong</w:t></w:r>
  <w:r><w:t xml:space="preserve"> and </w:t></w:r>
  <w:r><w:rPr><w:rStyle w:val="Emphasis"/></w:rPr><w:t>emphasis</w:t></w:r>
  <w:r><w:rPr><w:b/></w:rPr><w:t>bo</w:t></w:r>
  <w:r><w:rPr><w:b/></w:rPr><w:t>ld</w:t></w:r>
  <w:r><w:rPr><w:b w:val="0"/><w:i/></w:rPr><w:t>ital</w:t></w:r>
  <w:r><w:rPr><w:u w:val="single"/><w:strike/></w:rPr><w:t>marked</w:t></w:r>
  <w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>
</w:p>`)

	doc := parseHTML(t, result.HTML)
	assert.Equal(t, "strong", doc.Find("strong.docx-style-strong").Text())
	assert.Equal(t, "emphasis", doc.Find("em.docx-style-emphasis").Text())

	// adjacent runs with the same formatting are merged
	bold := doc.Find("strong").FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, named := s.Attr("data-style-name")
		return !named
	})
	require.Equal(t, 1, bold.Length())
	assert.Equal(t, "bold", bold.Text())

	assert.Equal(t, "ital", doc.Find("em").Last().Text())
	assert.Equal(t, "marked", doc.Find("u > s").Text())
	assert.Equal(t, 1, doc.Find("p br").Length())
	assert.Contains(t, doc.Find("p").Text(), "a\tb")
}

func TestExtract_StyleCollection(t *testing.T) {
	result := extractBody(t, `
<w:p><w:pPr><w:pStyle w:val="Normal"/><w:jc w:val="center"/></w:pPr><w:r><w:t>first</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Normal"/><w:jc w:val="right"/></w:pPr><w:r><w:t>second</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:color w:val="ff0000"/><w:sz w:val="28"/></w:rPr><w:t>red</w:t></w:r></w:p>`)

	// last write wins for a shared selector
	assert.Contains(t, result.Styles, ".normal { text-align: right }")
	assert.NotContains(t, result.Styles, "text-align: center }")
	assert.Contains(t, result.Styles, "span { color: #FF0000; font-size: 14pt }")

	lines := strings.Split(result.Styles, "\n")
	assert.Equal(t, strings.Count(DefaultStyles, "\n")+1+2, len(lines))

	doc := parseHTML(t, result.HTML)
	style, _ := doc.Find("p.normal").First().Attr("style")
	assert.Equal(t, "text-align: center", style)
}

func TestExtract_Lists(t *testing.T) {
	result := extractBody(t, `
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>A</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="1"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>A.1</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>B</w:t></w:r></w:p>
<w:p><w:r><w:t>between</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="2"/></w:numPr></w:pPr><w:r><w:t>one</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="2"/></w:numPr></w:pPr><w:r><w:t>two</w:t></w:r></w:p>`)

	doc := parseHTML(t, result.HTML)
	ul := doc.Find("body > ul")
	require.Equal(t, 1, ul.Length())
	assert.Equal(t, 2, ul.ChildrenFiltered("li").Length())
	assert.Equal(t, "A.1", ul.Find("li > ul > li").Text())

	ol := doc.Find("body > ol")
	require.Equal(t, 1, ol.Length())
	assert.Equal(t, 2, ol.Find("li").Length())
	assert.Equal(t, "between", doc.Find("body > p").Text())
}

func TestExtract_TablesLinksImages(t *testing.T) {
	result := extractBody(t, `
<w:tbl>
  <w:tr>
    <w:tc><w:p><w:r><w:t>c1</w:t></w:r></w:p></w:tc>
    <w:tc><w:p><w:r><w:t>c2</w:t></w:r></w:p></w:tc>
  </w:tr>
</w:tbl>
<w:p>
  <w:hyperlink r:id="rId5"><w:r><w:t>link</w:t></w:r></w:hyperlink>
  <w:r><w:drawing><wp:inline><a:graphic><a:graphicData><a:blip r:embed="rId6"/></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>
</w:p>`)

	doc := parseHTML(t, result.HTML)
	table := doc.Find("table.docx-table")
	require.Equal(t, 1, table.Length())
	assert.Equal(t, 1, table.Find("tr.docx-tr").Length())
	assert.Equal(t, 2, table.Find("td.docx-td").Length())
	assert.Equal(t, "c2", table.Find("td").Last().Text())

	href, _ := doc.Find("a").Attr("href")
	assert.Equal(t, "https://example.com/", href)

	src, _ := doc.Find("img").Attr("src")
	assert.True(t, strings.HasPrefix(src, "data:image/png;base64,"))
}

func TestExtract_BodyOrderPreserved(t *testing.T) {
	result := extractBody(t, `
<w:p><w:r><w:t>before</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:t>after</w:t></w:r></w:p>`)

	before := strings.Index(result.HTML, "before")
	cell := strings.Index(result.HTML, "cell")
	after := strings.Index(result.HTML, "after")
	assert.True(t, before < cell && cell < after, result.HTML)
}
