// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// minimalPDF builds a one-page PDF whose xref offsets are computed on the fly.
func minimalPDF(t *testing.T, text, title string) []byte {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 6 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		fmt.Sprintf("<< /Title (%s) /Author (Unit Test) /Producer (viya-doc-xtract tests) >>", title),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 5 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func minimalDOCX(t *testing.T, paragraphs []string, creator string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"docProps/core.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">` +
			`<dc:title>Sample</dc:title><dc:creator>` + creator + `</dc:creator><cp:lastModifiedBy>Editor</cp:lastModifiedBy>` +
			`<dcterms:created>2010-01-01T00:00:00Z</dcterms:created></cp:coreProperties>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestEngine_PDF(t *testing.T) {
	data := minimalPDF(t, "The quick brown fox jumped over the lazy cat.", "Fox")
	e := New()
	ctx := context.Background()

	res, err := e.Extract(ctx, &engine.Request{Kind: engine.Text, Data: data, ContentType: ContentTypePDF})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "quick brown fox")

	res, err = e.Extract(ctx, &engine.Request{Kind: engine.Metadata, Data: data, Name: "fox.pdf"})
	require.NoError(t, err)
	assert.Equal(t, ContentTypePDF, res.Metadata["Content-Type"])
	assert.Equal(t, "Fox", res.Metadata["dc:title"])
	assert.Equal(t, "Unit Test", res.Metadata["dc:creator"])
	assert.Equal(t, "1", res.Metadata["xmpTPg:NPages"])
	assert.Equal(t, "false", res.Metadata["pdf:hasXMP"])
}

func TestEngine_MalformedPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), &engine.Request{Kind: engine.Text, Data: []byte("%PDF-1.4\nnot really"), ContentType: ContentTypePDF})
	assert.Error(t, err)
}

func TestEngine_DOCX(t *testing.T) {
	data := minimalDOCX(t, []string{"Lorem ipsum dolor sit amet, consectetuer adipiscing elit.", "Fish &amp; chips"}, "Jane Doe")
	e := New()
	ctx := context.Background()

	res, err := e.Extract(ctx, &engine.Request{Kind: engine.Text, Data: data, Name: "sample.docx"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Lorem ipsum dolor sit amet, consectetuer adipiscing elit.\n")
	assert.Contains(t, res.Text, "Fish & chips")
	assert.NotContains(t, res.Text, "<w:")

	res, err = e.Extract(ctx, &engine.Request{Kind: engine.Metadata, Data: data, Name: "sample.docx"})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeDOCX, res.Metadata["Content-Type"])
	assert.Equal(t, "Jane Doe", res.Metadata["dc:creator"])
	assert.Equal(t, "Editor", res.Metadata["meta:last-author"])
	assert.Equal(t, "2010-01-01T00:00:00Z", res.Metadata["dcterms:created"])
}

func TestEngine_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	require.NoError(t, f.SetDocProps(&excelize.DocProperties{Title: "Inventory", Creator: "Ops"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dir := t.TempDir()
	p := filepath.Join(dir, "inventory sheet.xlsx")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	e := New()
	ctx := context.Background()

	res, err := e.Extract(ctx, &engine.Request{Kind: engine.Text, Path: p})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Sheet1\n")
	assert.Contains(t, res.Text, "\twidget\t3\n")

	res, err = e.Extract(ctx, &engine.Request{Kind: engine.Metadata, Path: p})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, res.Metadata["Content-Type"])
	assert.Equal(t, "Inventory", res.Metadata["dc:title"])
	assert.Equal(t, "Ops", res.Metadata["dc:creator"])
	assert.Equal(t, "1", res.Metadata["sheets"])
}

func TestEngine_PlainText(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), &engine.Request{Kind: engine.Text, Data: []byte("plain words"), ContentType: "text/markdown; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "plain words", res.Text)

	_, err = e.Extract(context.Background(), &engine.Request{Kind: engine.Text, Data: []byte{0xff, 0xfe, 0xfd}, Name: "bad.txt"})
	assert.ErrorIs(t, err, engine.ErrUnsupportedFormat)
}

func TestEngine_Unsupported(t *testing.T) {
	e := New()
	ctx := context.Background()

	_, err := e.Extract(ctx, &engine.Request{Kind: engine.Text, Data: []byte("x"), Name: "slides.key"})
	assert.ErrorIs(t, err, engine.ErrUnsupportedFormat)

	_, err = e.Extract(ctx, &engine.Request{Kind: engine.HTML, Data: []byte("x"), Name: "a.txt"})
	assert.ErrorIs(t, err, engine.ErrUnsupportedKind)

	_, err = e.Extract(ctx, &engine.Request{Kind: engine.Text, Name: "a.txt"})
	assert.ErrorIs(t, err, engine.ErrEmptyDocument)

	assert.ElementsMatch(t, []string{ContentTypePDF, ContentTypeDOCX, ContentTypeXLSX, ContentTypeText}, e.supportedContentTypes())
}

func TestStripXMLTags(t *testing.T) {
	in := `<p>Hello <b>World</b> &amp; <i>Gophers</i></p>`
	assert.Equal(t, "Hello World &amp; Gophers", stripXMLTags(in))
}

func TestParseXMPWithXML(t *testing.T) {
	x := `<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:pdf="http://ns.adobe.com/pdf/1.3/">
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">Minimal PDF with Metadata</rdf:li></rdf:Alt></dc:title>
   <dc:creator><rdf:Seq><rdf:li>Jane</rdf:li></rdf:Seq></dc:creator>
   <pdf:Producer>UnitTest PDF Generator</pdf:Producer>
  </rdf:Description>
  <rdf:Description xmlns:xmp="http://ns.adobe.com/xap/1.0/">
   <xmp:CreateDate>2021-04-05</xmp:CreateDate>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>`
	got, ok := parseXMPWithXML(x)
	require.True(t, ok)
	assert.Equal(t, "Minimal PDF with Metadata", got.Title)
	assert.Equal(t, "Jane", got.Creator)
	assert.Equal(t, "UnitTest PDF Generator", got.Producer)
	assert.Equal(t, "2021-04-05", got.CreateDate)
}

func TestParseXMPWithXML_Invalid(t *testing.T) {
	_, ok := parseXMPWithXML(`<xmpmeta><not-closed>`)
	assert.False(t, ok)
}

func TestParseXMPFallback(t *testing.T) {
	xmp := `
  <dc:title><rdf:li>Fallback Title</rdf:li></dc:title>
  <dc:creator><rdf:li>Fallback Creator</rdf:li></dc:creator>
  <dc:description><rdf:li>Fallback Subject</rdf:li></dc:description>
  <pdf:Keywords>k1,k2</pdf:Keywords>
  <xmp:CreatorTool>FallbackTool</xmp:CreatorTool>
  <pdf:Producer>FallbackProducer</pdf:Producer>
  <xmp:CreateDate>2021-04-05</xmp:CreateDate>
  <xmp:ModifyDate>2021-04-06</xmp:ModifyDate>
`
	got := parseXMPFallback(xmp)
	assert.Equal(t, "Fallback Title", got.Title)
	assert.Equal(t, "Fallback Creator", got.Creator)
	assert.Equal(t, "Fallback Subject", got.Subject)
	assert.Equal(t, "k1,k2", got.Keywords)
	assert.Equal(t, "FallbackTool", got.CreatorTool)
	assert.Equal(t, "FallbackProducer", got.Producer)
	assert.Equal(t, "2021-04-05", got.CreateDate)
	assert.Equal(t, "2021-04-06", got.ModifyDate)
}
