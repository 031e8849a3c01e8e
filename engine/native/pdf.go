// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

type pdfParser struct{}

func (pdfParser) contentType() string { return ContentTypePDF }

func openPDF(data []byte) (r *pdf.Reader, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf: malformed document: %v", rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return r, nil
}

func (pdfParser) text(ctx context.Context, data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			logger.Debug(fmt.Sprintf("pdf: null page skipped: index=%d", i), true)
			continue
		}
		text, err := pageText(page)
		if err != nil {
			return "", fmt.Errorf("pdf: page %d: %w", i, err)
		}
		out.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed content stream: %v", rec)
		}
	}()
	return page.GetPlainText(nil)
}

func (pdfParser) metadata(_ context.Context, data []byte) (map[string]string, error) {
	r, err := openPDF(data)
	if err != nil {
		return nil, err
	}

	info := r.Trailer().Key("Info")
	var xf xmpFields
	if x := readXMP(r); x != "" {
		if got, ok := parseXMPWithXML(x); ok {
			xf = got
		} else {
			xf = parseXMPFallback(x)
		}
	}

	md := map[string]string{
		"xmpTPg:NPages": fmt.Sprintf("%d", r.NumPage()),
	}
	set := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			md[key] = v
		}
	}
	// XMP takes precedence over /Info
	set("dc:title", prefer(xf.Title, info.Key("Title").Text()))
	set("dc:creator", prefer(xf.Creator, info.Key("Author").Text()))
	set("dc:subject", prefer(xf.Subject, info.Key("Subject").Text()))
	set("meta:keyword", prefer(xf.Keywords, info.Key("Keywords").Text()))
	set("xmp:CreatorTool", prefer(xf.CreatorTool, info.Key("Creator").Text()))
	set("pdf:producer", prefer(xf.Producer, info.Key("Producer").Text()))
	set("dcterms:created", prefer(xf.CreateDate, info.Key("CreationDate").Text()))
	set("dcterms:modified", prefer(xf.ModifyDate, info.Key("ModDate").Text()))
	if xf != (xmpFields{}) {
		md["pdf:hasXMP"] = "true"
	} else {
		md["pdf:hasXMP"] = "false"
	}
	return md, nil
}

// readXMP returns the raw XMP packet from /Root/Metadata, or "" if absent.
func readXMP(r *pdf.Reader) (x string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug(fmt.Sprintf("pdf: unreadable XMP stream: %v", rec))
			x = ""
		}
	}()
	md := r.Trailer().Key("Root").Key("Metadata")
	if md.Kind() != pdf.Stream {
		return ""
	}
	rc := md.Reader()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		logger.Debug(fmt.Sprintf("pdf: read XMP stream: %v", err))
		return ""
	}
	return string(b)
}

// prefer returns a if non-empty after trimming, otherwise b.
func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// Minimal XML models for the common XMP fields.
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     struct {
		Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfDescription struct {
	Title       rdfList `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description rdfList `xml:"http://purl.org/dc/elements/1.1/ description"`
	Creator     rdfList `xml:"http://purl.org/dc/elements/1.1/ creator"`

	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	PDFKeywords string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords"`

	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

type rdfContainer struct {
	LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
}

// rdfList matches rdf:Alt, rdf:Seq and rdf:Bag containers alike.
type rdfList struct {
	Alt rdfContainer `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
	Seq rdfContainer `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq"`
	Bag rdfContainer `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Bag"`
}

func (l rdfList) first() string {
	for _, c := range []rdfContainer{l.Alt, l.Seq, l.Bag} {
		for _, it := range c.LI {
			if s := strings.TrimSpace(it); s != "" {
				return s
			}
		}
	}
	return ""
}

type xmpFields struct {
	Title, Creator, Subject, Keywords, CreatorTool, Producer, CreateDate, ModifyDate string
}

func parseXMPWithXML(x string) (xmpFields, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(&pkt); err != nil {
		return xmpFields{}, false
	}

	var f xmpFields
	for _, d := range pkt.RDF.Descriptions {
		f.Title = prefer(d.Title.first(), f.Title)
		f.Creator = prefer(d.Creator.first(), f.Creator)
		f.Subject = prefer(d.Description.first(), f.Subject)
		f.Keywords = prefer(strings.TrimSpace(d.PDFKeywords), f.Keywords)
		f.Producer = prefer(strings.TrimSpace(d.PDFProducer), f.Producer)
		f.CreatorTool = prefer(strings.TrimSpace(d.XMPCreatorTool), f.CreatorTool)
		f.CreateDate = prefer(strings.TrimSpace(d.XMPCreateDate), f.CreateDate)
		f.ModifyDate = prefer(strings.TrimSpace(d.XMPModifyDate), f.ModifyDate)
	}
	return f, true
}

// parseXMPFallback does a plain tag search when the packet is not valid XML.
func parseXMPFallback(xmp string) xmpFields {
	get := func(cands ...string) string {
		for _, t := range cands {
			open, close := "<"+t+">", "</"+t+">"
			if i := strings.Index(xmp, open); i >= 0 {
				if j := strings.Index(xmp[i+len(open):], close); j >= 0 {
					return strings.TrimSpace(stripXMLTags(xmp[i+len(open) : i+len(open)+j]))
				}
			}
		}
		return ""
	}
	return xmpFields{
		Title:       get("dc:title", "pdf:Title"),
		Creator:     get("dc:creator", "pdf:Author"),
		Subject:     get("dc:description", "pdf:Subject"),
		Keywords:    get("pdf:Keywords"),
		CreatorTool: get("xmp:CreatorTool"),
		Producer:    get("pdf:Producer"),
		CreateDate:  get("xmp:CreateDate"),
		ModifyDate:  get("xmp:ModifyDate"),
	}
}

// stripXMLTags removes simple XML tags from a string.
func stripXMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
