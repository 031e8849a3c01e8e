// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

type docxParser struct{}

func (docxParser) contentType() string { return ContentTypeDOCX }

var docxBreaks = strings.NewReplacer(
	"</w:p>", "\n",
	"<w:br/>", "\n",
	"<w:cr/>", "\n",
	"<w:tab/>", "\t",
)

func (docxParser) text(_ context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns the raw word/document.xml body
	content := docxBreaks.Replace(doc.Editable().GetContent())
	return html.UnescapeString(stripXMLTags(content)), nil
}

// coreProperties mirrors docProps/core.xml.
type coreProperties struct {
	Title          string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Subject        string `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Creator        string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Description    string `xml:"http://purl.org/dc/elements/1.1/ description"`
	Language       string `xml:"http://purl.org/dc/elements/1.1/ language"`
	Keywords       string `xml:"http://schemas.openxmlformats.org/package/2006/metadata/core-properties keywords"`
	LastModifiedBy string `xml:"http://schemas.openxmlformats.org/package/2006/metadata/core-properties lastModifiedBy"`
	Revision       string `xml:"http://schemas.openxmlformats.org/package/2006/metadata/core-properties revision"`
	Created        string `xml:"http://purl.org/dc/terms/ created"`
	Modified       string `xml:"http://purl.org/dc/terms/ modified"`
}

func (docxParser) metadata(_ context.Context, data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}

	md := make(map[string]string)
	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open core properties: %w", err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docx: read core properties: %w", err)
		}
		var cp coreProperties
		if err := xml.Unmarshal(b, &cp); err != nil {
			return nil, fmt.Errorf("docx: parse core properties: %w", err)
		}
		for k, v := range map[string]string{
			"dc:title":         cp.Title,
			"dc:subject":       cp.Subject,
			"dc:creator":       cp.Creator,
			"dc:description":   cp.Description,
			"dc:language":      cp.Language,
			"meta:keyword":     cp.Keywords,
			"meta:last-author": cp.LastModifiedBy,
			"cp:revision":      cp.Revision,
			"dcterms:created":  cp.Created,
			"dcterms:modified": cp.Modified,
		} {
			if v = strings.TrimSpace(v); v != "" {
				md[k] = v
			}
		}
	}
	return md, nil
}
