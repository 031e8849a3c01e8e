// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	ContentTypePages   = "application/vnd.apple.pages"
	ContentTypeNumbers = "application/vnd.apple.numbers"
	ContentTypeKeynote = "application/vnd.apple.keynote"
)

// extContentTypes covers formats that sniffing alone reports as a generic
// container (zip, OLE, plain text).
var extContentTypes = map[string]string{
	".pages":   ContentTypePages,
	".numbers": ContentTypeNumbers,
	".key":     ContentTypeKeynote,
	".doc":     "application/msword",
	".docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":     "application/vnd.ms-excel",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":     "application/vnd.ms-powerpoint",
	".pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":     "application/vnd.oasis.opendocument.text",
	".ods":     "application/vnd.oasis.opendocument.spreadsheet",
	".epub":    "application/epub+zip",
	".pdf":     "application/pdf",
	".rtf":     "application/rtf",
	".txt":     "text/plain",
	".md":      "text/markdown",
	".csv":     "text/csv",
	".htm":     "text/html",
	".html":    "text/html",
	".xml":     "application/xml",
}

// genericContentTypes are sniffing results that say little about the format.
var genericContentTypes = map[string]bool{
	"application/octet-stream":  true,
	"application/zip":           true,
	"application/x-ole-storage": true,
	"text/plain":                true,
	"text/xml":                  true,
	"application/xml":           true,
}

// iworkContentTypes share one package layout, so sniffing cannot tell
// Pages, Numbers and Keynote apart.
var iworkContentTypes = map[string]bool{
	ContentTypePages:   true,
	ContentTypeNumbers: true,
	ContentTypeKeynote: true,
}

func init() {
	// Pages is the most common iWork format; the extension corrects it for
	// Numbers and Keynote.
	mimetype.Lookup("application/zip").Extend(func(raw []byte, limit uint32) bool {
		return bytes.Contains(raw, []byte("Index/Document.iwa")) ||
			bytes.Contains(raw, []byte("buildVersionHistory.plist"))
	}, ContentTypePages, ".pages")
}

// DetectContentType combines the file name extension with content sniffing.
// A specific sniffed type wins; a generic one defers to the extension.
func DetectContentType(name string, head []byte) string {
	byExt := extContentTypes[strings.ToLower(filepath.Ext(name))]
	if len(head) == 0 {
		if byExt != "" {
			return byExt
		}
		return "application/octet-stream"
	}

	sniffed := mimetype.Detect(head).String()
	base := BaseContentType(sniffed)
	if byExt != "" && (genericContentTypes[base] || iworkContentTypes[base] && iworkContentTypes[byExt]) {
		return byExt
	}
	return sniffed
}

// BaseContentType strips parameters such as charset from a content type.
func BaseContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		base, _, _ := strings.Cut(ct, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return mt
}
