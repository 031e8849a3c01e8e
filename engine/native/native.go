// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package native extracts text and metadata in-process with pure Go
// parsers. It covers fewer formats than Tika but needs no JVM.
package native

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText = "text/plain"
)

// parser handles one document format.
type parser interface {
	contentType() string
	text(ctx context.Context, data []byte) (string, error)
	metadata(ctx context.Context, data []byte) (map[string]string, error)
}

// Engine dispatches to a format parser by content type, then extension.
type Engine struct {
	parsers map[string]parser
	byExt   map[string]string
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	e := &Engine{
		parsers: make(map[string]parser),
		byExt: map[string]string{
			".pdf":  ContentTypePDF,
			".docx": ContentTypeDOCX,
			".xlsx": ContentTypeXLSX,
			".txt":  ContentTypeText,
			".text": ContentTypeText,
			".md":   ContentTypeText,
			".csv":  ContentTypeText,
		},
	}
	for _, p := range []parser{pdfParser{}, docxParser{}, xlsxParser{}, textParser{}} {
		e.parsers[p.contentType()] = p
	}
	return e
}

func (e *Engine) Name() string { return "native" }

func (e *Engine) Supports(kind engine.Kind) bool {
	return kind == engine.Text || kind == engine.Metadata
}

// supportedContentTypes lists the formats this engine can parse.
func (e *Engine) supportedContentTypes() []string {
	out := make([]string, 0, len(e.parsers))
	for ct := range e.parsers {
		out = append(out, ct)
	}
	return out
}

func (e *Engine) Extract(ctx context.Context, req *engine.Request) (*engine.Result, error) {
	if !e.Supports(req.Kind) {
		return nil, fmt.Errorf("%w: native cannot produce %q", engine.ErrUnsupportedKind, req.Kind)
	}
	p := e.find(req)
	if p == nil {
		return nil, fmt.Errorf("%w: content_type=%q name=%q", engine.ErrUnsupportedFormat, req.ContentType, engine.FileName(req))
	}

	data, err := engine.ReadContent(req)
	if err != nil {
		return nil, fmt.Errorf("native: read content: %w", err)
	}
	if len(data) == 0 {
		return nil, engine.ErrEmptyDocument
	}

	logger.Debug(fmt.Sprintf("native: parsing content_type=%s kind=%s bytes=%d", p.contentType(), req.Kind, len(data)), true)
	if req.Kind == engine.Metadata {
		md, err := p.metadata(ctx, data)
		if err != nil {
			return nil, err
		}
		md["Content-Type"] = p.contentType()
		return &engine.Result{Metadata: md}, nil
	}
	text, err := p.text(ctx, data)
	if err != nil {
		return nil, err
	}
	return &engine.Result{Text: text}, nil
}

func (e *Engine) find(req *engine.Request) parser {
	if req.ContentType != "" {
		if mt, _, err := mime.ParseMediaType(req.ContentType); err == nil {
			if p, ok := e.parsers[mt]; ok {
				return p
			}
			if strings.HasPrefix(mt, "text/") {
				return e.parsers[ContentTypeText]
			}
		}
	}
	ext := strings.ToLower(filepath.Ext(engine.FileName(req)))
	if ct, ok := e.byExt[ext]; ok {
		return e.parsers[ct]
	}
	return nil
}

// textParser passes plain text through.
type textParser struct{}

func (textParser) contentType() string { return ContentTypeText }

func (textParser) text(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", engine.ErrUnsupportedFormat)
	}
	return string(data), nil
}

func (textParser) metadata(_ context.Context, data []byte) (map[string]string, error) {
	return map[string]string{
		"Content-Encoding": "UTF-8",
		"Content-Length":   fmt.Sprintf("%d", len(data)),
	}, nil
}
