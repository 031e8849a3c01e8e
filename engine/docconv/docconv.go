// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package docconv adapts code.sajari.com/docconv, which drives native
// converters (pdftotext, wvText, unrtf, ...) in-process.
package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"

	sajari "code.sajari.com/docconv"
	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

// Engine converts documents with docconv.
type Engine struct {
	useReadability bool
	convert        func(data []byte, mimeType string, readability bool) (*sajari.Response, error)
}

var _ engine.Engine = (*Engine)(nil)

func New(useReadability bool) *Engine {
	return &Engine{useReadability: useReadability, convert: convertBytes}
}

func convertBytes(data []byte, mimeType string, readability bool) (*sajari.Response, error) {
	return sajari.Convert(bytes.NewReader(data), mimeType, readability)
}

func (e *Engine) Name() string { return "docconv" }

func (e *Engine) Supports(kind engine.Kind) bool {
	return kind == engine.Text || kind == engine.Metadata
}

func (e *Engine) Extract(ctx context.Context, req *engine.Request) (*engine.Result, error) {
	if !e.Supports(req.Kind) {
		return nil, fmt.Errorf("%w: docconv cannot produce %q", engine.ErrUnsupportedKind, req.Kind)
	}

	mimeType := baseType(req.ContentType)
	if mimeType == "" {
		mimeType = sajari.MimeTypeByExtension(engine.FileName(req))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		return nil, fmt.Errorf("%w: unknown content type for %q", engine.ErrUnsupportedFormat, engine.FileName(req))
	}

	data, err := engine.ReadContent(req)
	if err != nil {
		return nil, fmt.Errorf("docconv: read content: %w", err)
	}
	if len(data) == 0 {
		return nil, engine.ErrEmptyDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug(fmt.Sprintf("docconv: converting content_type=%s bytes=%d readability=%v", mimeType, len(data), e.useReadability), true)
	res, err := e.convert(data, mimeType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", mimeType, err)
	}
	if res == nil {
		return nil, fmt.Errorf("docconv %s: no response", mimeType)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("docconv %s: %w", mimeType, errors.New(res.Error))
	}

	if req.Kind == engine.Metadata {
		md := make(map[string]string, len(res.Meta)+1)
		for k, v := range res.Meta {
			md[k] = v
		}
		if _, ok := md["Content-Type"]; !ok {
			md["Content-Type"] = mimeType
		}
		return &engine.Result{Metadata: md}, nil
	}
	return &engine.Result{Text: res.Body}, nil
}

func baseType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mt
}
