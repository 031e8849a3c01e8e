// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package engine defines the boundary between the source resolver and the
// extraction backends that actually parse documents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind selects which projection of a document an engine should produce.
type Kind string

const (
	Text     Kind = "text"
	HTML     Kind = "html"
	Metadata Kind = "metadata"
)

// ParseKind maps a user supplied name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Text:
		return Text, nil
	case HTML:
		return HTML, nil
	case Metadata:
		return Metadata, nil
	}
	return "", fmt.Errorf("unknown output kind %q", s)
}

var (
	ErrUnsupportedKind   = errors.New("output kind not supported by engine")
	ErrUnsupportedFormat = errors.New("document format not supported by engine")
	ErrEmptyDocument     = errors.New("empty document")
)

// Request is a normalized engine invocation. Exactly one of Path or Data is
// set: Path for local files, Data for fetched URIs and drained streams.
type Request struct {
	Kind        Kind
	Path        string
	Data        []byte
	Name        string // file name hint, may be empty
	ContentType string // sniffed content type, may be empty
}

// Result carries the projection requested by Request.Kind.
type Result struct {
	Text     string
	Metadata map[string]string
}

// Engine is an opaque document extraction backend.
type Engine interface {
	Name() string
	Supports(kind Kind) bool
	Extract(ctx context.Context, req *Request) (*Result, error)
}

// Verifier is implemented by engines that can check their runtime
// dependencies (binaries, servers) up front.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Materialize returns a filesystem path holding the request content. For
// path requests it returns the path unchanged and a no-op cleanup; otherwise
// the bytes are written to a temp file that cleanup removes.
func Materialize(req *Request) (string, func(), error) {
	if req.Path != "" {
		return req.Path, func() {}, nil
	}
	ext := filepath.Ext(req.Name)
	f, err := os.CreateTemp("", "xtract-"+uuid.NewString()+"-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(req.Data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

// ReadContent returns the request bytes, reading Path when needed.
func ReadContent(req *Request) ([]byte, error) {
	if req.Path == "" {
		return req.Data, nil
	}
	return os.ReadFile(req.Path)
}

// FileName returns the best available file name for the request.
func FileName(req *Request) string {
	if req.Name != "" {
		return req.Name
	}
	if req.Path != "" {
		return filepath.Base(req.Path)
	}
	return ""
}
