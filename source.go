// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
)

// SourceKind tags the variant held by a Source.
type SourceKind int

const (
	PathSource SourceKind = iota + 1
	URISource
	StreamSource
)

func (k SourceKind) String() string {
	switch k {
	case PathSource:
		return "path"
	case URISource:
		return "uri"
	case StreamSource:
		return "stream"
	}
	return "unknown"
}

// uriSchemes are the schemes classified as remote resources.
var uriSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"s3":    true,
}

// Source is the classified, validated origin of document bytes. Exactly one
// of IsPath, IsURI and IsStream is true. The zero value is not usable.
type Source struct {
	kind   SourceKind
	path   string
	uri    *url.URL
	stream io.Reader
}

// FromPath validates that path names an existing, readable file. The path
// is kept verbatim.
func FromPath(p string) (Source, error) {
	if err := validatePath(p); err != nil {
		return Source{}, err
	}
	return Source{kind: PathSource, path: p}, nil
}

// FromURI accepts http, https and s3 locators. Nothing is fetched yet.
func FromURI(raw string) (Source, error) {
	u, ok := parseURI(raw)
	if !ok {
		return Source{}, newError("new", KindUnsupportedInput, raw,
			fmt.Errorf("not a URI with a supported scheme (http, https, s3)"))
	}
	return Source{kind: URISource, uri: u}, nil
}

// FromStream borrows r. The library reads it fully once and never closes it.
func FromStream(r io.Reader) (Source, error) {
	if isNil(r) {
		return Source{}, newError("new", KindUnsupportedInput, fmt.Sprintf("%T", r), errors.New("nil reader"))
	}
	return Source{kind: StreamSource, stream: r}, nil
}

// NewSource classifies a dynamically typed input:
//
//	io.Reader        -> stream
//	[]byte           -> stream over the bytes
//	*url.URL         -> URI
//	string           -> URI when it has a supported scheme and host, else path
//
// Anything else fails with ErrUnsupportedInput.
func NewSource(input any) (Source, error) {
	switch v := input.(type) {
	case nil:
		return Source{}, unsupported(input)
	case io.Reader:
		return FromStream(v)
	case []byte:
		return FromStream(bytes.NewReader(v))
	case *url.URL:
		if v == nil {
			return Source{}, unsupported(input)
		}
		return FromURI(v.String())
	case string:
		if _, ok := parseURI(v); ok {
			return FromURI(v)
		}
		return FromPath(v)
	default:
		return Source{}, unsupported(input)
	}
}

func unsupported(input any) error {
	return newError("new", KindUnsupportedInput, fmt.Sprintf("%T", input),
		fmt.Errorf("expected a path or URI string, []byte or io.Reader"))
}

func parseURI(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !uriSchemes[strings.ToLower(u.Scheme)] || u.Host == "" {
		return nil, false
	}
	return u, true
}

func validatePath(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return newError("new", KindFileNotFound, p, err)
	}
	if fi.IsDir() {
		return newError("new", KindFileNotFound, p, errors.New("is a directory"))
	}
	f, err := openCheck(p)
	if err != nil {
		return newError("new", KindFileNotFound, p, err)
	}
	if err := f.Close(); err != nil {
		return newError("new", KindFileNotFound, p, err)
	}
	return nil
}

// openCheck opens a path to check readability; replaced in tests.
var openCheck = func(p string) (io.ReadCloser, error) {
	return os.Open(p)
}

func isNil(r io.Reader) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func (s Source) Kind() SourceKind { return s.kind }
func (s Source) IsPath() bool     { return s.kind == PathSource }
func (s Source) IsURI() bool      { return s.kind == URISource }
func (s Source) IsStream() bool   { return s.kind == StreamSource }

// Path returns the file path for path sources.
func (s Source) Path() string { return s.path }

// URI returns the locator for URI sources.
func (s Source) URI() string {
	if s.uri == nil {
		return ""
	}
	return s.uri.String()
}

// Name returns a file name hint used for content-type detection.
func (s Source) Name() string {
	switch s.kind {
	case PathSource:
		return filepath.Base(s.path)
	case URISource:
		if base := path.Base(s.uri.Path); base != "/" && base != "." {
			return base
		}
	case StreamSource:
		if n, ok := s.stream.(interface{ Name() string }); ok {
			return filepath.Base(n.Name())
		}
	}
	return ""
}

func (s Source) String() string {
	switch s.kind {
	case PathSource:
		return s.path
	case URISource:
		return s.URI()
	case StreamSource:
		return fmt.Sprintf("stream(%T)", s.stream)
	}
	return "invalid source"
}
