// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "testdata"

func TestNewSource_ExactlyOneKind(t *testing.T) {
	f, err := os.Open(filepath.Join(testDir, "sample.txt"))
	require.NoError(t, err)
	defer f.Close()

	u, err := url.Parse("https://example.com/docs/sample.docx")
	require.NoError(t, err)

	inputs := []any{
		filepath.Join(testDir, "sample.txt"),
		filepath.Join(testDir, "sample filename with spaces.txt"),
		"http://example.com/a.pdf",
		"s3://bucket/key/report.pdf",
		u,
		f,
		strings.NewReader("hello"),
		[]byte("raw bytes"),
	}
	for _, in := range inputs {
		src, err := NewSource(in)
		require.NoError(t, err, "input %v", in)
		n := 0
		for _, b := range []bool{src.IsPath(), src.IsURI(), src.IsStream()} {
			if b {
				n++
			}
		}
		assert.Equal(t, 1, n, "input %v", in)
	}
}

func TestNewSource_Classification(t *testing.T) {
	f, err := os.Open(filepath.Join(testDir, "sample.txt"))
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		name  string
		input any
		kind  SourceKind
	}{
		{"relative path", filepath.Join(testDir, "sample.txt"), PathSource},
		{"path with spaces", filepath.Join(testDir, "sample filename with spaces.txt"), PathSource},
		{"http uri", "http://example.com/sample.docx", URISource},
		{"https uri", "https://example.com/sample.docx?x=1", URISource},
		{"s3 uri", "s3://bucket/sample.docx", URISource},
		{"open file", f, StreamSource},
		{"reader", bytes.NewBufferString("abc"), StreamSource},
		{"bytes", []byte("abc"), StreamSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, src.Kind())
		})
	}
}

func TestNewSource_PathWithSpacesKeptVerbatim(t *testing.T) {
	p := filepath.Join(testDir, "sample filename with spaces.txt")
	src, err := NewSource(p)
	require.NoError(t, err)
	assert.True(t, src.IsPath())
	assert.Equal(t, p, src.Path())
	assert.Equal(t, "sample filename with spaces.txt", src.Name())
}

func TestNewSource_MissingPath(t *testing.T) {
	_, err := NewSource("test/sample/missing.pages")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, IsConstructionError(err))
	assert.False(t, IsInvocationError(err))
	assert.Contains(t, err.Error(), "test/sample/missing.pages")
}

func TestNewSource_DirectoryIsNotAFile(t *testing.T) {
	_, err := NewSource(testDir)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

type badCloser struct{ io.Reader }

func (badCloser) Close() error { return errors.New("stale file handle") }

func TestNewSource_CloseFailureIsFileNotFound(t *testing.T) {
	orig := openCheck
	t.Cleanup(func() { openCheck = orig })
	openCheck = func(string) (io.ReadCloser, error) {
		return badCloser{strings.NewReader("")}, nil
	}

	p := filepath.Join(testDir, "sample.txt")
	_, err := NewSource(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.True(t, IsConstructionError(err))
	assert.Contains(t, err.Error(), "stale file handle")
	assert.Contains(t, err.Error(), p)
}

func TestNewSource_UnsupportedTypes(t *testing.T) {
	var nilFile *os.File
	var nilURL *url.URL
	for _, in := range []any{nil, 1, 1.1, int64(7), true, struct{}{}, nilFile, nilURL} {
		_, err := NewSource(in)
		require.Error(t, err, "input %#v", in)
		assert.ErrorIs(t, err, ErrUnsupportedInput, "input %#v", in)
		assert.Equal(t, KindUnsupportedInput, KindOf(err))
	}
}

func TestFromURI_RejectsOtherSchemes(t *testing.T) {
	for _, raw := range []string{"ftp://example.com/a.pdf", "file:///etc/hosts", "https://", "not a uri"} {
		_, err := FromURI(raw)
		assert.ErrorIs(t, err, ErrUnsupportedInput, raw)
	}
}

func TestNewSource_UnknownSchemeFallsBackToPath(t *testing.T) {
	_, err := NewSource("ftp://example.com/a.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSource_Name(t *testing.T) {
	src, err := FromURI("https://example.com/files/report.docx?sig=abc")
	require.NoError(t, err)
	assert.Equal(t, "report.docx", src.Name())

	src, err = FromURI("https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, src.Name())

	f, err := os.Open(filepath.Join(testDir, "sample.txt"))
	require.NoError(t, err)
	defer f.Close()
	src, err = FromStream(f)
	require.NoError(t, err)
	assert.Equal(t, "sample.txt", src.Name())

	src, err = FromStream(strings.NewReader("x"))
	require.NoError(t, err)
	assert.Empty(t, src.Name())
}

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := newError("extract", KindExtraction, "doc.pdf", cause)
	assert.Equal(t, "xtract extract: extraction failed (doc.pdf): boom", err.Error())
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrIO)
	assert.True(t, IsInvocationError(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}
