// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTPFetcher_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xtract-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithUserAgent("xtract-test"))
	got, err := f.Fetch(context.Background(), mustURL(t, srv.URL+"/doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(got.Data))
	assert.Equal(t, "application/pdf", got.ContentType)
}

func TestHTTPFetcher_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithRetries(3, time.Millisecond))
	got, err := f.Fetch(context.Background(), mustURL(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got.Data))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithRetries(2, time.Millisecond))
	_, err := f.Fetch(context.Background(), mustURL(t, srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(WithRetries(3, time.Millisecond)).Fetch(context.Background(), mustURL(t, srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(WithMaxBytes(10)).Fetch(context.Background(), mustURL(t, srv.URL))
	assert.ErrorIs(t, err, ErrTooLarge)

	got, err := NewHTTPFetcher(WithMaxBytes(100)).Fetch(context.Background(), mustURL(t, srv.URL))
	require.NoError(t, err)
	assert.Len(t, got.Data, 100)
}

func TestHTTPFetcher_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPFetcher(WithRetries(5, time.Hour)).Fetch(ctx, mustURL(t, srv.URL))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Zero(t, retryAfter(""))
	assert.Zero(t, retryAfter("soon"))
}

func TestMultiFetcher_UnknownScheme(t *testing.T) {
	_, err := MultiFetcher{}.Fetch(context.Background(), mustURL(t, "s3://bucket/key"))
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

type fakeDownloader struct {
	body  []byte
	err   error
	input *s3.GetObjectInput
}

func (d *fakeDownloader) Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error) {
	d.input = input
	if d.err != nil {
		return 0, d.err
	}
	n, err := w.WriteAt(d.body, 0)
	return int64(n), err
}

func TestS3Fetcher(t *testing.T) {
	d := &fakeDownloader{body: []byte("object body")}
	f := &S3Fetcher{downloader: d}

	got, err := f.Fetch(context.Background(), mustURL(t, "s3://reports/2024/q1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "object body", string(got.Data))
	assert.Equal(t, "reports", aws.ToString(d.input.Bucket))
	assert.Equal(t, "2024/q1.pdf", aws.ToString(d.input.Key))
}

func TestS3Fetcher_Errors(t *testing.T) {
	f := &S3Fetcher{downloader: &fakeDownloader{err: errors.New("access denied")}}
	_, err := f.Fetch(context.Background(), mustURL(t, "s3://bucket/key"))
	assert.ErrorContains(t, err, "access denied")

	_, err = f.Fetch(context.Background(), mustURL(t, "s3://bucket"))
	assert.ErrorContains(t, err, "bucket and key")

	f = &S3Fetcher{downloader: &fakeDownloader{body: make([]byte, 20)}, maxBytes: 10}
	_, err = f.Fetch(context.Background(), mustURL(t, "s3://bucket/key"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestNewS3Fetcher_StaticCredentials(t *testing.T) {
	f, err := NewS3Fetcher(context.Background(), S3Config{
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	}, 0)
	require.NoError(t, err)
	assert.NotNil(t, f.downloader)
}
