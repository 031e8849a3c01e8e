// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

// Fetched is the body of a remote resource.
type Fetched struct {
	Data        []byte
	ContentType string // as reported by the remote side, may be empty
}

// Fetcher retrieves the bytes behind a URI.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*Fetched, error)
}

var (
	ErrTooLarge          = errors.New("document exceeds size limit")
	ErrUnsupportedScheme = errors.New("no fetcher for URI scheme")
)

// MultiFetcher dispatches on the URI scheme.
type MultiFetcher map[string]Fetcher

func (m MultiFetcher) Fetch(ctx context.Context, u *url.URL) (*Fetched, error) {
	f, ok := m[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, u)
}

// HTTPFetcher GETs http and https URIs, retrying transient failures.
type HTTPFetcher struct {
	client     *http.Client
	maxBytes   int64
	maxRetries int
	baseDelay  time.Duration
	userAgent  string
}

type HTTPOption func(*HTTPFetcher)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithMaxBytes caps the response body; 0 means unlimited.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

func WithRetries(max int, baseDelay time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxRetries = max
		f.baseDelay = baseDelay
	}
}

func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     newHTTPClient(60 * time.Second),
		maxRetries: 2,
		baseDelay:  time.Second,
		userAgent:  "viya-doc-xtract",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*Fetched, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			data, err := readLimited(resp.Body, f.maxBytes)
			if err != nil {
				return nil, err
			}
			logger.Debug(fmt.Sprintf("fetched uri=%s bytes=%d", u.Redacted(), len(data)), true)
			return &Fetched{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		if !retryableStatus(resp.StatusCode) || attempt >= f.maxRetries {
			return nil, fmt.Errorf("GET %s: HTTP %d", u.Redacted(), resp.StatusCode)
		}

		delay := retryAfter(resp.Header.Get("Retry-After"))
		if delay <= 0 {
			delay = time.Duration(math.Pow(2, float64(attempt))) * f.baseDelay
		}
		logger.Debug(fmt.Sprintf("fetch retry: uri=%s status=%d delay=%v attempt=%d/%d", u.Redacted(), resp.StatusCode, delay, attempt+1, f.maxRetries), true)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// S3Config configures access to s3:// URIs. Empty credentials fall back to
// the default AWS credential chain.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type s3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// S3Fetcher downloads s3://bucket/key objects.
type S3Fetcher struct {
	downloader s3Downloader
	maxBytes   int64
}

func NewS3Fetcher(ctx context.Context, cfg S3Config, maxBytes int64) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Fetcher{downloader: manager.NewDownloader(client), maxBytes: maxBytes}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, u *url.URL) (*Fetched, error) {
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 uri %q must name a bucket and key", u.String())
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, f.maxBytes)
	}
	logger.Debug(fmt.Sprintf("fetched s3 bucket=%s key=%s bytes=%d", bucket, key, n), true)
	return &Fetched{Data: buf.Bytes()[:n]}, nil
}
