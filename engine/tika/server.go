// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

// ServerConfig points at a running tika-server.
type ServerConfig struct {
	URL        string        // e.g. http://localhost:9998
	Timeout    time.Duration // per request; 0 -> 2m
	MaxRetries int           // retries for 429/503
	BaseDelay  time.Duration // first backoff step; 0 -> 500ms
}

// Server talks to tika-server's REST API.
type Server struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
}

var (
	_ engine.Engine   = (*Server)(nil)
	_ engine.Verifier = (*Server)(nil)
)

type ServerOption func(*Server)

func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) {
		s.client = c
	}
}

func NewServer(cfg ServerConfig, opts ...ServerOption) *Server {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	s := &Server{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		client:     &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		baseDelay:  delay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return "tika-server" }

func (s *Server) Supports(kind engine.Kind) bool {
	switch kind {
	case engine.Text, engine.HTML, engine.Metadata:
		return true
	}
	return false
}

// Verify asks the server for its version.
func (s *Server) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/version", nil)
	if err != nil {
		return fmt.Errorf("tika-server: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tika-server unreachable at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika-server version check: HTTP %d", resp.StatusCode)
	}
	logger.Debug(fmt.Sprintf("tika-server verified: url=%s version=%s", s.baseURL, strings.TrimSpace(string(body))), true)
	return nil
}

func (s *Server) Extract(ctx context.Context, req *engine.Request) (*engine.Result, error) {
	var endpoint, accept string
	switch req.Kind {
	case engine.Text:
		endpoint, accept = "/tika", "text/plain"
	case engine.HTML:
		endpoint, accept = "/tika", "text/html"
	case engine.Metadata:
		endpoint, accept = "/meta", "application/json"
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnsupportedKind, req.Kind)
	}

	data, err := engine.ReadContent(req)
	if err != nil {
		return nil, fmt.Errorf("tika-server: read content: %w", err)
	}
	if len(data) == 0 {
		return nil, engine.ErrEmptyDocument
	}

	body, err := s.put(ctx, endpoint, accept, data, req)
	if err != nil {
		return nil, err
	}

	if req.Kind == engine.Metadata {
		md, err := parseMetadataJSON(body)
		if err != nil {
			return nil, fmt.Errorf("tika-server metadata: %w", err)
		}
		return &engine.Result{Metadata: md}, nil
	}
	return &engine.Result{Text: string(body)}, nil
}

func (s *Server) put(ctx context.Context, endpoint, accept string, data []byte, req *engine.Request) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("tika-server: %w", err)
		}
		httpReq.Header.Set("Accept", accept)
		if req.ContentType != "" {
			httpReq.Header.Set("Content-Type", req.ContentType)
		}
		if name := engine.FileName(req); name != "" {
			httpReq.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		}

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("tika-server %s: %w", endpoint, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, fmt.Errorf("tika-server %s: read body: %w", endpoint, readErr)
			}
			return body, nil
		}

		if !retryable(resp.StatusCode) || attempt >= s.maxRetries {
			return nil, fmt.Errorf("tika-server %s: HTTP %d: %s", endpoint, resp.StatusCode, truncate(strings.TrimSpace(string(body)), 512))
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * s.baseDelay
		logger.Debug(fmt.Sprintf("tika-server busy (HTTP %d), retrying in %v (attempt %d/%d)", resp.StatusCode, delay, attempt+1, s.maxRetries), true)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}
