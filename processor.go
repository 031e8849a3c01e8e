// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sassoftware/viya-doc-xtract/engine"
	docconvengine "github.com/sassoftware/viya-doc-xtract/engine/docconv"
	"github.com/sassoftware/viya-doc-xtract/engine/native"
	"github.com/sassoftware/viya-doc-xtract/engine/tika"
	"github.com/sassoftware/viya-doc-xtract/logger"
	"github.com/sassoftware/viya-doc-xtract/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Kind selects the projection returned by Read.
type Kind = engine.Kind

const (
	Text     = engine.Text
	HTML     = engine.HTML
	Metadata = engine.Metadata
	// MimeType is derived from the Content-Type metadata field.
	MimeType Kind = "mimetype"
)

// ParseKind accepts text, html, metadata and mimetype.
func ParseKind(s string) (Kind, error) {
	if k, err := engine.ParseKind(s); err == nil {
		return k, nil
	}
	if Kind(s) == MimeType {
		return MimeType, nil
	}
	return "", fmt.Errorf("unknown output kind %q", s)
}

var ErrEngineUnavailable = errors.New("extraction engine unavailable")

// sniffLen is how much of a document is inspected for content detection.
const sniffLen = 3072

// Result holds the projection requested from Read.
type Result struct {
	Kind     Kind
	Text     string
	Metadata MetadataMap
	MimeType string
}

// MetadataMap is flat document metadata. Multi-valued fields are joined
// with ", ". Content-Type is always present.
type MetadataMap map[string]string

func (m MetadataMap) ContentType() string {
	return m["Content-Type"]
}

// Processor resolves sources and runs them through one engine with bounded
// concurrency. It is safe for concurrent use.
type Processor struct {
	cfg     *Config
	engine  engine.Engine
	fetcher Fetcher
	sem     *semaphore.Weighted
	metrics metrics.Recorder
}

// NewProcessor validates cfg, builds the configured engine and verifies its
// runtime dependencies.
func NewProcessor(cfg *Config) (*Processor, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch {
	case cfg.Logger != nil:
		logger.SetLogger(cfg.Logger)
	case cfg.DebugOn:
		logger.SetLogger(logger.FromSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if v, ok := eng.(engine.Verifier); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := v.Verify(ctx); err != nil {
			logger.Error(fmt.Sprintf("engine verification failed: engine=%s err=%v", eng.Name(), err))
			return nil, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, eng.Name(), err)
		}
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = newDefaultFetcher(cfg)
	}

	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	logger.Debug(fmt.Sprintf("Processor initialized: engine=%s max_concurrent_extractions=%d timeout=%v",
		eng.Name(), cfg.MaxConcurrentExtractions, cfg.Timeout), true)

	return &Processor{
		cfg:     cfg,
		engine:  eng,
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentExtractions)),
		metrics: rec,
	}, nil
}

// MustNewProcessor is like NewProcessor but panics on error.
func MustNewProcessor(cfg *Config) *Processor {
	p, err := NewProcessor(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func newEngine(cfg *Config) (engine.Engine, error) {
	if cfg.Backend != nil {
		return cfg.Backend, nil
	}
	switch cfg.Engine {
	case EngineTika:
		return tika.NewApp(tika.AppConfig{
			Java:       cfg.Tika.Java,
			Jar:        cfg.Tika.Jar,
			JavaOpts:   cfg.Tika.JavaOpts,
			SpoolAbove: cfg.Tika.SpoolAbove,
		}), nil
	case EngineTikaServer:
		return tika.NewServer(tika.ServerConfig{
			URL:        cfg.Tika.ServerURL,
			Timeout:    cfg.Tika.ServerTimeout,
			MaxRetries: cfg.Tika.ServerRetries,
		}), nil
	case EngineDocconv:
		return docconvengine.New(cfg.UseReadability), nil
	case EngineNative:
		return native.New(), nil
	}
	return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
}

func newDefaultFetcher(cfg *Config) Fetcher {
	httpFetcher := NewHTTPFetcher(
		WithHTTPClient(newHTTPClient(cfg.Fetch.Timeout)),
		WithMaxBytes(cfg.MaxDocumentBytes),
		WithRetries(cfg.Fetch.MaxRetries, cfg.Fetch.BaseDelay),
		WithUserAgent(cfg.Fetch.UserAgent),
	)
	m := MultiFetcher{"http": httpFetcher, "https": httpFetcher}

	s3Fetcher, err := NewS3Fetcher(context.Background(), cfg.S3, cfg.MaxDocumentBytes)
	if err != nil {
		logger.Info("s3 fetcher disabled", "err", err)
		return m
	}
	m["s3"] = s3Fetcher
	return m
}

// Engine returns the name of the engine in use.
func (p *Processor) Engine() string {
	return p.engine.Name()
}

// Open classifies input and returns a Document bound to this processor.
func (p *Processor) Open(input any) (*Document, error) {
	src, err := NewSource(input)
	if err != nil {
		return nil, err
	}
	return p.OpenSource(src), nil
}

func (p *Processor) OpenSource(src Source) *Document {
	return &Document{src: src, p: p}
}

// Read is the one-shot form of Open followed by the accessor for kind.
func (p *Processor) Read(ctx context.Context, kind Kind, input any) (*Result, error) {
	doc, err := p.Open(input)
	if err != nil {
		return nil, err
	}
	return doc.read(ctx, kind)
}

func (p *Processor) ReadText(ctx context.Context, input any) (string, error) {
	res, err := p.Read(ctx, Text, input)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (p *Processor) ReadMetadata(ctx context.Context, input any) (MetadataMap, error) {
	res, err := p.Read(ctx, Metadata, input)
	if err != nil {
		return nil, err
	}
	return res.Metadata, nil
}

// BatchResult pairs one ReadBatch input with its outcome.
type BatchResult struct {
	Input  any
	Result *Result
	Err    error
}

// ReadBatch reads every input concurrently. Failures are reported per item
// and do not stop the batch; results keep the order of inputs.
func (p *Processor) ReadBatch(ctx context.Context, kind Kind, inputs []any) []BatchResult {
	out := make([]BatchResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrentExtractions)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := p.Read(ctx, kind, in)
			out[i] = BatchResult{Input: in, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// content is what an engine invocation needs besides the kind.
type content struct {
	path        string
	data        []byte
	name        string
	contentType string
}

func (p *Processor) extract(ctx context.Context, src Source, kind Kind, load func(context.Context) (*content, error)) (*Result, error) {
	id := uuid.NewString()
	start := time.Now()
	logger.Debug(fmt.Sprintf("Invocation validated: id=%s source=%s kind=%s engine=%s", id, src.Kind(), kind, p.engine.Name()), true)

	res, err := p.invoke(ctx, id, src, kind, load)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		logger.Debug(fmt.Sprintf("Invocation failed: id=%s err=%v", id, err), true)
	} else {
		logger.Debug(fmt.Sprintf("Invocation succeeded: id=%s duration=%v", id, time.Since(start)), true)
	}
	p.metrics.ObserveExtraction(p.engine.Name(), string(kind), src.Kind().String(), outcome, time.Since(start))
	return res, err
}

func (p *Processor) invoke(ctx context.Context, id string, src Source, kind Kind, load func(context.Context) (*content, error)) (*Result, error) {
	engineKind := kind
	if kind == MimeType {
		engineKind = engine.Metadata
	}
	if !p.engine.Supports(engineKind) {
		return nil, newError("extract", KindExtraction, src.String(),
			fmt.Errorf("%w: %s does not produce %s", engine.ErrUnsupportedKind, p.engine.Name(), engineKind))
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	c, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.acquireSlot(ctx); err != nil {
		return nil, newError("extract", KindIO, src.String(), err)
	}
	defer p.sem.Release(1)

	logger.Debug(fmt.Sprintf("Invoking engine: id=%s engine=%s content_type=%s", id, p.engine.Name(), c.contentType), true)
	out, err := p.engine.Extract(ctx, &engine.Request{
		Kind:        engineKind,
		Path:        c.path,
		Data:        c.data,
		Name:        c.name,
		ContentType: c.contentType,
	})
	if err != nil {
		return nil, newError("extract", KindExtraction, src.String(), err)
	}

	return normalize(kind, out, c.contentType), nil
}

func normalize(kind Kind, out *engine.Result, sniffed string) *Result {
	res := &Result{Kind: kind}
	switch kind {
	case Text, HTML:
		res.Text = out.Text
		return res
	}

	md := MetadataMap{}
	for k, v := range out.Metadata {
		md[k] = v
	}
	if md["Content-Type"] == "" {
		md["Content-Type"] = sniffed
	}
	res.Metadata = md
	if kind == MimeType {
		res.MimeType = BaseContentType(md["Content-Type"])
	}
	return res
}

func (p *Processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

func pathContent(src Source) *content {
	var head []byte
	if f, err := os.Open(src.Path()); err == nil {
		buf := make([]byte, sniffLen)
		n, _ := io.ReadFull(f, buf)
		head = buf[:n]
		f.Close()
	}
	return &content{path: src.Path(), name: src.Name(), contentType: DetectContentType(src.Name(), head)}
}

func (p *Processor) fetch(ctx context.Context, src Source) ([]byte, string, error) {
	f, err := p.fetcher.Fetch(ctx, src.uri)
	if err != nil {
		return nil, "", newError("fetch", KindIO, src.URI(), err)
	}
	return f.Data, f.ContentType, nil
}

func (p *Processor) drain(src Source) ([]byte, error) {
	data, err := readLimited(src.stream, p.cfg.MaxDocumentBytes)
	if err != nil {
		return nil, newError("read", KindIO, src.String(), err)
	}
	return data, nil
}
