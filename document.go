// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"os"
	"sync"
)

// Document is a validated source bound to a Processor. URI and stream bytes
// are read on first use and reused by later calls on the same Document, so
// repeated accessor calls see the same content. Extraction itself is
// re-run on every call.
type Document struct {
	src Source
	p   *Processor

	mu          sync.Mutex
	loaded      bool
	data        []byte
	contentType string
	loadErr     error
}

func (d *Document) Source() Source { return d.src }
func (d *Document) IsPath() bool   { return d.src.IsPath() }
func (d *Document) IsURI() bool    { return d.src.IsURI() }
func (d *Document) IsStream() bool { return d.src.IsStream() }

func (d *Document) Text(ctx context.Context) (string, error) {
	res, err := d.read(ctx, Text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// HTML returns an XHTML rendering, for engines that produce one.
func (d *Document) HTML(ctx context.Context) (string, error) {
	res, err := d.read(ctx, HTML)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (d *Document) Metadata(ctx context.Context) (MetadataMap, error) {
	res, err := d.read(ctx, Metadata)
	if err != nil {
		return nil, err
	}
	return res.Metadata, nil
}

// MimeType returns the document content type without parameters.
func (d *Document) MimeType(ctx context.Context) (string, error) {
	res, err := d.read(ctx, MimeType)
	if err != nil {
		return "", err
	}
	return res.MimeType, nil
}

// Data returns the raw document bytes.
func (d *Document) Data(ctx context.Context) ([]byte, error) {
	if d.src.IsPath() {
		f, err := os.Open(d.src.Path())
		if err != nil {
			return nil, newError("read", KindIO, d.src.Path(), err)
		}
		defer f.Close()
		data, err := readLimited(f, d.p.cfg.MaxDocumentBytes)
		if err != nil {
			return nil, newError("read", KindIO, d.src.Path(), err)
		}
		return data, nil
	}
	c, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.data, nil
}

func (d *Document) read(ctx context.Context, kind Kind) (*Result, error) {
	return d.p.extract(ctx, d.src, kind, d.load)
}

func (d *Document) load(ctx context.Context) (*content, error) {
	if d.src.IsPath() {
		return pathContent(d.src), nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		d.fill(ctx)
	}
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	return &content{data: d.data, name: d.src.Name(), contentType: d.contentType}, nil
}

// fill reads the source bytes. A failed fetch may be retried by a later
// call; a failed stream read is final since the stream is partly consumed.
func (d *Document) fill(ctx context.Context) {
	var (
		data     []byte
		reported string
		err      error
	)
	switch {
	case d.src.IsURI():
		data, reported, err = d.p.fetch(ctx, d.src)
		if err != nil {
			d.loadErr = err
			return
		}
	case d.src.IsStream():
		data, err = d.p.drain(d.src)
		if err != nil {
			d.loaded, d.loadErr = true, err
			return
		}
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	ct := DetectContentType(d.src.Name(), head)
	if r := BaseContentType(reported); r != "" && genericContentTypes[BaseContentType(ct)] && !genericContentTypes[r] {
		ct = reported
	}

	d.loaded, d.loadErr = true, nil
	d.data, d.contentType = data, ct
}
