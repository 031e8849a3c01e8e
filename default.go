// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadyInitialized = errors.New("default processor already initialized")

var (
	defaultMu   sync.Mutex
	defaultProc *Processor
)

// Init builds the process-wide processor used by the package-level
// functions. It may succeed only once; without it the first package-level
// call initializes from the environment (see LoadConfigFromEnv).
func Init(cfg *Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultProc != nil {
		return ErrAlreadyInitialized
	}
	p, err := NewProcessor(cfg)
	if err != nil {
		return err
	}
	defaultProc = p
	return nil
}

// Default returns the process-wide processor. A failed initialization is
// not remembered, so a later call (or Init) can still succeed.
func Default() (*Processor, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultProc != nil {
		return defaultProc, nil
	}
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	p, err := NewProcessor(cfg)
	if err != nil {
		return nil, err
	}
	defaultProc = p
	return p, nil
}

// New classifies input and binds it to the default processor.
func New(input any) (*Document, error) {
	src, err := NewSource(input)
	if err != nil {
		return nil, err
	}
	p, err := Default()
	if err != nil {
		return nil, err
	}
	return p.OpenSource(src), nil
}

// Read extracts kind from input in one call.
func Read(ctx context.Context, kind Kind, input any) (*Result, error) {
	doc, err := New(input)
	if err != nil {
		return nil, err
	}
	return doc.read(ctx, kind)
}

func ReadText(ctx context.Context, input any) (string, error) {
	doc, err := New(input)
	if err != nil {
		return "", err
	}
	return doc.Text(ctx)
}

func ReadMetadata(ctx context.Context, input any) (MetadataMap, error) {
	doc, err := New(input)
	if err != nil {
		return nil, err
	}
	return doc.Metadata(ctx)
}
