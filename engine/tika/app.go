// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package tika runs Apache Tika, either as a tika-app subprocess per request
// or through a running tika-server.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sassoftware/viya-doc-xtract/engine"
	"github.com/sassoftware/viya-doc-xtract/logger"
)

// AppConfig locates the tika-app jar and the JVM used to run it.
type AppConfig struct {
	Java     string   // binary name or absolute path; if empty -> "java"
	Jar      string   // path to tika-app-x.y.jar
	JavaOpts []string // extra JVM flags, e.g. -Xmx1g
	// SpoolAbove is the size beyond which in-memory content is written to a
	// temp file and passed by path instead of stdin; 0 -> 4 MiB.
	SpoolAbove int64
}

const defaultSpoolAbove = 4 << 20

// App invokes the tika-app jar once per extraction.
type App struct {
	cfg    AppConfig
	runner Runner
}

var (
	_ engine.Engine   = (*App)(nil)
	_ engine.Verifier = (*App)(nil)
)

func NewApp(cfg AppConfig) *App {
	return NewAppWithRunner(cfg, execRunner{})
}

// NewAppWithRunner is NewApp with a custom command runner.
func NewAppWithRunner(cfg AppConfig, r Runner) *App {
	if cfg.Java == "" {
		cfg.Java = "java"
	}
	if cfg.SpoolAbove <= 0 {
		cfg.SpoolAbove = defaultSpoolAbove
	}
	if r == nil {
		r = execRunner{}
	}
	return &App{cfg: cfg, runner: r}
}

func (a *App) Name() string { return "tika" }

func (a *App) Supports(kind engine.Kind) bool {
	switch kind {
	case engine.Text, engine.HTML, engine.Metadata:
		return true
	}
	return false
}

// Verify checks that the JVM is on PATH and the jar exists.
func (a *App) Verify(ctx context.Context) error {
	if _, err := exec.LookPath(a.cfg.Java); err != nil {
		return fmt.Errorf("tika: java binary %q not found: %w", a.cfg.Java, err)
	}
	if a.cfg.Jar == "" {
		return fmt.Errorf("tika: jar path not configured")
	}
	fi, err := os.Stat(a.cfg.Jar)
	if err != nil {
		return fmt.Errorf("tika: jar %q: %w", a.cfg.Jar, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("tika: jar %q is a directory", a.cfg.Jar)
	}
	logger.Debug(fmt.Sprintf("tika-app verified: java=%s jar=%s", a.cfg.Java, a.cfg.Jar), true)
	return nil
}

func (a *App) Extract(ctx context.Context, req *engine.Request) (*engine.Result, error) {
	args, err := a.args(req.Kind)
	if err != nil {
		return nil, err
	}

	var stdin io.Reader
	switch {
	case req.Path != "":
		args = append(args, req.Path)
	case len(req.Data) == 0:
		return nil, engine.ErrEmptyDocument
	case int64(len(req.Data)) > a.cfg.SpoolAbove:
		path, cleanup, err := engine.Materialize(req)
		if err != nil {
			return nil, fmt.Errorf("tika-app: %w", err)
		}
		defer cleanup()
		logger.Debug(fmt.Sprintf("tika-app: spooled %d bytes to %s", len(req.Data), path), true)
		args = append(args, path)
	default:
		stdin = bytes.NewReader(req.Data)
	}

	stdout, stderr, err := a.runner.Run(ctx, stdin, a.cfg.Java, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return nil, fmt.Errorf("tika-app %s: %w: %s", req.Kind, err, truncate(msg, 512))
		}
		return nil, fmt.Errorf("tika-app %s: %w", req.Kind, err)
	}

	if req.Kind == engine.Metadata {
		md, err := parseMetadataJSON(stdout)
		if err != nil {
			return nil, fmt.Errorf("tika-app metadata: %w", err)
		}
		return &engine.Result{Metadata: md}, nil
	}
	return &engine.Result{Text: string(stdout)}, nil
}

func (a *App) args(kind engine.Kind) ([]string, error) {
	args := []string{"-Djava.awt.headless=true"}
	args = append(args, a.cfg.JavaOpts...)
	args = append(args, "-jar", a.cfg.Jar)

	switch kind {
	case engine.Text:
		args = append(args, "--text", "--encoding=UTF-8")
	case engine.HTML:
		args = append(args, "--html", "--encoding=UTF-8")
	case engine.Metadata:
		args = append(args, "--json")
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnsupportedKind, kind)
	}
	return args, nil
}
