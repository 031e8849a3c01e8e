// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command docxtract prints the text, HTML, metadata or MIME type of
// documents given as paths, http(s)/s3 URIs, or "-" for standard input.
//
// Usage:
//
//	docxtract text report.pdf
//	docxtract metadata --json https://example.com/sample.docx
//	docxtract --engine tika --tika-jar /opt/tika-app.jar html notes.pages
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	xtract "github.com/sassoftware/viya-doc-xtract"
	"github.com/sassoftware/viya-doc-xtract/logger"
	"github.com/sassoftware/viya-doc-xtract/tracer"
)

// CLI defines the command-line interface.
type CLI struct {
	Text     TextCmd     `cmd:"" help:"Print plain text."`
	HTML     HTMLCmd     `cmd:"" name:"html" help:"Print an XHTML rendering."`
	Metadata MetadataCmd `cmd:"" help:"Print document metadata."`
	MimeType MimeTypeCmd `cmd:"" name:"mimetype" help:"Print the document MIME type."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config   string        `short:"c" help:"Path to YAML config file." type:"path"`
	Engine   string        `help:"Extraction engine (tika, tika-server, docconv, native)."`
	TikaJar  string        `name:"tika-jar" help:"Path to tika-app jar." type:"path"`
	TikaURL  string        `name:"tika-url" help:"Base URL of a running tika-server."`
	Timeout  time.Duration `help:"Per document timeout." default:"0s"`
	LogLevel string        `help:"Log level (debug, info, error)." default:"error" enum:"debug,info,error"`
	Trace    bool          `help:"Dump the debug trace to stderr on failure."`
}

type TextCmd struct {
	Inputs []string `arg:"" name:"input" help:"Paths, URIs or - for stdin."`
}

func (c *TextCmd) Run(cli *CLI) error { return cli.run(xtract.Text, c.Inputs, false) }

type HTMLCmd struct {
	Inputs []string `arg:"" name:"input" help:"Paths, URIs or - for stdin."`
}

func (c *HTMLCmd) Run(cli *CLI) error { return cli.run(xtract.HTML, c.Inputs, false) }

type MetadataCmd struct {
	Inputs []string `arg:"" name:"input" help:"Paths, URIs or - for stdin."`
	JSON   bool     `help:"Print metadata as JSON."`
}

func (c *MetadataCmd) Run(cli *CLI) error { return cli.run(xtract.Metadata, c.Inputs, c.JSON) }

type MimeTypeCmd struct {
	Inputs []string `arg:"" name:"input" help:"Paths, URIs or - for stdin."`
}

func (c *MimeTypeCmd) Run(cli *CLI) error { return cli.run(xtract.MimeType, c.Inputs, false) }

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("docxtract version %s\n", version)
	return nil
}

func (cli *CLI) config() (*xtract.Config, error) {
	var (
		cfg *xtract.Config
		err error
	)
	if cli.Config != "" {
		cfg, err = xtract.LoadConfigFile(cli.Config)
	} else {
		cfg, err = xtract.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if cli.TikaJar != "" {
		cfg.Tika.Jar = cli.TikaJar
		cfg.Engine = xtract.EngineTika
	}
	if cli.TikaURL != "" {
		cfg.Tika.ServerURL = cli.TikaURL
		cfg.Engine = xtract.EngineTikaServer
	}
	if cli.Engine != "" {
		cfg.Engine = xtract.EngineName(cli.Engine)
	}
	if cli.Timeout > 0 {
		cfg.Timeout = cli.Timeout
	}
	cfg.DebugOn = cli.LogLevel == "debug"
	cfg.Logger = logger.FromSlog(newSlog(cli.LogLevel))
	return cfg, nil
}

func newSlog(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	default:
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func (cli *CLI) run(kind xtract.Kind, inputs []string, asJSON bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.config()
	if err != nil {
		return err
	}
	proc, err := xtract.NewProcessor(cfg)
	if err != nil {
		return err
	}

	for _, in := range inputs {
		var input any = in
		if in == "-" {
			input = os.Stdin
		}
		res, err := proc.Read(ctx, kind, input)
		if err != nil {
			if cli.Trace {
				tracer.FlushTo(os.Stderr)
			}
			return err
		}
		if len(inputs) > 1 {
			fmt.Printf("==> %s <==\n", in)
		}
		if err := printResult(os.Stdout, res, asJSON); err != nil {
			return err
		}
	}
	return nil
}

func printResult(w io.Writer, res *xtract.Result, asJSON bool) error {
	switch res.Kind {
	case xtract.Metadata:
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Metadata)
		}
		keys := make([]string, 0, len(res.Metadata))
		for k := range res.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, res.Metadata[k]); err != nil {
				return err
			}
		}
		return nil
	case xtract.MimeType:
		_, err := fmt.Fprintln(w, res.MimeType)
		return err
	default:
		_, err := fmt.Fprintln(w, res.Text)
		return err
	}
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("docxtract"),
		kong.Description("Extract text and metadata from documents."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
