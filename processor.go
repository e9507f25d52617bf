// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sassoftware/viya-pdf-doc/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Inspector defines the contract for inspecting PDF files.
type Inspector interface {
	Inspect(ctx context.Context, path string) (*Summary, error)
	InspectAll(ctx context.Context, paths []string) ([]*Summary, error)
}

// Summary is the outcome of inspecting one document.
type Summary struct {
	Path     string         `json:"path"`
	Metadata MetadataFull   `json:"metadata"`
	Pages    []PageSummary  `json:"pages"`
	Outline  []OutlineEntry `json:"outline,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// PageSummary describes one page of the page tree.
type PageSummary struct {
	Number   int       `json:"number"`
	Object   uint32    `json:"object"`
	MediaBox []float64 `json:"media_box,omitempty"`
	CropBox  []float64 `json:"crop_box,omitempty"`
	Rotate   int       `json:"rotate"`
	Contents int       `json:"contents"`
	Fonts    []string  `json:"fonts,omitempty"`
}

// OutlineEntry is a flattened outline item.
type OutlineEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// PageStrategy decides what a page tree error does to the inspection.
// Different strategies handle errors differently (strict vs. best-effort).
type PageStrategy interface {
	CollectPages(ctx context.Context, d *Document) ([]PageSummary, error)
}

// StrictPages fails the inspection on the first page tree error.
type StrictPages struct{}

func (StrictPages) CollectPages(ctx context.Context, d *Document) ([]PageSummary, error) {
	var out []PageSummary
	for p, err := range d.Pages() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, summarizePage(len(out)+1, p))
	}
	return out, nil
}

// BestEffortPages keeps the pages read before an error.
type BestEffortPages struct{}

func (BestEffortPages) CollectPages(ctx context.Context, d *Document) ([]PageSummary, error) {
	var out []PageSummary
	for p, err := range d.Pages() {
		if err != nil {
			logger.Debug("BestEffortPages: page tree error, keeping pages read so far", "pages", len(out), "err", err, true)
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, summarizePage(len(out)+1, p))
	}
	return out, nil
}

func summarizePage(n int, p Page) PageSummary {
	return PageSummary{
		Number:   n,
		Object:   p.ID(),
		MediaBox: floats(p.MediaBox),
		CropBox:  floats(p.CropBox),
		Rotate:   p.Rotate,
		Contents: len(p.Contents),
		Fonts:    p.Fonts(),
	}
}

func floats(v Value) []float64 {
	if v.Kind() != Array {
		return nil
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.Index(i).Float64()
	}
	return out
}

func stderrLogger(level logger.LogLevel, msg string, keyvals ...interface{}) {
	if len(keyvals) == 0 {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s %v\n", level, msg, keyvals)
}

// Processor inspects documents with bounded concurrency and delegates page
// collection to the chosen PageStrategy.
type Processor struct {
	cfg   *Config
	sem   *semaphore.Weighted
	pages PageStrategy
}

// NewProcessor validates the config and creates a new processor.
func NewProcessor(cfg *Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.Logger != nil:
		logger.SetLogger(cfg.Logger)
	case cfg.DebugOn:
		logger.SetLogger(stderrLogger)
	}

	var pages PageStrategy = BestEffortPages{}
	if cfg.ParsingMode == Strict {
		pages = StrictPages{}
	}
	logger.Debug(fmt.Sprintf("Processor initialized: parsing_mode=%v, max_concurrent_docs=%d, fallback=%v",
		cfg.ParsingMode, cfg.MaxConcurrentDocs, cfg.Fallback), true)

	return &Processor{
		cfg:   cfg,
		sem:   semaphore.NewWeighted(int64(cfg.MaxConcurrentDocs)),
		pages: pages,
	}, nil
}

// Inspect opens path, trying the configured passwords, and summarizes its pages,
// outline and metadata. Each attempt is bounded by WorkerTimeout; timed out
// attempts are retried up to MaxRetries times.
func (p *Processor) Inspect(ctx context.Context, path string) (*Summary, error) {
	logger.Debug(fmt.Sprintf("Starting inspection: path=%s", path), true)
	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		var s *Summary
		s, err = p.inspectWithTimeout(ctx, path)
		if err == nil {
			logger.Debug(fmt.Sprintf("Inspection completed: path=%s pages=%d", path, len(s.Pages)), true)
			return s, nil
		}
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
		logger.Debug(fmt.Sprintf("Retrying inspection: attempt=%d err=%v", attempt, err), true)
	}
	return nil, err
}

type inspectResult struct {
	s   *Summary
	err error
}

// inspectWithTimeout runs one attempt. On timeout it still waits for the worker,
// which stops at its next context check, so the caller's slot covers the open file.
func (p *Processor) inspectWithTimeout(ctx context.Context, path string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.WorkerTimeout)
	defer cancel()
	done := make(chan inspectResult, 1)
	go func() {
		s, err := p.inspect(ctx, path)
		done <- inspectResult{s, err}
	}()
	select {
	case <-ctx.Done():
		<-done
		return nil, fmt.Errorf("inspect %s: %w", path, ctx.Err())
	case r := <-done:
		return r.s, r.err
	}
}

func (p *Processor) inspect(ctx context.Context, path string) (*Summary, error) {
	f, d, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.summarize(ctx, d, path)
}

// summarize collects pages, outline and metadata of d, checking ctx between steps.
func (p *Processor) summarize(ctx context.Context, d *Document, path string) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	var err error
	s := &Summary{Path: path}
	if s.Pages, err = p.pages.CollectPages(ctx, d); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	if items, err := d.Outlines(); err == nil {
		for it, err := range items {
			if err != nil {
				if p.cfg.ParsingMode == Strict {
					return nil, fmt.Errorf("inspect %s: %w", path, err)
				}
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("inspect %s: %w", path, err)
			}
			s.Outline = append(s.Outline, OutlineEntry{it.Level, it.Title})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	if s.Metadata, err = d.MetadataFull(); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	return s, nil
}

// open loads path and authenticates with Password, then with each of Passwords.
func (p *Processor) open(path string) (*os.File, *Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	d, err := Load(f, fi.Size(), p.cfg)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to load PDF: path=%s err=%v", path, err), true)
		f.Close()
		return nil, nil, err
	}
	candidates := append([]string{p.cfg.Password}, p.cfg.Passwords...)
	for i, pw := range candidates {
		err = d.Initialize(pw)
		if !errors.Is(err, ErrIncorrectPassword) {
			break
		}
		logger.Debug(fmt.Sprintf("Password rejected: path=%s candidate=%d", path, i), true)
	}
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, d, nil
}

// InspectAll inspects every path concurrently. In strict mode the first failure
// cancels the rest; otherwise failures are recorded in the summaries.
func (p *Processor) InspectAll(ctx context.Context, paths []string) ([]*Summary, error) {
	out := make([]*Summary, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			s, err := p.Inspect(gctx, path)
			if err != nil {
				if p.cfg.ParsingMode == Strict {
					return err
				}
				logger.Warn(fmt.Sprintf("inspect %s: %v", path, err), true)
				s = &Summary{Path: path, Error: err.Error()}
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

// Metadata prints PDF metadata as JSON to the provided writer
func (p *Processor) Metadata(ctx context.Context, path string, w io.Writer) error {
	logger.Debug(fmt.Sprintf("Reading metadata: path=%s", path), true)
	if err := p.acquireSlot(ctx); err != nil {
		return err
	}
	defer p.sem.Release(1)

	f, d, err := p.open(path)
	if err != nil {
		logger.Error("failed to open PDF for metadata")
		return err
	}
	defer f.Close()
	if err := d.MetadataJSON(w); err != nil {
		logger.Error("failed to read metadata")
		return err
	}
	return nil
}
