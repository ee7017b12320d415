// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads the PDFs referenced by listing entries into
// <out>/<category>/<year>/<title>.pdf. Entries are processed one at a time;
// a failed entry is logged and recorded, and processing moves on.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperdl/internal/httputil"
	"github.com/pdiddy/paperdl/internal/listing"
	"github.com/pdiddy/paperdl/pkg/types"
)

const (
	DefaultOutDir    = "downloads"
	DefaultChunkSize = 8192
)

// Summary holds the outcome of a run.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []types.Failure
}

// Total returns the number of entries that reached a terminal outcome.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

// HasFailures reports whether any entry failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) add(r types.Result) {
	switch r.Outcome {
	case types.OutcomeSkipped:
		s.Skipped++
	case types.OutcomeSucceeded:
		s.Succeeded++
	case types.OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, types.Failure{Entry: r.Entry, Path: r.Path, Err: r.Err})
	}
}

// Materializer turns entries into files on disk.
type Materializer struct {
	client   *http.Client
	cfg      types.FetchConfig
	observer Observer
	logger   *zap.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithObserver registers o to receive state transitions. Passing several
// observers through Observers fans events out to each.
func WithObserver(o Observer) Option {
	return func(m *Materializer) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Materializer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Materializer that fetches with client. Zero values in cfg
// take the package defaults.
func New(client *http.Client, cfg types.FetchConfig, opts ...Option) *Materializer {
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httputil.DefaultTimeout
	}
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	m := &Materializer{
		client:   client,
		cfg:      cfg,
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OutDir returns the root of the output tree.
func (m *Materializer) OutDir() string {
	return m.cfg.OutDir
}

// TargetPath returns <root>/<category>/<year>/<slug(title)>.pdf. It depends
// only on its arguments.
func TargetPath(root string, e types.Entry) string {
	return filepath.Join(root, e.Category, e.Year, listing.Slug(e.Title)+".pdf")
}

// Plan returns the target path for e and whether a file is already there.
// It touches neither the network nor the filesystem beyond a stat.
func (m *Materializer) Plan(e types.Entry) (path string, exists bool) {
	path = TargetPath(m.cfg.OutDir, e)
	_, err := os.Stat(path)
	return path, err == nil
}

// Materialize ensures the PDF for e exists on disk. An existing file is
// reported as skipped without any network access. Every error is captured
// in the returned Result; Materialize never panics on I/O failures.
func (m *Materializer) Materialize(ctx context.Context, e types.Entry) types.Result {
	path := TargetPath(m.cfg.OutDir, e)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m.finish(m.failed(e, path, fmt.Errorf("%w: creating directory %s: %w", ErrFilesystem, dir, err)))
	}

	switch _, err := os.Stat(path); {
	case err == nil:
		m.logger.Debug("already downloaded", zap.String("path", path))
		return m.finish(types.Result{Entry: e, Path: path, Outcome: types.OutcomeSkipped})
	case !errors.Is(err, os.ErrNotExist):
		return m.finish(m.failed(e, path, fmt.Errorf("%w: checking %s: %w", ErrFilesystem, path, err)))
	}

	m.observer.Started(e, path)

	n, err := m.download(ctx, e, path)
	if err != nil {
		r := m.failed(e, path, err)
		if ctx.Err() != nil {
			// Interrupted, not failed: observers never see it.
			return r
		}
		return m.finish(r)
	}

	m.logger.Debug("downloaded",
		zap.String("path", path),
		zap.String("url", e.URL),
		zap.Int64("bytes", n),
	)
	return m.finish(types.Result{Entry: e, Path: path, Outcome: types.OutcomeSucceeded, Bytes: n})
}

// Run materializes each entry of seq in order and returns the summary. A
// failed entry never stops the run. Run returns early with the partial
// summary when seq yields a read error or ctx is cancelled; an entry cut
// short by cancellation is not counted.
func (m *Materializer) Run(ctx context.Context, seq iter.Seq2[types.Entry, error]) (Summary, error) {
	var s Summary
	for e, err := range seq {
		if err != nil {
			return s, err
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}

		r := m.Materialize(ctx, e)
		if r.Outcome == types.OutcomeFailed && ctx.Err() != nil {
			return s, ctx.Err()
		}
		s.add(r)
	}
	return s, nil
}

func (m *Materializer) finish(r types.Result) types.Result {
	m.observer.Finished(r)
	return r
}

// failed builds a failed Result and logs it with enough context to find
// the entry in the listing.
func (m *Materializer) failed(e types.Entry, path string, err error) types.Result {
	fields := []zap.Field{
		zap.Int("line", e.Line),
		zap.String("category", e.Category),
		zap.String("title", e.Title),
		zap.String("url", e.URL),
		zap.Error(err),
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Warn("download interrupted", fields...)
	} else {
		m.logger.Error("download failed", fields...)
	}
	return types.Result{Entry: e, Path: path, Outcome: types.OutcomeFailed, Err: err}
}

// download streams e.URL to a temporary file next to path and renames it
// into place on success. The temporary file is removed on any error, so a
// failed or interrupted download never leaves a file at path.
//
// One idle timer bounds the whole exchange: it covers connect through the
// first body bytes and is re-armed after every read, so a server that goes
// silent fails with ErrStalled while a slow but steady body still completes.
func (m *Materializer) download(ctx context.Context, e types.Entry, path string) (int64, error) {
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(m.cfg.Timeout, func() { cancel(ErrStalled) })
	defer idle.Stop()

	n, err := m.fetch(reqCtx, e, path, func() { idle.Reset(m.cfg.Timeout) })
	if err != nil && ctx.Err() == nil && errors.Is(context.Cause(reqCtx), ErrStalled) {
		return n, fmt.Errorf("%w: %s: %w", ErrNetwork, e.URL, ErrStalled)
	}
	return n, err
}

func (m *Materializer) fetch(ctx context.Context, e types.Entry, path string, touch func()) (int64, error) {
	resp, err := httputil.Get(ctx, m.client, e.URL, m.cfg.UserAgent)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".paperdl-*.part")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file: %w", ErrFilesystem, err)
	}
	tmpPath := tmp.Name()

	n, copyErr := m.stream(ctx, e, tmp, resp.Body, resp.ContentLength, touch)
	closeErr := tmp.Close()
	if copyErr != nil {
		m.removeQuietly(tmpPath)
		return n, copyErr
	}
	if closeErr != nil {
		m.removeQuietly(tmpPath)
		return n, fmt.Errorf("%w: closing temp file: %w", ErrFilesystem, closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		m.removeQuietly(tmpPath)
		return n, fmt.Errorf("%w: renaming temp file: %w", ErrFilesystem, err)
	}
	return n, nil
}

// stream copies body to dst in ChunkSize pieces, reporting progress after
// every chunk and calling touch after every read that returned data. Memory
// use is one chunk regardless of body size.
func (m *Materializer) stream(ctx context.Context, e types.Entry, dst io.Writer, body io.Reader, total int64, touch func()) (int64, error) {
	buf := make([]byte, m.cfg.ChunkSize)
	var written int64
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			touch()
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("%w: writing download: %w", ErrFilesystem, werr)
			}
			if nw != nr {
				return written, fmt.Errorf("%w: writing download: %w", ErrFilesystem, io.ErrShortWrite)
			}
			m.observer.Progress(e, written, total)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, fmt.Errorf("reading body: %w", ctxErr)
			}
			return written, fmt.Errorf("%w: reading body: %w", ErrNetwork, rerr)
		}
	}
}

func (m *Materializer) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("could not remove partial download", zap.String("path", path), zap.Error(err))
	}
}
