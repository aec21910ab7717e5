// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/playkit/dtg/internal/dtgerr"
	"github.com/playkit/dtg/internal/item"
	"github.com/playkit/dtg/internal/log"
	"github.com/playkit/dtg/internal/metrics"
	"github.com/playkit/dtg/internal/ratelimit"
	"github.com/playkit/dtg/internal/resume"
	"github.com/playkit/dtg/internal/telemetry"
)

// runTask fetches one task to completion, retrying technical failures with
// doubling backoff up to cfg.RetryBudget. A non-retryable HTTP failure (any
// 4xx other than 408/429) is returned immediately without consuming the
// retry budget.
func (w *Worker) runTask(ctx context.Context, t item.Task) error {
	logger := log.WithComponent("worker").With().
		Str(log.FieldItemID, w.itemID).
		Str(log.FieldSourceURL, t.SourceURL).
		Logger()

	origin := ratelimit.OriginOf(t.SourceURL)
	breaker := w.deps.Breakers.For(origin)

	w.deps.Aggregator.TaskStarted(w.itemID, t)

	var lastErr error
	for attempt := 0; attempt <= w.cfg.RetryBudget; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !breaker.AllowRequest() {
			lastErr = fmt.Errorf("origin %s: %w", origin, errors.New("circuit open"))
			if attempt == w.cfg.RetryBudget {
				break
			}
			if err := w.sleepBackoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if err := w.deps.Limiter.Wait(ctx, origin); err != nil {
			return err
		}

		breaker.RecordAttempt()
		n, err := w.fetchOnce(ctx, t, attempt)
		if err == nil {
			breaker.RecordSuccess()
			metrics.TasksCompleted.WithLabelValues(string(t.Type)).Inc()
			metrics.BytesDownloaded.WithLabelValues(string(t.Type)).Add(float64(n))
			w.deps.Aggregator.TaskCompleted(w.itemID, t)
			_ = w.deps.Store.DeleteTask(ctx, w.itemID, t.SourceURL)
			if w.deps.Resume != nil {
				_ = w.deps.Resume.Delete(ctx, w.itemID, t.SourceURL)
			}
			return nil
		}

		if ctx.Err() != nil {
			w.surrenderResumeToken(t)
			return ctx.Err()
		}

		lastErr = err
		var httpErr *dtgerr.HTTPFailureError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			logger.Warn().Err(err).Msg("task failed terminally")
			metrics.TasksFailed.WithLabelValues(string(t.Type), "terminal").Inc()
			w.deps.Aggregator.TaskFailed(w.itemID, t, err)
			return &terminalTaskError{err: err}
		}

		breaker.RecordTechnicalFailure()
		metrics.RetryAttempts.WithLabelValues(string(t.Type)).Inc()
		if attempt == w.cfg.RetryBudget {
			break
		}
		logger.Debug().Err(err).Int(log.FieldAttempt, attempt).Msg("task fetch failed, retrying")
		if err := w.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}

	metrics.TasksFailed.WithLabelValues(string(t.Type), "retry_budget_exhausted").Inc()
	w.deps.Aggregator.TaskFailed(w.itemID, t, lastErr)
	return lastErr
}

// terminalTaskError marks a task failure as non-retryable (a definitive
// 4xx response, per spec section 4.6): worker.run uses errors.As to tell
// this apart from a retry-budget-exhausted error and escalates the item to
// failed rather than interrupted.
type terminalTaskError struct {
	err error
}

func (e *terminalTaskError) Error() string { return e.err.Error() }
func (e *terminalTaskError) Unwrap() error { return e.err }

func (w *Worker) sleepBackoff(ctx context.Context, attempt int) error {
	select {
	case <-time.After(backoffDuration(w.cfg.BackoffBase, w.cfg.BackoffMax, attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoffDuration doubles base once per attempt, capped at max.
func backoffDuration(base, max time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(uint64(1)<<uint(attempt))
	if d <= 0 || d > max {
		return max
	}
	return d
}

// surrenderResumeToken persists the partial file's current size so a future
// Start picks up from it instead of restarting the task from scratch. It
// writes to the primary store and, if configured, mirrors the same token
// into the auxiliary resume checkpoint log so the offset survives even a
// memory-backed store restart.
func (w *Worker) surrenderResumeToken(t item.Task) {
	fi, err := os.Stat(partPath(t))
	if err != nil {
		return
	}
	t.ResumeToken = []byte(strconv.FormatInt(fi.Size(), 10))
	_ = w.deps.Store.UpdateTask(context.Background(), t)
	if w.deps.Resume != nil {
		_ = w.deps.Resume.Put(context.Background(), w.itemID, t.SourceURL, resume.Checkpoint{
			Token:     t.ResumeToken,
			UpdatedAt: time.Now(),
		})
	}
}

func partPath(t item.Task) string {
	return t.Destination + ".part"
}

// fetchOnce issues one GET (range-resuming from any bytes already on disk
// for this task), streams the body to a partial file, and, once fully
// received, atomically moves it into place. It returns the number of bytes
// written to disk during this call, not the task's total size. A span
// covers the whole attempt, tagged with the item/task identity so a trace
// backend can group every segment fetch under the item that requested it.
func (w *Worker) fetchOnce(ctx context.Context, t item.Task, attempt int) (n int64, err error) {
	spanCtx, span := telemetry.Tracer("dtg.worker").Start(ctx, "fetchSegment",
		trace.WithAttributes(telemetry.ItemAttributes(w.itemID, t.SourceURL)...))
	ctx = spanCtx

	part := partPath(t)

	var offset int64
	if fi, statErr := os.Stat(part); statErr == nil {
		offset = fi.Size()
	}

	defer func() {
		span.SetAttributes(telemetry.TaskAttributes(string(t.Type), n, offset > 0, attempt)...)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	resp, err := w.deps.HTTP.GetRange(ctx, t.SourceURL, offset)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if offset > 0 && resp.StatusCode != http.StatusPartialContent {
		// Origin ignored the Range header; restart this task from scratch.
		offset = 0
		_ = os.Remove(part)
	}

	if err := os.MkdirAll(filepath.Dir(part), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: f, report: func(total int64) {
		w.deps.Aggregator.TaskProgress(w.itemID, t, offset+total)
	}}
	n, copyErr := io.Copy(cw, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return n, &dtgerr.NetworkTimeoutError{URL: t.SourceURL, Err: copyErr}
	}
	if closeErr != nil {
		return n, closeErr
	}

	if err := finalizeAtomic(part, t.Destination); err != nil {
		return n, err
	}
	return n, nil
}

// finalizeAtomic copies the fully-downloaded partial file into a renameio
// pending file and atomically replaces the destination with it, the same
// write-then-rename pattern the teacher's m3u/xmltv writers use.
func finalizeAtomic(partPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	in, err := os.Open(partPath)
	if err != nil {
		return err
	}
	defer in.Close()

	pf, err := renameio.NewPendingFile(destPath)
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", destPath, err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.Copy(pf, in); err != nil {
		return fmt.Errorf("copy partial content for %s: %w", destPath, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", destPath, err)
	}
	return os.Remove(partPath)
}

// countingWriter reports cumulative bytes written as it streams a response
// body to disk, so the aggregator can surface progress mid-task rather than
// only on completion.
type countingWriter struct {
	w      io.Writer
	n      int64
	report func(total int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.report != nil {
		c.report(c.n)
	}
	return n, err
}
