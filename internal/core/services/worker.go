package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/ports/driving"
	"github.com/lifedex/lifedex/internal/logger"
)

// requestQueueSize bounds the fire-and-forget request queue. Requests
// beyond capacity are dropped; the periodic selection query picks the
// files up later.
const requestQueueSize = 256

// eventBufferSize bounds the outbound event channel. Events are
// fire-and-forget: a slow subscriber loses events rather than stalling
// the pipeline.
const eventBufferSize = 64

// digestRequest is one queued unit of work for the worker loop.
type digestRequest struct {
	path string
	opts domain.ProcessOptions

	// onlyIfEligible restricts processing to files that still have
	// runnable digest records. Set for unchanged-file notifications.
	onlyIfEligible bool
}

// Worker drives the digest pipeline: a single processing goroutine selects
// one file at a time, takes the file's lock, and delegates to the
// coordinator; a supervisor goroutine periodically repairs stale digests
// and stale locks. Failures back off exponentially, lock contention is a
// cheap skip, and shutdown is cooperative.
type Worker struct {
	cfg      domain.WorkerConfig
	coord    driving.Coordinator
	ingestor driving.Ingestor
	digests  driven.DigestStore
	locks    driven.LockStore

	requests chan digestRequest
	events   chan domain.Event

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

var _ driving.DigestWorker = (*Worker)(nil)

// NewWorker creates a digest worker. ingestor may be nil when no search
// indexes are configured.
func NewWorker(cfg domain.WorkerConfig, coord driving.Coordinator, ingestor driving.Ingestor, digests driven.DigestStore, locks driven.LockStore) *Worker {
	return &Worker{
		cfg:      cfg,
		coord:    coord,
		ingestor: ingestor,
		digests:  digests,
		locks:    locks,
		requests: make(chan digestRequest, requestQueueSize),
		events:   make(chan domain.Event, eventBufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Events returns the worker's lifecycle event channel.
func (w *Worker) Events() <-chan domain.Event {
	return w.events
}

// RequestDigest queues one file for processing. Non-blocking; the request
// is dropped when the queue is full, the periodic scan recovers it.
func (w *Worker) RequestDigest(path string, opts domain.ProcessOptions) {
	select {
	case w.requests <- digestRequest{path: path, opts: opts}:
	default:
		logger.Warn("digest request queue full, dropping %s", path)
	}
}

// OnFileChange feeds a file-discovery notification into the worker. New
// files get placeholders and a full run; changed files are reset and
// reprocessed; unchanged files are processed only if still eligible.
func (w *Worker) OnFileChange(path string, isNew, contentChanged bool) {
	req := digestRequest{path: path}
	switch {
	case isNew:
		// Fresh file, plain run.
	case contentChanged:
		req.opts.Reset = true
	default:
		req.onlyIfEligible = true
	}
	select {
	case w.requests <- req:
	default:
		logger.Warn("digest request queue full, dropping change for %s", path)
	}
}

// Start runs the worker until the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	defer close(w.done)

	// Let upstream storage connections settle before the first iteration.
	if !w.sleep(ctx, w.cfg.StartupDelay) {
		w.emit(domain.Event{Type: domain.EventShutdownComplete})
		return ctx.Err()
	}

	supervisorDone := make(chan struct{})
	go w.supervise(ctx, supervisorDone)

	w.emit(domain.Event{Type: domain.EventReady})
	logger.Info("digest worker started")

	failures := 0
	for {
		select {
		case <-ctx.Done():
			<-supervisorDone
			w.emit(domain.Event{Type: domain.EventShutdownComplete})
			return ctx.Err()
		case <-w.stop:
			<-supervisorDone
			w.emit(domain.Event{Type: domain.EventShutdownComplete})
			logger.Info("digest worker stopped")
			return nil
		default:
		}

		worked, err := w.iterate(ctx)
		switch {
		case err != nil:
			failures++
			delay := backoffDelay(w.cfg.BackoffBase, w.cfg.BackoffCap, failures)
			logger.Warn("digest iteration failed (consecutive %d, backing off %s): %v", failures, delay, err)
			w.sleep(ctx, delay)
		case worked:
			failures = 0
		default:
			failures = 0
			w.sleep(ctx, w.cfg.IdleSleep)
		}
	}
}

// Stop shuts the worker down, waiting up to the configured grace period
// for the in-flight iteration.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return fmt.Errorf("digest worker did not stop within %s", w.cfg.ShutdownGrace)
	}
}

// iterate picks one unit of work and processes it. It returns whether any
// file was attempted; an error triggers the caller's backoff.
func (w *Worker) iterate(ctx context.Context) (bool, error) {
	var req digestRequest
	select {
	case req = <-w.requests:
		if req.onlyIfEligible {
			eligible, err := w.isEligible(ctx, req.path)
			if err != nil {
				return true, err
			}
			if !eligible {
				return false, nil
			}
		}
		if req.opts.Reset {
			if err := w.digests.ResetForPath(ctx, req.path); err != nil {
				return true, fmt.Errorf("resetting digests for %s: %w", req.path, err)
			}
		}
	default:
		paths, err := w.digests.FilesNeedingDigestion(ctx, 1)
		if err != nil {
			return true, fmt.Errorf("selecting files needing digestion: %w", err)
		}
		if len(paths) == 0 {
			return false, nil
		}
		req.path = paths[0]
	}

	return w.processOne(ctx, req.path, req.opts)
}

// processOne runs the coordinator for one file under the file's lock.
// A held lock is a deferred iteration, not an error: it reports no work
// done so the loop idles instead of immediately re-selecting the same
// locked file.
func (w *Worker) processOne(ctx context.Context, path string, opts domain.ProcessOptions) (bool, error) {
	if err := w.locks.Acquire(ctx, path); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			logger.Debug("lock held for %s, deferring", path)
			return false, nil
		}
		return true, fmt.Errorf("acquiring lock for %s: %w", path, err)
	}
	defer func() {
		if err := w.locks.Release(ctx, path); err != nil {
			logger.Error("releasing lock for %s: %v", path, err)
		}
	}()

	w.emit(domain.Event{Type: domain.EventDigestStarted, FilePath: path})
	logger.Debug("digesting %s", path)

	success, err := w.coord.ProcessFile(ctx, path, opts)
	if err != nil {
		w.emit(domain.Event{Type: domain.EventDigestComplete, FilePath: path, Success: false})
		return true, fmt.Errorf("processing %s: %w", path, err)
	}

	if success && w.ingestor != nil {
		if err := w.ingestor.IngestFile(ctx, path); err != nil {
			w.emit(domain.Event{Type: domain.EventDigestComplete, FilePath: path, Success: false})
			return true, fmt.Errorf("ingesting %s: %w", path, err)
		}
	}

	w.emit(domain.Event{Type: domain.EventDigestComplete, FilePath: path, Success: success})
	if !success {
		return true, fmt.Errorf("digesters failed for %s", path)
	}
	return true, nil
}

// isEligible reports whether a file still has runnable digest records.
func (w *Worker) isEligible(ctx context.Context, path string) (bool, error) {
	records, err := w.digests.ListForPath(ctx, path)
	if err != nil {
		return false, fmt.Errorf("listing digests for %s: %w", path, err)
	}
	for _, rec := range records {
		if rec.Status == domain.DigestPending {
			return true, nil
		}
		if rec.Status == domain.DigestFailed && rec.Attempts < domain.MaxDigestAttempts {
			return true, nil
		}
	}
	return false, nil
}

// supervise periodically repairs state left behind by crashes: in-progress
// digests that stopped updating, and locks whose holder is gone. The two
// thresholds are tuned independently.
func (w *Worker) supervise(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			now := time.Now()
			if n, err := w.digests.ResetStaleInProgress(ctx, now.Add(-w.cfg.StaleDigestAfter)); err != nil {
				logger.Error("stale digest sweep: %v", err)
			} else if n > 0 {
				logger.Info("stale digest sweep reset %d records", n)
			}
			if n, err := w.locks.CleanupStale(ctx, now.Add(-w.cfg.StaleLockAfter)); err != nil {
				logger.Error("stale lock cleanup: %v", err)
			} else if n > 0 {
				logger.Info("stale lock cleanup cleared %d locks", n)
			}
		}
	}
}

// emit delivers an event without blocking. Subscribers that fall behind
// lose events.
func (w *Worker) emit(ev domain.Event) {
	select {
	case w.events <- ev:
	default:
	}
}

// sleep waits for d, returning false when interrupted by shutdown.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stop:
		return false
	}
}

// backoffDelay returns min(base * 2^(failures-1), cap) for failures >= 1.
func backoffDelay(base, ceiling time.Duration, failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
