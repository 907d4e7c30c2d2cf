package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/ports/driving"
	"github.com/lifedex/lifedex/internal/digesters"
	"github.com/lifedex/lifedex/internal/logger"
)

// cascadingResets maps a digester to the downstream digesters whose output
// becomes stale when it completes with new content. Only terminal records
// are reset; pending and in-progress work is left alone.
var cascadingResets = map[string][]string{
	digesters.DigesterURLCrawl:          {digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterDocToMarkdown:     {digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterImageOCR:          {digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterImageCaption:      {digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterImageObjects:      {digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterSpeechTranscript:  {digesters.DigesterTranscriptCleanup, digesters.DigesterSummary, digesters.DigesterTags},
	digesters.DigesterTranscriptCleanup: {digesters.DigesterSummary, digesters.DigesterTags},
}

// Coordinator routes one file through the registered digesters. It owns the
// digest record lifecycle; mutual exclusion and scheduling are the worker's
// concern.
type Coordinator struct {
	registry *digesters.Registry
	files    driven.FileStore
	digests  driven.DigestStore
}

var _ driving.Coordinator = (*Coordinator)(nil)

// NewCoordinator creates a coordinator over the given registry and stores.
func NewCoordinator(registry *digesters.Registry, files driven.FileStore, digests driven.DigestStore) *Coordinator {
	return &Coordinator{
		registry: registry,
		files:    files,
		digests:  digests,
	}
}

// EnsureAllDigesters creates pending placeholders for every registered
// digester that applies to the file, and terminally skips records left
// behind by digesters that are no longer registered. Idempotent.
func (c *Coordinator) EnsureAllDigesters(ctx context.Context, path string) error {
	file, err := c.files.GetByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("loading file %s: %w", path, err)
	}

	existing, err := c.digests.ListForPath(ctx, path)
	if err != nil {
		return fmt.Errorf("listing digests for %s: %w", path, err)
	}
	byName := digestsByName(existing)

	added := 0
	for _, d := range c.registry.All() {
		if !d.CanDigest(file) {
			continue
		}
		if _, ok := byName[d.Name()]; ok {
			continue
		}
		err := c.digests.Create(ctx, &domain.Digest{
			FilePath: path,
			Digester: d.Name(),
			Status:   domain.DigestPending,
		})
		if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("creating placeholder %s/%s: %w", path, d.Name(), err)
		}
		added++
	}

	orphaned := 0
	for _, rec := range existing {
		if c.registry.Has(rec.Digester) {
			continue
		}
		if rec.Status == domain.DigestPending || rec.Status == domain.DigestFailed || rec.Status == domain.DigestInProgress {
			err := c.digests.UpdateStatus(ctx, path, rec.Digester, domain.DigestSkipped, "digester no longer registered", 0)
			if err != nil {
				return fmt.Errorf("skipping orphaned digest %s/%s: %w", path, rec.Digester, err)
			}
			orphaned++
		}
	}

	if added > 0 || orphaned > 0 {
		logger.Debug("ensured digest placeholders for %s: %d added, %d orphaned", path, added, orphaned)
	}
	return nil
}

// ProcessFile runs the applicable digesters in registration order. Records
// are reloaded before each digester so a consumer observes a producer's
// output from the same pass. Failures stay on their own record; the success
// flag reports whether any record for the file is failed afterwards.
func (c *Coordinator) ProcessFile(ctx context.Context, path string, opts domain.ProcessOptions) (bool, error) {
	file, err := c.files.GetByPath(ctx, path)
	if err != nil {
		return false, fmt.Errorf("loading file %s: %w", path, err)
	}

	if err := c.EnsureAllDigesters(ctx, path); err != nil {
		return false, err
	}

	for _, d := range c.registry.All() {
		if opts.Digester != "" && d.Name() != opts.Digester {
			continue
		}

		existing, err := c.digests.ListForPath(ctx, path)
		if err != nil {
			return false, fmt.Errorf("listing digests for %s: %w", path, err)
		}
		rec := digestsByName(existing)[d.Name()]

		if !d.CanDigest(file) {
			if rec != nil && rec.Status == domain.DigestPending {
				if err := c.digests.UpdateStatus(ctx, path, d.Name(), domain.DigestSkipped, "not applicable", 0); err != nil {
					return false, fmt.Errorf("skipping %s/%s: %w", path, d.Name(), err)
				}
			}
			continue
		}

		if rec != nil && !c.runnable(rec, opts) {
			continue
		}

		if err := c.digests.UpdateStatus(ctx, path, d.Name(), domain.DigestInProgress, "", 0); err != nil {
			return false, fmt.Errorf("marking %s/%s in progress: %w", path, d.Name(), err)
		}

		wasCompleted := rec != nil && rec.Status == domain.DigestCompleted
		c.runDigester(ctx, d, file, existing, wasCompleted)
	}

	after, err := c.digests.ListForPath(ctx, path)
	if err != nil {
		return false, fmt.Errorf("listing digests for %s: %w", path, err)
	}
	for _, rec := range after {
		if rec.Status == domain.DigestFailed {
			return false, nil
		}
	}
	return true, nil
}

// runnable reports whether a digest record is eligible to run again.
func (c *Coordinator) runnable(rec *domain.Digest, opts domain.ProcessOptions) bool {
	if opts.Reset {
		return true
	}
	switch rec.Status {
	case domain.DigestPending:
		return true
	case domain.DigestFailed:
		return rec.Attempts < domain.MaxDigestAttempts
	default:
		// completed, skipped, in-progress
		return false
	}
}

// runDigester executes one digester and records the outcome. Errors never
// leave this function; they become failed records so sibling digesters on
// the same file keep making progress.
func (c *Coordinator) runDigester(ctx context.Context, d digesters.Digester, file *domain.FileRecord, existing []domain.Digest, wasCompleted bool) {
	inputs, err := d.Digest(ctx, file, existing)
	if err != nil {
		if errors.Is(err, domain.ErrDependencyNotReady) {
			logger.Debug("digester %s deferred on %s: %v", d.Name(), file.Path, err)
		} else {
			logger.Warn("digester %s failed on %s: %v", d.Name(), file.Path, err)
		}
		if uerr := c.digests.UpdateStatus(ctx, file.Path, d.Name(), domain.DigestFailed, err.Error(), 1); uerr != nil {
			logger.Error("recording failure for %s/%s: %v", file.Path, d.Name(), uerr)
		}
		return
	}

	if len(inputs) == 0 {
		inputs = []domain.DigestInput{{
			FilePath: file.Path,
			Digester: d.Name(),
			Status:   domain.DigestCompleted,
		}}
	}

	for _, in := range inputs {
		if err := c.digests.Upsert(ctx, in); err != nil {
			logger.Error("upserting digest %s/%s: %v", in.FilePath, in.Digester, err)
			continue
		}
		if in.Status == domain.DigestCompleted && in.Content != nil && !wasCompleted {
			c.cascadeResets(ctx, in.FilePath, in.Digester)
		}
	}
}

// cascadeResets forces downstream consumers of freshly produced content
// back to pending so they re-run against the new output. Only terminal
// records move; pending and in-progress records are untouched.
func (c *Coordinator) cascadeResets(ctx context.Context, path, digester string) {
	downstream, ok := cascadingResets[digester]
	if !ok {
		return
	}

	existing, err := c.digests.ListForPath(ctx, path)
	if err != nil {
		logger.Error("listing digests for cascade on %s: %v", path, err)
		return
	}
	byName := digestsByName(existing)

	for _, name := range downstream {
		rec, ok := byName[name]
		if !ok || !rec.Status.Terminal() {
			continue
		}
		if err := c.digests.UpdateStatus(ctx, path, name, domain.DigestPending, "", -rec.Attempts); err != nil {
			logger.Error("cascading reset of %s/%s: %v", path, name, err)
			continue
		}
		logger.Debug("cascading reset: %s completion reset %s on %s", digester, name, path)
	}
}

func digestsByName(digests []domain.Digest) map[string]*domain.Digest {
	byName := make(map[string]*domain.Digest, len(digests))
	for i := range digests {
		byName[digests[i].Digester] = &digests[i]
	}
	return byName
}
