// Package watch feeds filesystem activity in the inbox into the digest
// pipeline. It reconciles the file catalog on startup, then tails fsnotify
// events, debouncing write bursts and notifying the worker when a file's
// content actually changed.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/logger"
)

// InboxDir is the directory under the data root the watcher observes.
const InboxDir = "inbox"

// previewLimit bounds how much of a text file is stored as preview.
const previewLimit = 4096

// Catalog is the slice of the file store the watcher needs: it owns file
// records, creating and deleting them as the filesystem changes.
type Catalog interface {
	GetByPath(ctx context.Context, path string) (*domain.FileRecord, error)
	ListInbox(ctx context.Context) ([]domain.FileRecord, error)
	Upsert(ctx context.Context, f domain.FileRecord) error
	Delete(ctx context.Context, path string) error
}

// Notifier receives file-change notifications, normally the digest worker.
type Notifier interface {
	OnFileChange(path string, isNew, contentChanged bool)
}

// Remover clears a deleted file out of the search indexes.
type Remover interface {
	RemoveFile(ctx context.Context, path string) error
}

// Watcher observes the inbox directory and keeps the catalog in sync.
type Watcher struct {
	root     string
	catalog  Catalog
	notifier Notifier
	remover  Remover

	fsw      *fsnotify.Watcher
	debounce *debouncer
	delay    time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDelay overrides the event coalescing delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// New creates a watcher for root/inbox. root is the data root directory.
func New(root string, catalog Catalog, notifier Notifier, remover Remover, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		catalog:  catalog,
		notifier: notifier,
		remover:  remover,
		delay:    defaultDebounceDelay,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debounce = newDebouncer(w.delay, w.processDebounced)
	return w
}

// Start reconciles the catalog against the inbox, then begins watching.
// It returns once the watcher is running.
func (w *Watcher) Start(ctx context.Context) error {
	inbox := filepath.Join(w.root, InboxDir)
	if err := os.MkdirAll(inbox, 0755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	var err error
	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := w.reconcile(ctx); err != nil {
		logger.Warn("inbox reconcile: %v", err)
	}

	if err := w.watchRecursive(inbox); err != nil {
		w.fsw.Close()
		return fmt.Errorf("watching inbox: %w", err)
	}

	w.wg.Add(1)
	go w.eventLoop()

	logger.Info("watching %s", inbox)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.debounce.stop()
		if w.fsw != nil {
			w.fsw.Close()
		}
		w.wg.Wait()
	})
}

// reconcile walks the inbox once and squares the catalog with what is on
// disk: new and changed files get processed, records for vanished files
// get removed.
func (w *Watcher) reconcile(ctx context.Context) error {
	inbox := filepath.Join(w.root, InboxDir)
	seen := make(map[string]struct{})

	err := filepath.Walk(inbox, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || isHidden(rel) {
			if info.IsDir() && isHidden(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		seen[rel] = struct{}{}
		w.processFile(ctx, rel)
		return nil
	})
	if err != nil {
		return err
	}

	records, err := w.catalog.ListInbox(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if _, ok := seen[records[i].Path]; !ok {
			w.handleRemove(ctx, records[i].Path)
		}
	}
	return nil
}

// watchRecursive adds every directory under dir to the fsnotify watcher.
func (w *Watcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && isHidden(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				logger.Warn("watching %s: %v", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || isHidden(rel) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone from this path. Rename and remove both mean the record
		// no longer describes anything on disk.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.debounce.queue(rel, eventRemove)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			_ = w.fsw.Add(event.Name)
		}
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.debounce.queue(rel, eventCreate)
	case event.Op&fsnotify.Write != 0:
		w.debounce.queue(rel, eventWrite)
	}
}

// processDebounced runs on the debouncer's timer goroutines.
func (w *Watcher) processDebounced(path string, kind eventKind) {
	ctx := context.Background()
	switch kind {
	case eventCreate, eventWrite:
		w.processFile(ctx, path)
	case eventRemove:
		w.handleRemove(ctx, path)
	}
}

// processFile stats and hashes the file, upserts its record, and notifies
// the worker when the content is new or changed.
func (w *Watcher) processFile(ctx context.Context, path string) {
	full := filepath.Join(w.root, path)
	info, err := os.Stat(full)
	if err != nil {
		logger.Warn("stat %s: %v", path, err)
		return
	}

	hash, mimeType, preview, err := fileMetadata(full)
	if err != nil {
		logger.Warn("reading %s: %v", path, err)
		return
	}

	existing, _ := w.catalog.GetByPath(ctx, path)
	oldHash := ""
	if existing != nil {
		oldHash = existing.ContentHash
	}

	size := info.Size()
	record := domain.FileRecord{
		Path:        path,
		Name:        filepath.Base(path),
		ContentHash: hash,
		Size:        &size,
		ModifiedAt:  info.ModTime(),
	}
	if mimeType != "" {
		record.MimeType = &mimeType
	}
	if preview != "" {
		record.TextPreview = &preview
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	if err := w.catalog.Upsert(ctx, record); err != nil {
		logger.Warn("upserting %s: %v", path, err)
		return
	}

	isNew := existing == nil
	contentChanged := oldHash != hash
	if isNew || contentChanged {
		logger.Debug("file change: %s new=%t changed=%t", path, isNew, contentChanged)
		w.notifier.OnFileChange(path, isNew, contentChanged)
	}
}

// handleRemove drops the record and clears the file out of the indexes.
func (w *Watcher) handleRemove(ctx context.Context, path string) {
	logger.Info("file removed: %s", path)

	if err := w.remover.RemoveFile(ctx, path); err != nil {
		logger.Warn("deindexing %s: %v", path, err)
	}
	if err := w.catalog.Delete(ctx, path); err != nil {
		logger.Warn("deleting record %s: %v", path, err)
	}
}

// fileMetadata hashes the file and derives its MIME type and, for text
// content, a short preview.
func fileMetadata(full string) (hash, mimeType, preview string, err error) {
	f, err := os.Open(full)
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	head := make([]byte, previewLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", "", "", err
	}
	head = head[:n]

	h := sha256.New()
	h.Write(head)
	if _, err := io.Copy(h, f); err != nil {
		return "", "", "", err
	}
	hash = hex.EncodeToString(h.Sum(nil))

	mimeType = mime.TypeByExtension(filepath.Ext(full))
	if mimeType == "" && n > 0 {
		mimeType = http.DetectContentType(head)
	}
	// Strip parameters like "; charset=utf-8" so digesters can match on
	// the bare type.
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	if strings.HasPrefix(mimeType, "text/") {
		preview = textPreview(head)
	}
	return hash, mimeType, preview, nil
}

// isHidden reports whether any segment of the relative path is a dotfile.
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// textPreview returns the leading bytes as a string, truncated to a valid
// UTF-8 boundary.
func textPreview(head []byte) string {
	for len(head) > 0 && !utf8.Valid(head) {
		head = head[:len(head)-1]
	}
	return strings.TrimSpace(string(head))
}
