package watch

import (
	"sync"
	"sync/atomic"
	"time"
)

// eventKind classifies a filesystem change after coalescing.
type eventKind int

const (
	eventCreate eventKind = iota
	eventWrite
	eventRemove
)

// defaultDebounceDelay coalesces the bursts of writes editors and copies
// produce for a single file.
const defaultDebounceDelay = 150 * time.Millisecond

// debouncer coalesces rapid filesystem events per path. Create and write
// events wait out the delay; a new event for the same path resets the
// timer. Remove events fire immediately and cancel anything pending.
type debouncer struct {
	mu       sync.Mutex
	pending  map[string]*pendingEvent
	delay    time.Duration
	emit     func(path string, kind eventKind)
	stopping atomic.Bool
}

type pendingEvent struct {
	timer *time.Timer
	kind  eventKind
}

func newDebouncer(delay time.Duration, emit func(path string, kind eventKind)) *debouncer {
	return &debouncer{
		pending: make(map[string]*pendingEvent),
		delay:   delay,
		emit:    emit,
	}
}

// queue registers an event for the path. Returns false when the debouncer
// is shutting down and the event was dropped.
func (d *debouncer) queue(path string, kind eventKind) bool {
	if d.stopping.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping.Load() {
		return false
	}

	if kind == eventRemove {
		if p, ok := d.pending[path]; ok {
			p.timer.Stop()
			delete(d.pending, path)
		}
		go d.emit(path, eventRemove)
		return true
	}

	if p, ok := d.pending[path]; ok {
		if p.timer.Reset(d.delay) {
			// Create wins over write so a fresh file is reported as new
			// even when writes trail the create.
			if kind == eventCreate {
				p.kind = eventCreate
			}
			return true
		}
		// Timer already fired; fall through and queue a fresh event.
	}

	timer := time.AfterFunc(d.delay, func() { d.fire(path) })
	d.pending[path] = &pendingEvent{timer: timer, kind: kind}
	return true
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if ok {
		delete(d.pending, path)
	}
	d.mu.Unlock()

	if ok {
		d.emit(path, p.kind)
	}
}

// stop cancels all pending events and rejects new ones.
func (d *debouncer) stop() {
	d.stopping.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]*pendingEvent)
}

func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
