package domain

import "time"

// WorkerConfig holds digest worker configuration.
type WorkerConfig struct {
	// StartupDelay postpones the first iteration so upstream storage
	// connections can settle.
	StartupDelay time.Duration

	// PollInterval is how often the supervisor runs the stale sweeps.
	PollInterval time.Duration

	// IdleSleep is how long the loop sleeps when no file needs digestion.
	IdleSleep time.Duration

	// BackoffBase is the first retry delay after a failure. Consecutive
	// failures double the delay up to BackoffCap.
	BackoffBase time.Duration

	// BackoffCap is the ceiling on the backoff delay.
	BackoffCap time.Duration

	// StaleDigestAfter is how long an in-progress digest may go without an
	// update before the sweep forces it back to pending.
	StaleDigestAfter time.Duration

	// StaleLockAfter is how long a processing lock may exist before the
	// sweep clears it. Tuned independently of StaleDigestAfter.
	StaleLockAfter time.Duration

	// ShutdownGrace bounds how long Stop waits for the in-flight
	// iteration to finish.
	ShutdownGrace time.Duration
}

// DefaultWorkerConfig returns sensible defaults for the digest worker.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		StartupDelay:     2 * time.Second,
		PollInterval:     30 * time.Second,
		IdleSleep:        5 * time.Second,
		BackoffBase:      1 * time.Second,
		BackoffCap:       5 * time.Minute,
		StaleDigestAfter: 10 * time.Minute,
		StaleLockAfter:   30 * time.Minute,
		ShutdownGrace:    10 * time.Second,
	}
}

// EventType identifies a worker lifecycle event.
type EventType string

// Worker event types. Events mirror the messages the pipeline sends to the
// front end: fire-and-forget, FIFO per subscriber.
const (
	EventReady            EventType = "ready"
	EventDigestStarted    EventType = "digest-started"
	EventDigestComplete   EventType = "digest-complete"
	EventShutdownComplete EventType = "shutdown-complete"
)

// Event is a worker lifecycle notification.
type Event struct {
	Type EventType

	// FilePath is set for digest-started and digest-complete.
	FilePath string

	// Success is set for digest-complete: true when no digest for the file
	// is in failed state after processing.
	Success bool
}

// ProcessOptions controls a single coordinator run for one file.
type ProcessOptions struct {
	// Reset forces digesters to re-run even when already completed.
	Reset bool

	// Digester restricts the run to a single named digester when non-empty.
	Digester string
}
