package domain

import "time"

// DigestStatus is the lifecycle state of a digest record.
type DigestStatus string

// Digest lifecycle states.
const (
	// DigestPending means the digest is queued but has not run yet.
	DigestPending DigestStatus = "pending"

	// DigestInProgress means a worker is currently running the digester.
	DigestInProgress DigestStatus = "in-progress"

	// DigestCompleted means the digester ran successfully. Content may be
	// nil when the digester ran but produced nothing.
	DigestCompleted DigestStatus = "completed"

	// DigestFailed means the digester ran and returned an error.
	DigestFailed DigestStatus = "failed"

	// DigestSkipped means the digester does not apply to the file, or the
	// digester is no longer registered.
	DigestSkipped DigestStatus = "skipped"
)

// Terminal reports whether the status is a resting state that will not
// change without an explicit reset.
func (s DigestStatus) Terminal() bool {
	return s == DigestCompleted || s == DigestFailed || s == DigestSkipped
}

// MaxDigestAttempts caps automatic retries of a failed digest.
const MaxDigestAttempts = 3

// Digest is the persisted outcome of running one digester over one file.
// At most one record exists per (FilePath, Digester) pair.
type Digest struct {
	// ID is the unique record identifier.
	ID string

	// FilePath is the file the digest belongs to.
	FilePath string

	// Digester is the name of the digester that produced the record.
	Digester string

	// Status is the lifecycle state.
	Status DigestStatus

	// Content is the digester output, nil when not yet produced or when
	// the digester completed with nothing to record.
	Content *string

	// Error holds the failure message when Status is failed.
	Error *string

	// Attempts counts how many times the digester has run for this record.
	Attempts int

	// CreatedAt is when the placeholder record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state. The stale sweep
	// compares against this to recover crashed in-progress work.
	UpdatedAt time.Time
}

// DigestInput is a digest upsert produced by a digester run.
type DigestInput struct {
	FilePath string
	Digester string
	Status   DigestStatus
	Content  *string
	Error    *string
}

// CompletedDigest returns the completed digest with the given name from a
// list, or nil when absent or not completed.
func CompletedDigest(digests []Digest, name string) *Digest {
	for i := range digests {
		if digests[i].Digester == name && digests[i].Status == DigestCompleted {
			return &digests[i]
		}
	}
	return nil
}
