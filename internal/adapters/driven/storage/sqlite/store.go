package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lifedex/lifedex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.lifedex/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lifedex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	// _time_format=sqlite stores time values in SQLite's text format so
	// the stale sweeps can compare timestamps in SQL.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// FileStore returns the file store backed by this store. The concrete type
// carries the write methods the file-discovery layer needs on top of the
// read-only driven.FileStore port.
func (s *Store) FileStore() *FileStore {
	return &FileStore{store: s}
}

// DigestStore returns a DigestStore interface backed by this store.
func (s *Store) DigestStore() driven.DigestStore {
	return &digestStore{store: s}
}

// LockStore returns a LockStore interface backed by this store.
func (s *Store) LockStore() driven.LockStore {
	return &lockStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== File Store ====================

// FileStore implements driven.FileStore plus the write methods used by the
// file-discovery layer.
type FileStore struct {
	store *Store
}

var _ driven.FileStore = (*FileStore)(nil)

// GetByPath retrieves a file record by its relative path.
func (s *FileStore) GetByPath(ctx context.Context, path string) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT path, name, mime_type, size, content_hash, is_folder, text_preview, created_at, modified_at
		FROM files WHERE path = ?
	`, path)

	return scanFile(row)
}

// ListInbox returns all non-folder files under the inbox root.
func (s *FileStore) ListInbox(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT path, name, mime_type, size, content_hash, is_folder, text_preview, created_at, modified_at
		FROM files
		WHERE is_folder = 0 AND (path = 'inbox' OR path LIKE 'inbox/%')
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying inbox files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return files, nil
}

// Upsert stores or updates a file record.
func (s *FileStore) Upsert(ctx context.Context, f domain.FileRecord) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.ModifiedAt.IsZero() {
		f.ModifiedAt = now
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (path, name, mime_type, size, content_hash, is_folder, text_preview, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			size = excluded.size,
			content_hash = excluded.content_hash,
			is_folder = excluded.is_folder,
			text_preview = excluded.text_preview,
			modified_at = excluded.modified_at
	`, f.Path, f.Name, f.MimeType, f.Size, f.ContentHash, f.IsFolder, f.TextPreview,
		f.CreatedAt, f.ModifiedAt)

	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Delete removes a file record.
func (s *FileStore) Delete(ctx context.Context, path string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// ==================== Digest Store ====================

// digestStore implements driven.DigestStore.
type digestStore struct {
	store *Store
}

var _ driven.DigestStore = (*digestStore)(nil)

// ListForPath returns all digest records for a file, ordered by digester
// name for determinism.
func (s *digestStore) ListForPath(ctx context.Context, path string) ([]domain.Digest, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, file_path, digester, status, content, error, attempts, created_at, updated_at
		FROM digests WHERE file_path = ?
		ORDER BY digester
	`, path)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	var digests []domain.Digest //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDigestRows(rows)
		if err != nil {
			return nil, err
		}
		digests = append(digests, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digests: %w", err)
	}

	return digests, nil
}

// GetByPathAndDigester returns the record for one (file, digester) pair.
func (s *digestStore) GetByPathAndDigester(ctx context.Context, path, digester string) (*domain.Digest, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, file_path, digester, status, content, error, attempts, created_at, updated_at
		FROM digests WHERE file_path = ? AND digester = ?
	`, path, digester)

	return scanDigest(row)
}

// Create inserts a new record, failing when one already exists for the
// (file, digester) pair.
func (s *digestStore) Create(ctx context.Context, d *domain.Digest) error {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO digests (id, file_path, digester, status, content, error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path, digester) DO NOTHING
	`, id, d.FilePath, d.Digester, string(d.Status), d.Content, d.Error, d.Attempts, now, now)
	if err != nil {
		return fmt.Errorf("creating digest: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking digest insert: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyExists
	}

	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// Upsert creates or updates the record for (FilePath, Digester). Attempts
// and created_at are preserved on update.
func (s *digestStore) Upsert(ctx context.Context, in domain.DigestInput) error {
	now := time.Now().UTC()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO digests (id, file_path, digester, status, content, error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(file_path, digester) DO UPDATE SET
			status = excluded.status,
			content = excluded.content,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, uuid.NewString(), in.FilePath, in.Digester, string(in.Status), in.Content, in.Error, now, now)

	if err != nil {
		return fmt.Errorf("upserting digest: %w", err)
	}
	return nil
}

// UpdateStatus transitions a record's status, recording the error message
// and adjusting the attempts counter by delta, floored at zero.
func (s *digestStore) UpdateStatus(ctx context.Context, path, digester string, status domain.DigestStatus, errMsg string, attemptsDelta int) error {
	var errVal *string
	if errMsg != "" {
		errVal = &errMsg
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE digests
		SET status = ?, error = ?, attempts = MAX(0, attempts + ?), updated_at = ?
		WHERE file_path = ? AND digester = ?
	`, string(status), errVal, attemptsDelta, time.Now().UTC(), path, digester)
	if err != nil {
		return fmt.Errorf("updating digest status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking digest update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetForPath forces all records for a file back to pending with cleared
// content, error and attempts.
func (s *digestStore) ResetForPath(ctx context.Context, path string) error {
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE digests
		SET status = ?, content = NULL, error = NULL, attempts = 0, updated_at = ?
		WHERE file_path = ?
	`, string(domain.DigestPending), time.Now().UTC(), path)
	if err != nil {
		return fmt.Errorf("resetting digests: %w", err)
	}
	return nil
}

// ResetStaleInProgress forces in-progress records not updated since cutoff
// back to pending.
func (s *digestStore) ResetStaleInProgress(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE digests
		SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?
	`, string(domain.DigestPending), time.Now().UTC(), string(domain.DigestInProgress), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("resetting stale digests: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking stale digest reset: %w", err)
	}
	return int(affected), nil
}

// FilesNeedingDigestion returns up to limit paths with at least one pending
// record or a failed record with attempts below the retry cap.
func (s *digestStore) FilesNeedingDigestion(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT file_path FROM digests
		WHERE status = ? OR (status = ? AND attempts < ?)
		ORDER BY file_path
		LIMIT ?
	`, string(domain.DigestPending), string(domain.DigestFailed), domain.MaxDigestAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("querying files needing digestion: %w", err)
	}
	defer rows.Close()

	var paths []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning file path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file paths: %w", err)
	}

	return paths, nil
}

// DeleteForPath removes all records for a file.
func (s *digestStore) DeleteForPath(ctx context.Context, path string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM digests WHERE file_path = ?", path)
	if err != nil {
		return fmt.Errorf("deleting digests: %w", err)
	}
	return nil
}

// ==================== Lock Store ====================

// lockStore implements driven.LockStore.
type lockStore struct {
	store *Store
}

var _ driven.LockStore = (*lockStore)(nil)

// IsLocked reports whether a lock exists for the path.
func (s *lockStore) IsLocked(ctx context.Context, path string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processing_locks WHERE file_path = ?", path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking lock: %w", err)
	}
	return count > 0, nil
}

// Acquire atomically creates the lock. The insert-or-ignore keeps
// contention resolution inside the database.
func (s *lockStore) Acquire(ctx context.Context, path string) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO processing_locks (file_path, created_at)
		VALUES (?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking lock insert: %w", err)
	}
	if affected == 0 {
		return domain.ErrLockHeld
	}
	return nil
}

// Release removes the lock. Releasing an absent lock is not an error.
func (s *lockStore) Release(ctx context.Context, path string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM processing_locks WHERE file_path = ?", path)
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// CleanupStale removes locks created before cutoff.
func (s *lockStore) CleanupStale(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM processing_locks WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleaning stale locks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking stale lock cleanup: %w", err)
	}
	return int(affected), nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// ReplaceForFileSource deletes existing rows for (path, sourceType) and
// inserts the given chunks in one transaction.
func (s *chunkStore) ReplaceForFileSource(ctx context.Context, path, sourceType string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_documents WHERE file_path = ? AND source_type = ?", path, sourceType); err != nil {
		return fmt.Errorf("deleting chunk rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_documents
			(document_id, file_path, source_type, chunk_index, chunk_count, text,
			 span_start, span_end, overlap_tokens, word_count, token_count, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.DocumentID(), c.FilePath, c.SourceType,
			c.Index, c.Count, c.Text, c.SpanStart, c.SpanEnd,
			c.OverlapTokens, c.WordCount, c.TokenCount, c.ContentHash); err != nil {
			return fmt.Errorf("saving chunk row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListForFile returns all chunk rows for a file, ordered by source type
// then index.
func (s *chunkStore) ListForFile(ctx context.Context, path string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_path, source_type, chunk_index, chunk_count, text,
		       span_start, span_end, overlap_tokens, word_count, token_count, content_hash
		FROM chunk_documents WHERE file_path = ?
		ORDER BY source_type, chunk_index
	`, path)
	if err != nil {
		return nil, fmt.Errorf("querying chunk rows: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.FilePath, &c.SourceType, &c.Index, &c.Count, &c.Text,
			&c.SpanStart, &c.SpanEnd, &c.OverlapTokens, &c.WordCount, &c.TokenCount, &c.ContentHash); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}

	return chunks, nil
}

// DeleteForFile removes all chunk rows for a file and returns the removed
// document IDs so the caller can clear the vector index.
func (s *chunkStore) DeleteForFile(ctx context.Context, path string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT document_id FROM chunk_documents WHERE file_path = ? ORDER BY document_id", path)
	if err != nil {
		return nil, fmt.Errorf("querying chunk document ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk document ids: %w", err)
	}

	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunk_documents WHERE file_path = ?", path); err != nil {
		return nil, fmt.Errorf("deleting chunk rows: %w", err)
	}

	return ids, nil
}

// ==================== Helper Functions ====================

// scanFile scans a single file row.
func scanFile(row *sql.Row) (*domain.FileRecord, error) {
	var f domain.FileRecord
	var mimeType, textPreview sql.NullString
	var size sql.NullInt64
	var createdAt, modifiedAt sql.NullTime

	if err := row.Scan(&f.Path, &f.Name, &mimeType, &size, &f.ContentHash,
		&f.IsFolder, &textPreview, &createdAt, &modifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	applyFileNullables(&f, mimeType, size, textPreview, createdAt, modifiedAt)
	return &f, nil
}

// scanFileRows scans a file from *sql.Rows.
func scanFileRows(rows *sql.Rows) (*domain.FileRecord, error) {
	var f domain.FileRecord
	var mimeType, textPreview sql.NullString
	var size sql.NullInt64
	var createdAt, modifiedAt sql.NullTime

	if err := rows.Scan(&f.Path, &f.Name, &mimeType, &size, &f.ContentHash,
		&f.IsFolder, &textPreview, &createdAt, &modifiedAt); err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	applyFileNullables(&f, mimeType, size, textPreview, createdAt, modifiedAt)
	return &f, nil
}

func applyFileNullables(f *domain.FileRecord, mimeType sql.NullString, size sql.NullInt64, textPreview sql.NullString, createdAt, modifiedAt sql.NullTime) {
	if mimeType.Valid {
		f.MimeType = &mimeType.String
	}
	if size.Valid {
		f.Size = &size.Int64
	}
	if textPreview.Valid {
		f.TextPreview = &textPreview.String
	}
	if createdAt.Valid {
		f.CreatedAt = createdAt.Time
	}
	if modifiedAt.Valid {
		f.ModifiedAt = modifiedAt.Time
	}
}

// scanDigest scans a single digest row.
func scanDigest(row *sql.Row) (*domain.Digest, error) {
	var d domain.Digest
	var content, errMsg sql.NullString
	var status string
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&d.ID, &d.FilePath, &d.Digester, &status, &content, &errMsg,
		&d.Attempts, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning digest: %w", err)
	}

	applyDigestNullables(&d, status, content, errMsg, createdAt, updatedAt)
	return &d, nil
}

// scanDigestRows scans a digest from *sql.Rows.
func scanDigestRows(rows *sql.Rows) (*domain.Digest, error) {
	var d domain.Digest
	var content, errMsg sql.NullString
	var status string
	var createdAt, updatedAt sql.NullTime

	if err := rows.Scan(&d.ID, &d.FilePath, &d.Digester, &status, &content, &errMsg,
		&d.Attempts, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning digest: %w", err)
	}

	applyDigestNullables(&d, status, content, errMsg, createdAt, updatedAt)
	return &d, nil
}

func applyDigestNullables(d *domain.Digest, status string, content, errMsg sql.NullString, createdAt, updatedAt sql.NullTime) {
	d.Status = domain.DigestStatus(status)
	if content.Valid {
		d.Content = &content.String
	}
	if errMsg.Valid {
		d.Error = &errMsg.String
	}
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		d.UpdatedAt = updatedAt.Time
	}
}
