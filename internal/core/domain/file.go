package domain

import "time"

// FileRecord represents a file or folder known to the system.
// Records are owned by the file-discovery layer; the digest pipeline
// only reads them. The relative path is the unique key.
type FileRecord struct {
	// Path is the path relative to the data root. Unique.
	Path string

	// Name is the base name of the file.
	Name string

	// MimeType is the detected MIME type, nil when unknown.
	MimeType *string

	// Size is the file size in bytes, nil for folders.
	Size *int64

	// ContentHash is a hash of the file content, used to detect changes.
	ContentHash string

	// IsFolder indicates a directory rather than a regular file.
	IsFolder bool

	// TextPreview holds the leading text of small text files, when available.
	TextPreview *string

	// CreatedAt is when the file was first observed.
	CreatedAt time.Time

	// ModifiedAt is the last observed modification time.
	ModifiedAt time.Time
}

// Mime returns the MIME type or an empty string when unknown.
func (f *FileRecord) Mime() string {
	if f.MimeType == nil {
		return ""
	}
	return *f.MimeType
}
