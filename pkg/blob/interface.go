package blob

import (
	"context"
	"io"
	"time"
)

// Meta describes a file being stored
type Meta struct {
	// Path of the file relative to its source root
	Path string

	// SourceID of the backup source that sent the file
	SourceID string

	// Digest is the hex digest the sender computed; content that doesn't match is refused
	Digest string

	// Algorithm names the hash algorithm of Digest
	Algorithm string

	// Size in bytes, or -1 if unknown
	Size int64
}

// BlobInfo describes a stored version of a file
type BlobInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	SourceID  string    `json:"source_id"`
	Digest    string    `json:"digest"`
	Algorithm string    `json:"algorithm"`
	Size      int64     `json:"size"`
	StoredAt  time.Time `json:"stored_at"`
}

// BlobStore persists the bytes of backed up files. Every put of a path is kept as a
// new version.
type BlobStore interface {
	// PutFile stores the content read from r. Returns ErrDigestMismatch (and stores
	// nothing) if the content doesn't hash to meta.Digest.
	PutFile(ctx context.Context, meta *Meta, r io.Reader) (*BlobInfo, error)

	// GetLatestVersion returns the most recently stored version of a path, or ErrNotFound
	GetLatestVersion(ctx context.Context, path string) (*BlobInfo, error)

	// Open returns the content of a stored blob, or ErrNotFound
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}
