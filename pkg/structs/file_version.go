package structs

import (
	"time"
)

// FileVersion records the last successfully backed up content of a file.
type FileVersion struct {
	// Path is the path of the file on the source
	Path string `json:"path"`

	// ContentDigest is the hex digest of the file content.
	// Empty if the digest wasn't recorded (the file is then always considered changed).
	ContentDigest string `json:"content_digest"`

	// Size of the file in bytes
	Size int64 `json:"size"`

	// LastBackedUpAt is when the peer acknowledged this version
	LastBackedUpAt time.Time `json:"last_backed_up_at"`

	// SourceID is the ID of the backup source the path belongs to
	SourceID string `json:"source_id"`
}
