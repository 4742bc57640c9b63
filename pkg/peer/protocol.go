// Package peer implements the one-file-per-request transfer between a backup source
// and the peer it backs up to.
//
// A sender PUTs the raw bytes of a file to PathFiles on a fresh connection with the
// file's path, digest & source in headers. The receiver recomputes the digest, refuses
// a mismatch with 422 Unprocessable Entity, stores the bytes & answers 201 Created with
// an Ack. Anything else is a failed transfer.
//
// Path & source headers are percent escaped as filenames may hold bytes that aren't
// legal in a header value. Stored content can be fetched back by blob id from PathBlobs.
package peer

import (
	"net/url"
	"time"
)

const (
	PathFiles  = "/api/v1/files"
	PathBlobs  = "/api/v1/blobs"
	PathHealth = "/healthz"

	HeaderPath            = "X-B2B-Path"
	HeaderDigest          = "X-B2B-Digest"
	HeaderDigestAlgorithm = "X-B2B-Digest-Algorithm"
	HeaderSource          = "X-B2B-Source"
)

// Ack is the receiver's acknowledgement of a stored file
type Ack struct {
	Path     string    `json:"path"`
	Digest   string    `json:"digest"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
	BlobID   string    `json:"blob_id"`
}

// encodeHeader escapes a value so it's always a legal header value
func encodeHeader(v string) string {
	return url.PathEscape(v)
}

// decodeHeader reverses encodeHeader
func decodeHeader(v string) (string, error) {
	return url.PathUnescape(v)
}
