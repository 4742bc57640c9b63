package files

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/voidshard/b2b/pkg/errors"
)

const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA1   = "sha1"
	AlgorithmSHA256 = "sha256"
	AlgorithmXXHash = "xxhash"

	// AlgorithmDefault is used when no algorithm is named
	AlgorithmDefault = AlgorithmMD5
)

var algorithms = map[string]func() hash.Hash{
	AlgorithmMD5:    md5.New,
	AlgorithmSHA1:   sha1.New,
	AlgorithmSHA256: sha256.New,
	AlgorithmXXHash: func() hash.Hash { return xxhash.New() },
}

// ContentHasher computes a digest of file content
type ContentHasher interface {
	// Algorithm is the name of the digest algorithm
	Algorithm() string

	// Sum reads r to EOF & returns its lowercase hex digest
	Sum(r io.Reader) (string, error)
}

// Hasher is a ContentHasher over one of the standard hash algorithms
type Hasher struct {
	name    string
	newHash func() hash.Hash
}

// NewHasher returns a hasher for the named algorithm (md5, sha1, sha256, xxhash).
// An empty name means AlgorithmDefault.
func NewHasher(algorithm string) (*Hasher, error) {
	name := strings.ToLower(strings.TrimSpace(algorithm))
	if name == "" {
		name = AlgorithmDefault
	}
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w hash algorithm %q", errors.ErrNotSupported, algorithm)
	}
	return &Hasher{name: name, newHash: fn}, nil
}

func (h *Hasher) Algorithm() string {
	return h.name
}

// New returns a fresh hash.Hash of the algorithm, for digesting a stream as it's copied
func (h *Hasher) New() hash.Hash {
	return h.newHash()
}

func (h *Hasher) Sum(r io.Reader) (string, error) {
	d := h.newHash()
	_, err := io.Copy(d, r)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// SumFile returns the digest of a file's content
func SumFile(fs afero.Fs, hasher ContentHasher, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hasher.Sum(f)
}
