package blob

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/files"
)

var timeNow = time.Now

const (
	dirBlobs = "blobs"
	dirIndex = "index"
	dirTmp   = "tmp"
)

// Filesystem is a BlobStore in a directory. Blobs are content addressed (by algorithm
// & digest) so identical content is stored once; each path has a JSON index listing
// its versions in the order they were stored.
type Filesystem struct {
	fs   afero.Fs
	root string

	// guards index read-modify-writes
	lock sync.Mutex
}

// NewFilesystem returns a store rooted at the given directory, creating it if needed
func NewFilesystem(fs afero.Fs, root string) (*Filesystem, error) {
	for _, d := range []string{dirBlobs, dirIndex, dirTmp} {
		err := fs.MkdirAll(filepath.Join(root, d), 0755)
		if err != nil {
			return nil, err
		}
	}
	return &Filesystem{fs: fs, root: root}, nil
}

func (s *Filesystem) PutFile(ctx context.Context, meta *Meta, r io.Reader) (*BlobInfo, error) {
	hasher, err := files.NewHasher(meta.Algorithm)
	if err != nil {
		return nil, err
	}

	tmp := filepath.Join(s.root, dirTmp, uuid.NewString())
	f, err := s.fs.Create(tmp)
	if err != nil {
		return nil, err
	}
	defer s.fs.Remove(tmp) // no-op once renamed

	h := hasher.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	cerr := f.Close()
	if err != nil {
		return nil, err
	}
	if cerr != nil {
		return nil, cerr
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(digest, meta.Digest) {
		return nil, fmt.Errorf("%w %s: sent %s, received %s", errors.ErrDigestMismatch, meta.Path, meta.Digest, digest)
	}
	if meta.Size >= 0 && size != meta.Size {
		return nil, fmt.Errorf("%w %s: sent %d bytes, received %d", errors.ErrTransfer, meta.Path, meta.Size, size)
	}

	id := fmt.Sprintf("%s-%s", hasher.Algorithm(), digest)
	final := filepath.Join(s.root, dirBlobs, id)
	if _, err := s.fs.Stat(final); os.IsNotExist(err) {
		err = s.fs.Rename(tmp, final)
		if err != nil {
			return nil, err
		}
	}

	info := &BlobInfo{
		ID:        id,
		Path:      meta.Path,
		SourceID:  meta.SourceID,
		Digest:    digest,
		Algorithm: hasher.Algorithm(),
		Size:      size,
		StoredAt:  timeNow().UTC(),
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	versions, err := s.readIndex(meta.Path)
	if err != nil {
		return nil, err
	}
	return info, s.writeIndex(meta.Path, append(versions, info))
}

func (s *Filesystem) GetLatestVersion(ctx context.Context, path string) (*BlobInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	versions, err := s.readIndex(path)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w no stored version of %s", errors.ErrNotFound, path)
	}
	return versions[len(versions)-1], nil
}

func (s *Filesystem) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w blob id %q", errors.ErrInvalidArg, id)
	}
	f, err := s.fs.Open(filepath.Join(s.root, dirBlobs, id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w blob %s", errors.ErrNotFound, id)
	}
	return f, err
}

// indexPath returns where the version index of a path lives
func (s *Filesystem) indexPath(path string) string {
	sum := sha1.Sum([]byte(path))
	return filepath.Join(s.root, dirIndex, hex.EncodeToString(sum[:])+".json")
}

func (s *Filesystem) readIndex(path string) ([]*BlobInfo, error) {
	data, err := afero.ReadFile(s.fs, s.indexPath(path))
	if os.IsNotExist(err) {
		return []*BlobInfo{}, nil
	} else if err != nil {
		return nil, err
	}
	versions := []*BlobInfo{}
	err = json.Unmarshal(data, &versions)
	return versions, err
}

func (s *Filesystem) writeIndex(path string, versions []*BlobInfo) error {
	data, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	tmp := s.indexPath(path) + ".tmp"
	err = afero.WriteFile(s.fs, tmp, data, 0644)
	if err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.indexPath(path))
}

func timeFromUnixNano(nano int64) time.Time {
	return time.Unix(0, nano).UTC()
}
