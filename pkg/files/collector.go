package files

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileInfo is a regular file found by a Collector
type FileInfo struct {
	// Path is the full path of the file on the Fs
	Path string

	// Rel is the path relative to the walked root, using forward slashes.
	// This is how the file is identified to peers & in file versions.
	Rel string

	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// Collector finds regular files under a root
type Collector struct {
	fs  afero.Fs
	log *zap.Logger
}

// NewCollector returns a collector over the given filesystem
func NewCollector(fs afero.Fs, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{fs: fs, log: log}
}

// Walk returns every regular file under root in visit order (lexical within each
// directory) and the sum of their sizes. Directories are descended into, symlinks &
// special files are skipped.
//
// The walk is best effort: any entry that can't be read (including root itself) is
// logged & skipped, so Walk never fails.
func (c *Collector) Walk(root string) ([]*FileInfo, int64) {
	found := []*FileInfo{}
	var total int64

	afero.Walk(c.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			c.log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info == nil || !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			rel = filepath.Base(path)
		}

		found = append(found, &FileInfo{
			Path:    path,
			Rel:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
		total += info.Size()
		return nil
	})

	return found, total
}
