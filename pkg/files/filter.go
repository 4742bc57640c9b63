package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

// VersionStore records what we last backed up
type VersionStore interface {
	// LatestFileVersion returns ErrNotFound if the path has never been backed up
	LatestFileVersion(ctx context.Context, sourceID, path string) (*structs.FileVersion, error)
	InsertFileVersion(ctx context.Context, in *structs.FileVersion) error
}

// ChangeFilter decides which collected files differ from their last backed up version.
// Only content is compared; size & mod time play no part.
type ChangeFilter struct {
	fs       afero.Fs
	versions VersionStore
	hasher   ContentHasher
	sourceID string
	log      *zap.Logger
}

// NewChangeFilter returns a filter for files of the given source
func NewChangeFilter(fs afero.Fs, versions VersionStore, hasher ContentHasher, sourceID string, log *zap.Logger) *ChangeFilter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChangeFilter{fs: fs, versions: versions, hasher: hasher, sourceID: sourceID, log: log}
}

// Changed returns the current digest of the file & whether it should be sent.
//
// A file with no recorded version, or one recorded without a digest, is always sent.
// Otherwise it's sent only if its digest differs (case insensitively) from the recorded one.
// A file removed since it was collected is not sent.
func (f *ChangeFilter) Changed(ctx context.Context, file *FileInfo) (string, bool, error) {
	last, err := f.versions.LatestFileVersion(ctx, f.sourceID, file.Rel)
	if err != nil && !errors.Is(err, ie.ErrNotFound) {
		return "", false, err
	}

	digest, err := SumFile(f.fs, f.hasher, file.Path)
	if errors.Is(err, os.ErrNotExist) {
		f.log.Warn("file removed since it was collected, skipping", zap.String("path", file.Path))
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to hash %s: %w", file.Path, err)
	}

	if last == nil || last.ContentDigest == "" {
		f.log.Debug("no recorded digest", zap.String("path", file.Rel))
		return digest, true, nil
	}

	return digest, !strings.EqualFold(digest, last.ContentDigest), nil
}
