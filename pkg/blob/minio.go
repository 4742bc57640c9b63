package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/files"
)

const (
	defMinioBucket = "b2b-backups"

	minioPrefix = "files/"

	metaPath      = "B2b-Path"
	metaSource    = "B2b-Source"
	metaDigest    = "B2b-Digest"
	metaAlgorithm = "B2b-Algorithm"
)

// MinioOptions configure a MinIO (or any S3 compatible) blob store
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio is a BlobStore in an S3 bucket. Each version of a path is an object
// `files/<path>/<unix nano>`, zero padded so the lexically last key is the latest.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio returns a store over the given bucket, creating the bucket if needed
func NewMinio(ctx context.Context, opts *MinioOptions) (*Minio, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w minio endpoint is required", errors.ErrInvalidArg)
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		bucket = defMinioBucket
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, err
		}
	}

	return &Minio{client: client, bucket: bucket}, nil
}

func (s *Minio) PutFile(ctx context.Context, meta *Meta, r io.Reader) (*BlobInfo, error) {
	hasher, err := files.NewHasher(meta.Algorithm)
	if err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	key := objectKey(meta.Path, now.UnixNano())
	h := hasher.New()

	info, err := s.client.PutObject(ctx, s.bucket, key, io.TeeReader(r, h), meta.Size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			metaPath:      meta.Path,
			metaSource:    meta.SourceID,
			metaDigest:    meta.Digest,
			metaAlgorithm: hasher.Algorithm(),
		},
	})
	if err != nil {
		return nil, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(digest, meta.Digest) {
		s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
		return nil, fmt.Errorf("%w %s: sent %s, received %s", errors.ErrDigestMismatch, meta.Path, meta.Digest, digest)
	}

	return &BlobInfo{
		ID:        key,
		Path:      meta.Path,
		SourceID:  meta.SourceID,
		Digest:    digest,
		Algorithm: hasher.Algorithm(),
		Size:      info.Size,
		StoredAt:  now,
	}, nil
}

func (s *Minio) GetLatestVersion(ctx context.Context, p string) (*BlobInfo, error) {
	latest := ""
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix(p)}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key > latest {
			latest = obj.Key
		}
	}
	if latest == "" {
		return nil, fmt.Errorf("%w no stored version of %s", errors.ErrNotFound, p)
	}

	stat, err := s.client.StatObject(ctx, s.bucket, latest, minio.StatObjectOptions{})
	if err != nil {
		return nil, toMinioError(err, latest)
	}
	return toBlobInfo(&stat), nil
}

func (s *Minio) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if !strings.HasPrefix(id, minioPrefix) {
		return nil, fmt.Errorf("%w blob id %q", errors.ErrInvalidArg, id)
	}
	_, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		return nil, toMinioError(err, id)
	}
	return s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
}

// objectPrefix returns the key prefix all versions of a path share
func objectPrefix(p string) string {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	return minioPrefix + clean + "/"
}

// objectKey returns the key of a version of a path stored at the given time
func objectKey(p string, unixNano int64) string {
	return fmt.Sprintf("%s%020d", objectPrefix(p), unixNano)
}

func toBlobInfo(stat *minio.ObjectInfo) *BlobInfo {
	info := &BlobInfo{
		ID:        stat.Key,
		Path:      stat.UserMetadata[metaPath],
		SourceID:  stat.UserMetadata[metaSource],
		Digest:    stat.UserMetadata[metaDigest],
		Algorithm: stat.UserMetadata[metaAlgorithm],
		Size:      stat.Size,
		StoredAt:  stat.LastModified,
	}
	// the key's suffix is more precise than LastModified
	if i := strings.LastIndex(stat.Key, "/"); i >= 0 {
		if nano, err := strconv.ParseInt(stat.Key[i+1:], 10, 64); err == nil {
			info.StoredAt = timeFromUnixNano(nano)
		}
	}
	return info
}

func toMinioError(err error, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w blob %s", errors.ErrNotFound, key)
	}
	return err
}
