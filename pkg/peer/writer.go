package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/files"
)

const (
	defSendTimeout = 10 * time.Minute

	// how much of an error response we'll read to report
	maxErrorBody = 1024
)

// WriterOptions configure a Writer
type WriterOptions struct {
	Hostname string
	Port     int

	// SendTimeout bounds a single file transfer, including waiting for the ack.
	// Defaults to 10 minutes.
	SendTimeout time.Duration

	Logger *zap.Logger
}

// Item is a file to send
type Item struct {
	File      *files.FileInfo
	Digest    string
	Algorithm string
	SourceID  string
}

// Writer sends files to a peer one at a time, one connection per file
type Writer struct {
	fs     afero.Fs
	client *http.Client
	url    string
	log    *zap.Logger
}

// NewWriter returns a writer to the given peer reading files from fs
func NewWriter(fs afero.Fs, opts *WriterOptions) *Writer {
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defSendTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Writer{
		fs:  fs,
		log: log,
		url: fmt.Sprintf("http://%s%s", net.JoinHostPort(opts.Hostname, strconv.Itoa(opts.Port)), PathFiles),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		},
	}
}

// Send transmits one file & waits for the peer to acknowledge it. Any failure is
// returned wrapping ErrTransfer; nothing is retried.
func (w *Writer) Send(ctx context.Context, item *Item) (*Ack, error) {
	f, err := w.fs.Open(item.File.Path)
	if err != nil {
		return nil, fmt.Errorf("%w failed to open %s: %v", errors.ErrTransfer, item.File.Path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w failed to stat %s: %v", errors.ErrTransfer, item.File.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, w.url, f)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrTransfer, err)
	}
	req.ContentLength = st.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(HeaderPath, encodeHeader(item.File.Rel))
	req.Header.Set(HeaderDigest, item.Digest)
	req.Header.Set(HeaderDigestAlgorithm, item.Algorithm)
	req.Header.Set(HeaderSource, encodeHeader(item.SourceID))

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", errors.ErrTransfer, item.File.Rel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%w %w %s: %s", errors.ErrTransfer, errors.ErrDigestMismatch, item.File.Rel, msg)
		}
		return nil, fmt.Errorf("%w %s: peer returned %d %s", errors.ErrTransfer, item.File.Rel, resp.StatusCode, msg)
	}

	ack := &Ack{}
	err = json.NewDecoder(resp.Body).Decode(ack)
	if err != nil {
		return nil, fmt.Errorf("%w %s: bad ack: %v", errors.ErrTransfer, item.File.Rel, err)
	}
	if !strings.EqualFold(ack.Digest, item.Digest) {
		return nil, fmt.Errorf("%w %w %s: sent %s, peer acknowledged %s", errors.ErrTransfer, errors.ErrDigestMismatch, item.File.Rel, item.Digest, ack.Digest)
	}

	w.log.Debug("file sent", zap.String("path", item.File.Rel), zap.Int64("size", ack.Size), zap.String("blob", ack.BlobID))
	return ack, nil
}
