package peer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/internal/utils"
	"github.com/voidshard/b2b/pkg/blob"
	ie "github.com/voidshard/b2b/pkg/errors"
)

const (
	// generous as a single request carries a whole file
	defReadTimeout = 30 * time.Minute
)

var (
	errmap = map[int][]error{
		http.StatusUnprocessableEntity: {ie.ErrDigestMismatch},
		http.StatusNotFound:            {ie.ErrNotFound},
		http.StatusBadRequest: {
			ie.ErrInvalidArg,
			ie.ErrNotSupported,
			ie.ErrTransfer,
		},
	}
)

// ServerOptions configure a peer receiver
type ServerOptions struct {
	Addr        string
	ReadTimeout time.Duration
	Logger      *zap.Logger

	// Registry, if set, has the receiver's metrics registered & is served on /metrics
	Registry *prometheus.Registry
}

// Server receives files from backup sources & stores them in a BlobStore
type Server struct {
	opts    *ServerOptions
	store   blob.BlobStore
	log     *zap.Logger
	metrics *Collector
}

// NewServer returns a receiver storing into the given store
func NewServer(store blob.BlobStore, opts *ServerOptions) (*Server, error) {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defReadTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{opts: opts, store: store, log: log, metrics: NewMetricsCollector()}
	if opts.Registry != nil {
		err := opts.Registry.Register(s.metrics)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the receiver's routes
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(PathHealth, s.Health).Methods(http.MethodGet)
	router.HandleFunc(PathFiles, s.Receive).Methods(http.MethodPut)
	router.HandleFunc(PathFiles, s.Latest).Methods(http.MethodGet)
	router.HandleFunc(PathBlobs+"/{id:.+}", s.Download).Methods(http.MethodGet)
	if s.opts.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.Use(utils.LoggingMiddleware(s.log))
	return router
}

// ServeForever listens until ctx is cancelled
func (s *Server) ServeForever(ctx context.Context) error {
	return utils.Serve(ctx, &http.Server{
		Handler:     s.Handler(),
		Addr:        s.opts.Addr,
		ReadTimeout: s.opts.ReadTimeout,
	}, nil, s.log)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Receive stores one file sent in the request body
func (s *Server) Receive(w http.ResponseWriter, r *http.Request) {
	path, err := decodeHeader(r.Header.Get(HeaderPath))
	if err != nil {
		s.metrics.filesReceived.WithLabelValues("bad_request").Inc()
		http.Error(w, "path header is not escaped correctly", http.StatusBadRequest)
		return
	}
	source, err := decodeHeader(r.Header.Get(HeaderSource))
	if err != nil {
		s.metrics.filesReceived.WithLabelValues("bad_request").Inc()
		http.Error(w, "source header is not escaped correctly", http.StatusBadRequest)
		return
	}

	meta := &blob.Meta{
		Path:      path,
		SourceID:  source,
		Digest:    r.Header.Get(HeaderDigest),
		Algorithm: r.Header.Get(HeaderDigestAlgorithm),
		Size:      r.ContentLength,
	}
	if meta.Path == "" || meta.Digest == "" {
		s.metrics.filesReceived.WithLabelValues("bad_request").Inc()
		http.Error(w, "path and digest headers are required", http.StatusBadRequest)
		return
	}

	info, err := s.store.PutFile(r.Context(), meta, r.Body)
	if err != nil {
		code := mapError(err)
		if errors.Is(err, ie.ErrDigestMismatch) {
			s.metrics.filesReceived.WithLabelValues("digest_mismatch").Inc()
		} else {
			s.metrics.filesReceived.WithLabelValues("error").Inc()
		}
		s.log.Warn("failed to store file", zap.String("path", meta.Path), zap.String("source", meta.SourceID), zap.Error(err))
		http.Error(w, err.Error(), code)
		return
	}

	s.metrics.filesReceived.WithLabelValues("stored").Inc()
	s.metrics.bytesReceived.Add(float64(info.Size))
	s.log.Debug("stored file", zap.String("path", info.Path), zap.String("blob", info.ID), zap.Int64("size", info.Size))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&Ack{
		Path:     info.Path,
		Digest:   info.Digest,
		Size:     info.Size,
		StoredAt: info.StoredAt,
		BlobID:   info.ID,
	})
}

// Latest returns metadata of the latest stored version of ?path=
func (s *Server) Latest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	info, err := s.store.GetLatestVersion(r.Context(), path)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(info)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Download streams the content of a stored blob
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rc, err := s.store.Open(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	n, err := io.Copy(w, rc)
	if err != nil {
		s.log.Warn("failed to send blob", zap.String("blob", id), zap.Error(err))
		return
	}
	s.log.Debug("sent blob", zap.String("blob", id), zap.Int64("size", n))
}

// mapError returns the http status code for an error, or
// http.StatusInternalServerError if the error is not recognised.
func mapError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for code, errs := range errmap {
		for _, e := range errs {
			if errors.Is(err, e) {
				return code
			}
		}
	}
	return http.StatusInternalServerError
}
