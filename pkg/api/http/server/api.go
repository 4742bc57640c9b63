package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/internal/utils"
	"github.com/voidshard/b2b/pkg/api"
	"github.com/voidshard/b2b/pkg/api/http/common"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	timeout = 15 * time.Second
)

type Server struct {
	addr     string
	tls      *tls.Config
	log      *zap.Logger
	registry *prometheus.Registry
	svc      api.API
}

// ServeForever serves the API until ctx is cancelled
func (s *Server) ServeForever(ctx context.Context, svc api.API) error {
	return utils.Serve(ctx, &http.Server{
		Handler:      s.Handler(svc),
		Addr:         s.addr,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
	}, s.tls, s.log)
}

// Handler returns the API routes
func (s *Server) Handler(svc api.API) http.Handler {
	s.svc = svc

	router := mux.NewRouter()
	router.HandleFunc(common.API_HEALTH, s.Health).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOBS, s.JobNames).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB_INSTANCES, s.Instances).Methods(http.MethodGet)
	router.HandleFunc(common.API_JOB_RUNNING, s.RunningExecutions).Methods(http.MethodGet)
	router.HandleFunc(common.API_INSTANCE_EXECUTIONS, s.Executions).Methods(http.MethodGet)
	router.HandleFunc(common.API_EXECUTION, s.Execution).Methods(http.MethodGet)
	router.HandleFunc(common.API_STOP, s.ExecutionOp(s.svc.Stop)).Methods(http.MethodPatch)
	router.HandleFunc(common.API_ABANDON, s.ExecutionOp(s.svc.Abandon)).Methods(http.MethodPatch)
	router.HandleFunc(common.API_RUNS, s.Run).Methods(http.MethodPost)
	if s.registry != nil {
		router.Handle(common.API_METRICS, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.Use(utils.LoggingMiddleware(s.log))
	return router
}

func (s *Server) JobNames(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.JobNames(r.Context())
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	writeJson(w, http.StatusOK, items)
}

func (s *Server) Instances(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := unmarshalPage(w, r)
	if err != nil {
		return
	}

	items, err := s.svc.Instances(r.Context(), mux.Vars(r)["name"], offset, limit)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	s.log.Debug("returned instances", zap.String("url", r.URL.String()), zap.Int("count", len(items)))
	writeJson(w, http.StatusOK, items)
}

func (s *Server) RunningExecutions(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.RunningExecutions(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	writeJson(w, http.StatusOK, items)
}

func (s *Server) Executions(w http.ResponseWriter, r *http.Request) {
	id, err := unmarshalID(w, r)
	if err != nil {
		return
	}

	items, err := s.svc.Executions(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	writeJson(w, http.StatusOK, items)
}

func (s *Server) Execution(w http.ResponseWriter, r *http.Request) {
	id, err := unmarshalID(w, r)
	if err != nil {
		return
	}

	item, err := s.svc.Execution(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	writeJson(w, http.StatusOK, item)
}

// ExecutionOp wraps an administrative operation on a single execution
func (s *Server) ExecutionOp(fn func(context.Context, int64) (*structs.JobExecution, error)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := unmarshalID(w, r)
		if err != nil {
			return
		}

		item, err := fn(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), mapError(err))
			return
		}
		writeJson(w, http.StatusOK, item)
	}
}

func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	req := &structs.RunRequest{}
	err := unmarshalJson(w, r, req)
	if err != nil {
		return
	}

	resp, err := s.svc.Run(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	writeJson(w, http.StatusAccepted, resp)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// NewServer returns an API server listening on addr. TLS is used if tlsConfig is set,
// metrics are served from registry if it is set.
func NewServer(addr string, tlsConfig *tls.Config, registry *prometheus.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		addr:     addr,
		tls:      tlsConfig,
		registry: registry,
		log:      log,
	}
}
