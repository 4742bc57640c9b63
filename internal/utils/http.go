package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	shutdownWait = 30 * time.Second
)

// Serve runs the server until ctx is cancelled, then shuts it down gracefully.
// If tlsConfig is set the server listens with TLS.
func Serve(ctx context.Context, srv *http.Server, tlsConfig *tls.Config, log *zap.Logger) error {
	srv.TLSConfig = tlsConfig

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", tlsConfig != nil))
		var err error
		if tlsConfig != nil {
			err = srv.ListenAndServeTLS("", "") // certs come from TLSConfig
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	log.Info("shutting down", zap.String("addr", srv.Addr))
	return srv.Shutdown(sctx)
}

// LoggingMiddleware logs each request at debug level
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("uri", r.RequestURI),
				zap.Int64("content_length", r.ContentLength),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
