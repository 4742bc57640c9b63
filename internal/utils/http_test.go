package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "/healthz", logs.All()[0].ContextMap()["uri"])
}

func TestTLSConfigEmpty(t *testing.T) {
	cfg, err := ServerTLSConfig(&TLSFiles{})
	assert.Nil(t, err)
	assert.Nil(t, cfg)

	cfg, err = ClientTLSConfig(nil)
	assert.Nil(t, err)
	assert.Nil(t, cfg)
}

func TestServerTLSConfigNeedsKeyPair(t *testing.T) {
	_, err := ServerTLSConfig(&TLSFiles{Cert: "cert.pem"})
	assert.NotNil(t, err)
}

func TestClientTLSConfigMissingCA(t *testing.T) {
	_, err := ClientTLSConfig(&TLSFiles{CACert: "/nonexistent/ca.pem"})
	assert.NotNil(t, err)
}
