package utils

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

func setDefaults(cfg *tls.Config) {
	cfg.MinVersion = tls.VersionTLS12
	cfg.CurvePreferences = []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256}
	cfg.CipherSuites = []uint16{
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	}
}

// TLSFiles names PEM files for a TLS config. All empty means no TLS.
type TLSFiles struct {
	CACert string
	Cert   string
	Key    string
}

func (f *TLSFiles) empty() bool {
	return f == nil || (f.CACert == "" && f.Cert == "" && f.Key == "")
}

// ServerTLSConfig returns a config for a listener, or nil if no files are given.
// A server needs both a cert & key.
func ServerTLSConfig(files *TLSFiles) (*tls.Config, error) {
	if files.empty() {
		return nil, nil
	}
	if files.Cert == "" || files.Key == "" {
		return nil, fmt.Errorf("tls server requires both a cert and key")
	}

	cfg := &tls.Config{}
	setDefaults(cfg)

	cert, err := tls.LoadX509KeyPair(files.Cert, files.Key)
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{cert}

	return cfg, nil
}

// ClientTLSConfig returns a config for dialing a TLS server, or nil if no files are given.
func ClientTLSConfig(files *TLSFiles) (*tls.Config, error) {
	if files.empty() {
		return nil, nil
	}

	cfg := &tls.Config{}
	setDefaults(cfg)

	if files.Cert != "" && files.Key != "" {
		cert, err := tls.LoadX509KeyPair(files.Cert, files.Key)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if files.CACert != "" {
		pool, err := loadCertPool(files.CACert)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
