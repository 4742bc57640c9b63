package main

import (
	"time"

	"github.com/voidshard/b2b/internal/utils"
	"github.com/voidshard/b2b/pkg/api"
	"github.com/voidshard/b2b/pkg/api/http/server"
)

const (
	docApi = `Run the status API server`
)

type optsAPI struct {
	optsGeneral
	optsDatabase
	optsQueue

	Addr    string `long:"addr" env:"ADDR" description:"Address to bind to" default:"localhost:8100"`
	TLSCert string `long:"cert" env:"CERT" description:"Path to TLS certificate"`
	TLSKey  string `long:"key" env:"KEY" description:"Path to TLS key"`

	Reap       bool          `long:"reap" env:"REAP" description:"Stop overlong executions & abandon those whose worker died"`
	MaxRunTime time.Duration `long:"max-run-time" env:"MAX_RUN_TIME" description:"Longest an execution may run before it's reaped" default:"24h"`
}

func (c *optsAPI) Execute(args []string) error {
	// This serves the b2b status API so callers can look at job executions, stop or abandon
	// them & queue runs over HTTP.
	//
	// With --reap it also tidies up after workers that died mid run. Run at most a handful
	// of reaping servers; it's harmless but pointless to have many.
	log := newLogger(c.Debug)
	defer log.Sync()

	tlsCfg, err := utils.ServerTLSConfig(&utils.TLSFiles{Cert: c.TLSCert, Key: c.TLSKey})
	if err != nil {
		return err
	}

	repo, _, err := c.openRepository(log)
	if err != nil {
		return err
	}

	qu, err := c.openQueue(log, 0)
	if err != nil {
		return err
	}

	opts := api.OptionsClientDefault()
	if c.Reap {
		opts = api.OptionsServerDefault()
	}
	opts.MaxRunTime = c.MaxRunTime
	opts.Logger = log

	svc, err := api.NewAPI(repo, qu, opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	go svc.ReapForever(ctx)

	return server.NewServer(c.Addr, tlsCfg, newRegistry(), log).ServeForever(ctx, svc)
}
