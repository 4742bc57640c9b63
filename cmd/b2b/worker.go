package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voidshard/b2b/internal/core"
	"github.com/voidshard/b2b/internal/utils"
	"github.com/voidshard/b2b/pkg/pipeline"
)

const (
	docWorker = `Run queued backup jobs`
)

type optsWorker struct {
	optsGeneral
	optsDatabase
	optsQueue

	Concurrency int           `long:"concurrency" env:"CONCURRENCY" description:"Runs processed at once" default:"1"`
	SendTimeout time.Duration `long:"send-timeout" env:"SEND_TIMEOUT" description:"Max time to send one file" default:"10m"`
	MetricsAddr string        `long:"metrics-addr" env:"METRICS_ADDR" description:"Serve prometheus metrics on this address"`
}

func (c *optsWorker) Execute(args []string) error {
	// This runs backups requested via. the queue (see `b2b run --remote` or the API).
	// Any number of workers can share a queue; a job instance still only runs once at a time.
	log := newLogger(c.Debug)
	defer log.Sync()

	reg := newRegistry()
	metrics := pipeline.NewMetricsCollector()
	reg.MustRegister(metrics)

	repo, db, err := c.openRepository(log)
	if err != nil {
		return err
	}
	defer repo.Close()

	launcher := pipeline.NewLauncher(repo, db, &pipeline.Options{
		Logger:      log,
		SendTimeout: c.SendTimeout,
		Metrics:     metrics,
	})

	qu, err := c.openQueue(log, c.Concurrency)
	if err != nil {
		return err
	}
	err = qu.Register(core.NewWorker(launcher, log).Handle)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if c.MetricsAddr != "" {
		go func() {
			err := utils.Serve(ctx, &http.Server{
				Addr:    c.MetricsAddr,
				Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			}, nil, log)
			if err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		qu.Close()
	}()

	log.Info("worker started", zap.String("queue", c.QueueURL), zap.Int("concurrency", c.Concurrency))
	return qu.Run()
}
