package queue

import (
	"crypto/tls"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	defMaxRetry    = 3
	defTimeout     = 24 * time.Hour
	defConcurrency = 1
)

// Options are options for the queue.
type Options struct {
	// URL is the host:port of redis
	URL      string
	Password string
	DB       int

	// TLSConfig needed to connect to the queue (optional).
	TLSConfig *tls.Config

	// MaxRetry is how many times a failed run is retried, negative for never
	MaxRetry int

	// Timeout is the longest a single run may take
	Timeout time.Duration

	// Concurrency is the number of runs a worker processes at once
	Concurrency int

	Logger *zap.Logger
}

func (o *Options) setDefaults() {
	if o.MaxRetry < 0 {
		o.MaxRetry = 0
	} else if o.MaxRetry == 0 {
		o.MaxRetry = defMaxRetry
	}
	if o.Timeout <= 0 {
		o.Timeout = defTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defConcurrency
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func (o *Options) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      o.URL,
		Password:  o.Password,
		DB:        o.DB,
		TLSConfig: o.TLSConfig,
	}
}
