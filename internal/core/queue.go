package core

import (
	"context"
	"errors"

	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/queue"
)

// Worker carries out queued runs.
type Worker struct {
	svc queue.Service
	log *zap.Logger
}

// NewWorker returns a Worker that runs backups with svc
func NewWorker(svc queue.Service, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{svc: svc, log: log}
}

// Handle is a queue.Handler. Runs that can't succeed on retry (bad parameters, or the
// instance is already running) are skipped rather than retried.
func (w *Worker) Handle(ctx context.Context, work *queue.Meta) {
	log := w.log.With(zap.String("task", work.TaskID), zap.String("job", work.Request.JobName))

	exec, err := w.svc.Run(ctx, work.Request.JobName, work.Request.Parameters)
	if exec != nil {
		work.SetMessage(exec.ExitMessage)
		log = log.With(zap.Int64("execution", exec.ID), zap.String("status", string(exec.Status)))
	}
	if err == nil {
		log.Info("run finished")
		return
	}

	work.SetError(err)
	if isPermanent(err) {
		work.SetSkip()
	}
	log.Warn("run failed", zap.Int("retried", work.Retried), zap.Int("max_retry", work.MaxRetry), zap.Error(err))
}

func isPermanent(err error) bool {
	for _, e := range []error{ie.ErrAlreadyRunning, ie.ErrInvalidArg, ie.ErrNotSupported} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
