package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/repository"
	"github.com/voidshard/b2b/pkg/structs"
)

// Listener records an execution's progress in the repository. Writes that lose an
// optimistic lock race are retried against the reloaded execution; statuses only
// ever Upgrade, so a concurrent STOPPING or ABANDONED is never overwritten.
type Listener struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewListener(repo *repository.Repository, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{repo: repo, log: log}
}

// BeforeJob marks the execution STARTED
func (l *Listener) BeforeJob(ctx context.Context, exec *structs.JobExecution) error {
	now := timeNow()
	return l.repo.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		e.Status = e.Status.Upgrade(structs.STARTED)
		e.ExitCode = structs.ExitExecuting
		if e.StartTime == nil {
			e.StartTime = &now
		}
		return nil
	})
}

// AfterJob marks the execution finished with the given status
func (l *Listener) AfterJob(ctx context.Context, exec *structs.JobExecution, status structs.Status, code structs.ExitCode, msg string) error {
	now := timeNow()
	err := l.repo.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		e.Status = e.Status.Upgrade(status)
		e.ExitCode = code
		e.ExitMessage = msg
		if e.EndTime == nil {
			e.EndTime = &now
		}
		return nil
	})
	if err != nil {
		l.log.Error("failed to record execution end", zap.Int64("execution", exec.ID), zap.String("status", string(status)), zap.Error(err))
	}
	return err
}
