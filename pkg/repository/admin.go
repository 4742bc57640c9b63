package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

// Stop asks a running execution to stop by moving it to STOPPING. The process running
// it notices between items & finishes the execution as STOPPED.
func (r *Repository) Stop(ctx context.Context, id int64) (*structs.JobExecution, error) {
	exec, err := r.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, fmt.Errorf("%w execution %d", errors.ErrNotFound, id)
	}

	err = r.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		if !e.IsRunning() {
			return fmt.Errorf("%w execution %d is %s and not running", errors.ErrInvalidState, e.ID, e.Status)
		}
		e.Status = e.Status.Upgrade(structs.STOPPING)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("stop requested", zap.Int64("execution", id))
	return exec, nil
}

// Abandon marks an execution that will never finish (stopped, stopping or failed) as
// ABANDONED & sets its end time, so the instance can be run again.
func (r *Repository) Abandon(ctx context.Context, id int64) (*structs.JobExecution, error) {
	exec, err := r.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, fmt.Errorf("%w execution %d", errors.ErrNotFound, id)
	}

	err = r.Mutate(ctx, exec, func(e *structs.JobExecution) error {
		switch e.Status {
		case structs.STARTING, structs.STARTED:
			return fmt.Errorf("%w execution %d is %s, stop it first", errors.ErrInvalidState, e.ID, e.Status)
		case structs.COMPLETED:
			return fmt.Errorf("%w execution %d is already complete", errors.ErrInvalidState, e.ID)
		}
		e.Status = e.Status.Upgrade(structs.ABANDONED)
		if e.EndTime == nil {
			now := timeNow()
			e.EndTime = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("execution abandoned", zap.Int64("execution", id))
	return exec, nil
}
