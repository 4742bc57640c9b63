package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/queue"
	"github.com/voidshard/b2b/pkg/repository"
	"github.com/voidshard/b2b/pkg/structs"
)

const (
	// max values
	maxJobNameLength = 500
	maxParameters    = 100
)

var timeNow = time.Now

// Options for a Service
type Options struct {
	// MaxRunTime is the longest an execution may run before the reaper asks it to stop.
	// An execution that is still STOPPING MaxRunTime after that is abandoned.
	MaxRunTime time.Duration

	// TidyFrequency is how often the reaper looks over running executions.
	// Zero disables reaping.
	TidyFrequency time.Duration

	Logger *zap.Logger
}

// Service implements the status API over the job repository & run queue.
type Service struct {
	repo *repository.Repository
	qu   queue.Queue
	opts *Options
	log  *zap.Logger
}

// NewService returns a new Service. The queue may be nil, in which case runs can't be requested.
func NewService(repo *repository.Repository, qu queue.Queue, opts *Options) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w repository required", ie.ErrInvalidArg)
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{repo: repo, qu: qu, opts: opts, log: opts.Logger}, nil
}

func (c *Service) Close() error {
	if c.qu != nil {
		c.qu.Close()
	}
	return c.repo.Close()
}

func (c *Service) JobNames(ctx context.Context) ([]string, error) {
	return c.repo.ListJobNames(ctx)
}

func (c *Service) Instances(ctx context.Context, name string, offset, limit int) ([]*structs.JobInstance, error) {
	if name == "" {
		return nil, fmt.Errorf("%w job name required", ie.ErrInvalidArg)
	}
	return c.repo.ListInstances(ctx, name, offset, limit)
}

func (c *Service) RunningExecutions(ctx context.Context, name string) ([]*structs.JobExecution, error) {
	if name == "" {
		return nil, fmt.Errorf("%w job name required", ie.ErrInvalidArg)
	}
	return c.repo.FindRunningExecutions(ctx, name)
}

func (c *Service) Executions(ctx context.Context, instanceID int64) ([]*structs.JobExecution, error) {
	in, err := c.repo.GetInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("%w job instance %d", ie.ErrNotFound, instanceID)
	}
	return c.repo.FindExecutions(ctx, in)
}

func (c *Service) Execution(ctx context.Context, id int64) (*structs.JobExecution, error) {
	exec, err := c.repo.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, fmt.Errorf("%w job execution %d", ie.ErrNotFound, id)
	}
	return exec, nil
}

func (c *Service) Stop(ctx context.Context, id int64) (*structs.JobExecution, error) {
	return c.repo.Stop(ctx, id)
}

func (c *Service) Abandon(ctx context.Context, id int64) (*structs.JobExecution, error) {
	return c.repo.Abandon(ctx, id)
}

// Run validates & queues a run request
func (c *Service) Run(ctx context.Context, req *structs.RunRequest) (*structs.RunResponse, error) {
	err := validateRunRequest(req)
	if err != nil {
		return nil, err
	}
	if c.qu == nil {
		return nil, fmt.Errorf("%w no run queue configured", ie.ErrNotSupported)
	}
	id, err := c.qu.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	c.log.Info("run queued", zap.String("job", req.JobName), zap.String("task", id))
	return &structs.RunResponse{QueueTaskID: id}, nil
}

// ReapForever periodically tidies running executions until ctx is done.
func (c *Service) ReapForever(ctx context.Context) {
	if c.opts.TidyFrequency <= 0 || c.opts.MaxRunTime <= 0 {
		return
	}
	tick := time.NewTicker(c.opts.TidyFrequency)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			err := c.Reap(ctx)
			if err != nil {
				c.log.Error("failed to reap executions", zap.Error(err))
			}
		}
	}
}

// Reap asks executions running longer than MaxRunTime to stop, and abandons those
// that were asked to stop but still haven't MaxRunTime later (ie. their worker died).
func (c *Service) Reap(ctx context.Context) error {
	names, err := c.repo.ListJobNames(ctx)
	if err != nil {
		return err
	}

	now := timeNow()
	for _, name := range names {
		running, err := c.repo.FindRunningExecutions(ctx, name)
		if err != nil {
			return err
		}
		for _, exec := range running {
			err = c.reap(ctx, now, exec)
			if errors.Is(err, ie.ErrInvalidState) || errors.Is(err, ie.ErrNotFound) {
				// it finished in the meantime
				continue
			} else if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Service) reap(ctx context.Context, now time.Time, exec *structs.JobExecution) error {
	started := exec.CreateTime
	if exec.StartTime != nil {
		started = *exec.StartTime
	}

	switch {
	case exec.Status == structs.STOPPING && now.Sub(exec.LastUpdated) > c.opts.MaxRunTime:
		c.log.Warn("abandoning execution that failed to stop", zap.Int64("execution", exec.ID), zap.Time("last_updated", exec.LastUpdated))
		_, err := c.repo.Abandon(ctx, exec.ID)
		return err
	case exec.Status != structs.STOPPING && now.Sub(started) > c.opts.MaxRunTime:
		c.log.Warn("stopping overlong execution", zap.Int64("execution", exec.ID), zap.Time("started", started))
		_, err := c.repo.Stop(ctx, exec.ID)
		return err
	}
	return nil
}

func validateRunRequest(req *structs.RunRequest) error {
	if req == nil {
		return fmt.Errorf("%w run request required", ie.ErrInvalidArg)
	}
	if req.JobName == "" || len(req.JobName) > maxJobNameLength {
		return fmt.Errorf("%w job name must be 1-%d chars", ie.ErrInvalidArg, maxJobNameLength)
	}
	if len(req.Parameters) > maxParameters {
		return fmt.Errorf("%w at most %d parameters", ie.ErrInvalidArg, maxParameters)
	}
	_, err := structs.ToBackupConfig(req.Parameters)
	return err
}
