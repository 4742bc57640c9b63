package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	ie "github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

// SaveExecution persists a new execution & sets its ID. The execution's Version is 0
// after a save.
func (r *Repository) SaveExecution(ctx context.Context, exec *structs.JobExecution) error {
	if exec.ID != 0 {
		return fmt.Errorf("%w execution %d is already saved", ie.ErrInvalidArg, exec.ID)
	}
	if exec.InstanceID == 0 {
		return fmt.Errorf("%w execution requires an instance id", ie.ErrInvalidArg)
	}
	if !exec.Status.IsValid() {
		return fmt.Errorf("%w execution status %q", ie.ErrInvalidArg, exec.Status)
	}
	if exec.CreateTime.IsZero() {
		return fmt.Errorf("%w execution requires a create time", ie.ErrInvalidArg)
	}

	in, err := r.GetInstanceByID(ctx, exec.InstanceID)
	if err != nil {
		return err
	}
	if in == nil {
		return fmt.Errorf("%w execution references unknown instance %d", ie.ErrInvalidArg, exec.InstanceID)
	}

	exec.Version = 0
	if exec.LastUpdated.IsZero() {
		exec.LastUpdated = exec.CreateTime
	}
	return r.db.InsertExecution(ctx, exec)
}

// UpdateExecution writes the execution iff the stored version still equals exec.Version.
//
// On success exec.Version is incremented & LastUpdated stamped. If someone else wrote
// first an *OptimisticLockError is returned carrying the version we expected & the
// version actually stored; the caller must reload and retry (see Mutate).
func (r *Repository) UpdateExecution(ctx context.Context, exec *structs.JobExecution) error {
	if exec.ID == 0 {
		return fmt.Errorf("%w execution must be saved before it is updated", ie.ErrInvalidArg)
	}

	stored, err := r.GetExecution(ctx, exec.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("%w %d", ie.ErrNoSuchExecution, exec.ID)
	}

	now := timeNow()
	newVersion := exec.Version + 1

	write := exec.Copy()
	write.Version = newVersion
	write.LastUpdated = now

	count, err := r.db.UpdateExecution(ctx, write, exec.Version)
	if err != nil {
		return err
	}
	if count == 0 {
		current, err := r.GetExecution(ctx, exec.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w %d", ie.ErrNoSuchExecution, exec.ID)
		}
		return &ie.OptimisticLockError{ID: exec.ID, Expected: exec.Version, Actual: current.Version}
	}

	exec.Version = newVersion
	exec.LastUpdated = now
	return nil
}

// Mutate applies fn to the execution & writes it. If the write loses an optimistic lock
// race the execution is reloaded from the store (overwriting exec) and fn is applied
// again, with exponential backoff between attempts.
//
// An error from fn aborts without writing.
func (r *Repository) Mutate(ctx context.Context, exec *structs.JobExecution, fn func(*structs.JobExecution) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.ConflictInterval

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			stored, err := r.GetExecution(ctx, exec.ID)
			if err != nil {
				return backoff.Permanent(err)
			}
			if stored == nil {
				return backoff.Permanent(fmt.Errorf("%w %d", ie.ErrNoSuchExecution, exec.ID))
			}
			*exec = *stored
		}

		err := fn(exec)
		if err != nil {
			return backoff.Permanent(err)
		}

		err = r.UpdateExecution(ctx, exec)
		if errors.Is(err, ie.ErrOptimisticLock) {
			r.log.Debug("execution update conflict, retrying", zap.Int64("execution", exec.ID), zap.Int("attempt", attempt), zap.Error(err))
			return err
		} else if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, r.opts.ConflictRetries), ctx))
}

// FindExecutions returns all executions of the instance, newest id first.
func (r *Repository) FindExecutions(ctx context.Context, instance *structs.JobInstance) ([]*structs.JobExecution, error) {
	return r.executions(ctx, &structs.Query{InstanceIDs: []int64{instance.ID}})
}

// GetLastExecution returns the most recently created execution of the instance, or nil
// if it has none. Two executions sharing the latest create time means the store is
// corrupt; ErrInvariantViolation is returned rather than picking one.
func (r *Repository) GetLastExecution(ctx context.Context, instance *structs.JobInstance) (*structs.JobExecution, error) {
	found, err := r.db.Executions(ctx, &structs.Query{
		Limit:       2,
		Sort:        structs.SortCreateTimeDesc,
		InstanceIDs: []int64{instance.ID},
	})
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	if found[0].CreateTime.Equal(found[1].CreateTime) {
		return nil, fmt.Errorf(
			"%w instance %d has executions %d and %d sharing the latest create time %v",
			ie.ErrInvariantViolation, instance.ID, found[0].ID, found[1].ID, found[0].CreateTime,
		)
	}
	return found[0], nil
}

// FindRunningExecutions returns executions of any instance of the job that have not
// ended, newest id first.
func (r *Repository) FindRunningExecutions(ctx context.Context, jobName string) ([]*structs.JobExecution, error) {
	instances, err := r.instances(ctx, &structs.Query{JobNames: []string{jobName}})
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return []*structs.JobExecution{}, nil
	}

	ids := make([]int64, len(instances))
	for i, in := range instances {
		ids[i] = in.ID
	}

	found, err := r.executions(ctx, &structs.Query{InstanceIDs: ids, Running: true})
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	running := []*structs.JobExecution{}
	for _, e := range found {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		running = append(running, e)
	}
	return running, nil
}

// GetExecution returns the execution with the given id, or nil if there isn't one.
func (r *Repository) GetExecution(ctx context.Context, id int64) (*structs.JobExecution, error) {
	found, err := r.db.Executions(ctx, &structs.Query{Limit: 1, ExecutionIDs: []int64{id}})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// SynchronizeStatus reconciles exec with the stored record without clobbering newer
// stored state. If nothing is stored for the execution yet it is written (first write
// wins). If the stored version differs, exec's status is upgraded to the stored status
// (never moving backwards) & exec adopts the stored version.
func (r *Repository) SynchronizeStatus(ctx context.Context, exec *structs.JobExecution) error {
	if exec.ID == 0 {
		return fmt.Errorf("%w execution must be saved before it is synchronized", ie.ErrInvalidArg)
	}

	stored, err := r.GetExecution(ctx, exec.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		in, err := r.GetInstanceByID(ctx, exec.InstanceID)
		if err != nil {
			return err
		}
		if in == nil {
			return fmt.Errorf("%w execution %d references unknown instance %d", ie.ErrInvalidArg, exec.ID, exec.InstanceID)
		}

		err = r.db.InsertExecution(ctx, exec.Copy())
		if err != nil {
			return err
		}
		// someone may have beaten us to it
		stored, err = r.GetExecution(ctx, exec.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w %d", ie.ErrNoSuchExecution, exec.ID)
		}
	}

	if stored.Version != exec.Version {
		exec.Status = exec.Status.Upgrade(stored.Status)
		exec.Version = stored.Version
	}
	return nil
}
