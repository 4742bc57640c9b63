// Package repository is the job metadata ledger: job instances & their executions.
//
// All writes to executions are optimistic; see UpdateExecution. Nothing here takes a
// lock, so any number of processes may share the underlying Database.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voidshard/b2b/pkg/database"
	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

var timeNow = time.Now

// Repository stores JobInstances & JobExecutions.
type Repository struct {
	db   database.Database
	opts *Options
	log  *zap.Logger
}

// New returns a Repository over the given database
func New(db database.Database, opts *Options) *Repository {
	if opts == nil {
		opts = OptionsDefault()
	}
	opts.setDefaults()
	return &Repository{db: db, opts: opts, log: opts.Logger}
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateInstance creates a new instance for the given job name & parameters.
// Returns ErrAlreadyExists if the (name, job key) pair is already taken.
func (r *Repository) CreateInstance(ctx context.Context, name string, params structs.JobParameters) (*structs.JobInstance, error) {
	if name == "" {
		return nil, fmt.Errorf("%w job name is required", errors.ErrInvalidArg)
	}

	existing, err := r.GetInstance(ctx, name, params)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w job instance %s with key %s", errors.ErrAlreadyExists, name, existing.JobKey)
	}

	in := &structs.JobInstance{
		Name:       name,
		JobKey:     structs.JobKey(params),
		Version:    0,
		Parameters: params.Normalize(),
	}
	err = r.db.InsertInstance(ctx, in) // enforces (name, key) uniqueness if we raced someone
	if err != nil {
		return nil, err
	}

	r.log.Debug("created job instance", zap.String("name", name), zap.String("key", in.JobKey), zap.Int64("id", in.ID))
	return in, nil
}

// GetInstance returns the instance for the name & parameters, or nil if there isn't one.
func (r *Repository) GetInstance(ctx context.Context, name string, params structs.JobParameters) (*structs.JobInstance, error) {
	found, err := r.db.Instances(ctx, &structs.Query{
		Limit:    1,
		JobNames: []string{name},
		JobKeys:  []string{structs.JobKey(params)},
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// GetInstanceByID returns the instance with the given id, or nil if there isn't one.
func (r *Repository) GetInstanceByID(ctx context.Context, id int64) (*structs.JobInstance, error) {
	found, err := r.db.Instances(ctx, &structs.Query{Limit: 1, InstanceIDs: []int64{id}})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// ListInstances returns a page of instances of the job, newest first.
// A job name with no instances is an empty list, not an error.
func (r *Repository) ListInstances(ctx context.Context, name string, offset, limit int) ([]*structs.JobInstance, error) {
	q := &structs.Query{Offset: offset, Limit: limit, JobNames: []string{name}}
	q.Sanitize()
	return r.db.Instances(ctx, q)
}

// ListJobNames returns all distinct job names, sorted.
func (r *Repository) ListJobNames(ctx context.Context) ([]string, error) {
	return r.db.JobNames(ctx)
}

// InstanceCount returns the number of instances of the named job (0 if none).
func (r *Repository) InstanceCount(ctx context.Context, name string) (int, error) {
	all, err := r.instances(ctx, &structs.Query{JobNames: []string{name}})
	return len(all), err
}

// GetInstanceForExecution returns the instance the execution belongs to, or nil if
// either doesn't exist.
func (r *Repository) GetInstanceForExecution(ctx context.Context, executionID int64) (*structs.JobInstance, error) {
	exec, err := r.GetExecution(ctx, executionID)
	if err != nil || exec == nil {
		return nil, err
	}
	return r.GetInstanceByID(ctx, exec.InstanceID)
}

// instances pages through every instance matching the query
func (r *Repository) instances(ctx context.Context, q *structs.Query) ([]*structs.JobInstance, error) {
	q.Sanitize()
	all := []*structs.JobInstance{}
	for {
		found, err := r.db.Instances(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
		if len(found) < q.Limit {
			return all, nil
		}
		q.Offset += len(found)
	}
}

// executions pages through every execution matching the query
func (r *Repository) executions(ctx context.Context, q *structs.Query) ([]*structs.JobExecution, error) {
	q.Sanitize()
	all := []*structs.JobExecution{}
	for {
		found, err := r.db.Executions(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
		if len(found) < q.Limit {
			return all, nil
		}
		q.Offset += len(found)
	}
}
