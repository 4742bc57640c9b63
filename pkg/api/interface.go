package api

import (
	"context"

	"github.com/voidshard/b2b/pkg/structs"
)

// API represents the functions b2b status servers should expose.
type API interface {
	// Implemented in b2b/internal/core.Service

	JobNames(ctx context.Context) ([]string, error)
	Instances(ctx context.Context, name string, offset, limit int) ([]*structs.JobInstance, error)
	RunningExecutions(ctx context.Context, name string) ([]*structs.JobExecution, error)
	Executions(ctx context.Context, instanceID int64) ([]*structs.JobExecution, error)
	Execution(ctx context.Context, id int64) (*structs.JobExecution, error)

	Stop(ctx context.Context, id int64) (*structs.JobExecution, error)
	Abandon(ctx context.Context, id int64) (*structs.JobExecution, error)

	Run(ctx context.Context, req *structs.RunRequest) (*structs.RunResponse, error)
}

type Server interface {
	ServeForever(ctx context.Context, api API) error
}
