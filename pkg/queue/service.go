package queue

import (
	"context"

	"github.com/voidshard/b2b/pkg/structs"
)

// Service is the cut down interface a queue worker needs to carry out a run
// (implemented by pipeline.Launcher).
type Service interface {
	// Run backs up per the job parameters as a new execution of the job
	Run(ctx context.Context, jobName string, params structs.JobParameters) (*structs.JobExecution, error)
}
