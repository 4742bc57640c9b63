package database

import (
	"context"

	"github.com/voidshard/b2b/pkg/structs"
)

// Database is the storage layer for job metadata & file versions.
//
// Implementations must provide atomic single record writes; UpdateExecution in particular
// is a compare-and-swap on the execution's version. No other locking is assumed so many
// processes may share one Database.
type Database interface {
	// InsertInstance inserts a new instance & sets its ID.
	// Returns errors.ErrAlreadyExists if the (name, job key) pair is taken.
	InsertInstance(ctx context.Context, in *structs.JobInstance) error

	// Instances returns instances matching the query (JobNames, JobKeys, InstanceIDs)
	// ordered by ID descending.
	Instances(ctx context.Context, q *structs.Query) ([]*structs.JobInstance, error)

	// JobNames returns the distinct instance names, sorted.
	JobNames(ctx context.Context) ([]string, error)

	// InsertExecution inserts an execution. If the ID is 0 a new ID is allocated & set,
	// otherwise the execution is inserted with the given ID only if no record with that
	// ID exists yet (first write wins).
	// An instance has at most one execution without an end time; inserting a second
	// returns errors.ErrAlreadyRunning.
	InsertExecution(ctx context.Context, in *structs.JobExecution) error

	// UpdateExecution writes the execution iff the stored version equals expectVersion.
	// Returns the number of records altered (0 or 1).
	UpdateExecution(ctx context.Context, in *structs.JobExecution, expectVersion int32) (int64, error)

	// Executions returns executions matching the query (InstanceIDs, ExecutionIDs,
	// Statuses, Running) in the query's Sort order.
	Executions(ctx context.Context, q *structs.Query) ([]*structs.JobExecution, error)

	// LatestFileVersion returns the most recently backed up version of a path.
	// Returns errors.ErrNotFound if there is none.
	LatestFileVersion(ctx context.Context, sourceID, path string) (*structs.FileVersion, error)

	// InsertFileVersion records a new file version.
	InsertFileVersion(ctx context.Context, in *structs.FileVersion) error

	Close() error
}
