package queue

import (
	"context"

	"github.com/voidshard/b2b/pkg/structs"
)

// Handler processes a single queued run. The outcome is reported on the Meta
// (SetError, SetSkip, SetMessage) rather than returned.
type Handler func(ctx context.Context, work *Meta)

type Queue interface {
	// Register the run handler. This is called for each run dequeued once Run is called.
	Register(handler Handler) error

	// Run the queue & process runs (via the Register func). This should block until Close() is called.
	Run() error

	// Enqueue a run request.
	//
	// Returns a unique id for the queued task with which we can call Kill(the-given-id)
	// to (best effort) cancel it.
	Enqueue(ctx context.Context, req *structs.RunRequest) (string, error)

	// Kill a queued task with ID given to us by Enqueue.
	Kill(queuedTaskID string) error

	// Close & shutdown the queue.
	Close() error
}
