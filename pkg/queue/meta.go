package queue

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/voidshard/b2b/pkg/structs"
)

// Meta includes all of the information we need to process a queued run.
type Meta struct {
	// TaskID is the queue's ID for this run
	TaskID string

	Request *structs.RunRequest

	// Retried is how many times this run has been attempted before, MaxRetry the limit
	Retried  int
	MaxRetry int

	err  error
	skip bool
	msg  string
}

// SetError will cause the run to be marked as errored.
//
// Errored runs may be retried (depending on settings).
func (m *Meta) SetError(err error) {
	m.err = err
}

// SetSkip means the run must not be retried, whether or not an error is set.
//
// Skip trumps Errored; we're essentially saying "trying again won't help."
func (m *Meta) SetSkip() {
	m.skip = true
}

// SetMessage will set a message on the run.
func (m *Meta) SetMessage(in string) {
	m.msg = in
}

// Message returns the message set on the run, if any.
func (m *Meta) Message() string {
	return m.msg
}

// result is what we return to the queue
func (m *Meta) result() error {
	if m.err == nil {
		return nil
	}
	if m.skip {
		return fmt.Errorf("%w: %w", m.err, asynq.SkipRetry)
	}
	return m.err
}

// Err returns the error set on the run, if any.
func (m *Meta) Err() error {
	return m.err
}

// Skipped returns if the run will not be retried.
func (m *Meta) Skipped() bool {
	return m.skip
}
