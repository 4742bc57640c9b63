package repository

import (
	"time"

	"go.uber.org/zap"
)

const (
	defConflictRetries  = 5
	defConflictInterval = 50 * time.Millisecond
)

// Options for a Repository
type Options struct {
	// Logger, defaults to a no-op logger
	Logger *zap.Logger

	// ConflictRetries is how many times Mutate will reload & reapply a change
	// after losing an optimistic lock race.
	ConflictRetries uint64

	// ConflictInterval is the initial wait between conflict retries (backs off exponentially)
	ConflictInterval time.Duration
}

// OptionsDefault returns default repository options
func OptionsDefault() *Options {
	return &Options{
		Logger:           zap.NewNop(),
		ConflictRetries:  defConflictRetries,
		ConflictInterval: defConflictInterval,
	}
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ConflictRetries == 0 {
		o.ConflictRetries = defConflictRetries
	}
	if o.ConflictInterval <= 0 {
		o.ConflictInterval = defConflictInterval
	}
}
