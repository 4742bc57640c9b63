package api

import (
	"time"

	"github.com/voidshard/b2b/internal/core"
)

const (
	defMaxRunTime    = 24 * time.Hour
	defTidyFrequency = 5 * time.Minute
)

// Options passed to the b2b API on creation
type Options = core.Options

// OptionsClientDefault runs a b2b service that does no background reaping.
// This is intended for clients who wish to serve an API or queue runs without
// tidying up after dead workers.
func OptionsClientDefault() *Options {
	return &Options{
		MaxRunTime: defMaxRunTime,
	}
}

// OptionsServerDefault runs a b2b service that periodically stops executions that have
// run longer than MaxRunTime & abandons those whose worker never stopped them.
func OptionsServerDefault() *Options {
	return &Options{
		MaxRunTime:    defMaxRunTime,
		TidyFrequency: defTidyFrequency,
	}
}
