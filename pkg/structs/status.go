package structs

import (
	"strings"
)

// Status is the status of a job execution.
//
// Statuses are ordered by severity (the order of the constants below); see Upgrade.
type Status string

const (
	// transient states
	STARTING Status = "STARTING"
	STARTED  Status = "STARTED"
	STOPPING Status = "STOPPING"

	// end states
	STOPPED   Status = "STOPPED"
	COMPLETED Status = "COMPLETED"
	FAILED    Status = "FAILED"
	ABANDONED Status = "ABANDONED"
)

var severity = map[Status]int{
	STARTING:  1,
	STARTED:   2,
	STOPPING:  3,
	STOPPED:   4,
	COMPLETED: 5,
	FAILED:    6,
	ABANDONED: 7,
}

// IsFinalStatus returns true if an execution in this status is no longer running.
func IsFinalStatus(status Status) bool {
	switch status {
	case STOPPED, COMPLETED, FAILED, ABANDONED:
		return true
	default:
		return false
	}
}

// IsTerminalStatus returns true for statuses an execution can never leave.
func IsTerminalStatus(status Status) bool {
	switch status {
	case COMPLETED, FAILED, ABANDONED:
		return true
	default:
		return false
	}
}

// IsRunningStatus returns true for statuses of an execution that is in flight.
func IsRunningStatus(status Status) bool {
	switch status {
	case STARTING, STARTED, STOPPING:
		return true
	default:
		return false
	}
}

// Upgrade returns whichever of the two statuses is the more severe. A status
// never moves backwards through an Upgrade. Unknown statuses lose to known ones.
func (s Status) Upgrade(other Status) Status {
	if severity[other] > severity[s] {
		return other
	}
	return s
}

// IsValid returns true if this is a known status.
func (s Status) IsValid() bool {
	_, ok := severity[s]
	return ok
}

func ToStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "STARTING":
		return STARTING
	case "STARTED":
		return STARTED
	case "STOPPING":
		return STOPPING
	case "STOPPED":
		return STOPPED
	case "COMPLETED":
		return COMPLETED
	case "FAILED":
		return FAILED
	case "ABANDONED":
		return ABANDONED
	default:
		return ""
	}
}

// ExitCode describes how an execution finished (or that it hasn't).
type ExitCode string

const (
	ExitUnknown   ExitCode = "UNKNOWN"
	ExitExecuting ExitCode = "EXECUTING"
	ExitCompleted ExitCode = "COMPLETED"
	ExitNoop      ExitCode = "NOOP"
	ExitFailed    ExitCode = "FAILED"
	ExitStopped   ExitCode = "STOPPED"
)
