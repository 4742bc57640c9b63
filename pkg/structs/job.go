package structs

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// JobParameters are the scalar inputs of a job. Values should be strings, integers,
// floats, bools or time.Time.
type JobParameters map[string]interface{}

// String returns the parameter rendered as a string, or "" if it's not set.
func (p JobParameters) String(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return ParameterString(v)
}

// Identity is the sorted `key=value;` concatenation of the parameters.
// Two parameter sets identify the same job instance iff their identities are equal.
func (p JobParameters) Identity() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(ParameterString(p[k]))
		b.WriteString(";")
	}
	return b.String()
}

// Copy returns a shallow copy of the parameters.
func (p JobParameters) Copy() JobParameters {
	out := make(JobParameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Normalize returns a copy of the parameters with values in the form they keep after a
// JSON round trip: times become UTC RFC3339 strings & json.Numbers become an int64, or
// a float64 if not integral. Normalized parameters have the same JobKey wherever they
// were decoded.
func (p JobParameters) Normalize() JobParameters {
	out := make(JobParameters, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case time.Time:
			out[k] = ParameterString(t)
		case json.Number:
			if i, err := t.Int64(); err == nil {
				out[k] = i
			} else if f, err := t.Float64(); err == nil {
				out[k] = f
			} else {
				out[k] = t.String()
			}
		default:
			out[k] = v
		}
	}
	return out
}

// JobKey returns the fingerprint of the given parameters: the MD5 of their Identity
// as 32 lowercase hex chars. It doesn't depend on map order.
func JobKey(p JobParameters) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(p.Identity())))
}

// ParameterString renders a single parameter value.
func ParameterString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		// json decodes every number as a float64, this renders 8080.0 as 8080
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// JobInstance is a unique (name, job key) pair.
type JobInstance struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	JobKey  string `json:"job_key"`
	Version int32  `json:"version"`

	Parameters JobParameters `json:"parameters,omitempty"`
}

// JobExecution is a single run of a JobInstance.
type JobExecution struct {
	ID         int64  `json:"id"`
	InstanceID int64  `json:"instance_id"`
	Status     Status `json:"status"`

	ExitCode    ExitCode `json:"exit_code"`
	ExitMessage string   `json:"exit_message"`

	CreateTime  time.Time  `json:"create_time"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	LastUpdated time.Time  `json:"last_updated"`

	// Version is used when updating an execution for optimistic locking
	Version int32 `json:"version"`
}

// NewJobExecution returns an unsaved execution of the given instance in the STARTING state.
func NewJobExecution(instanceID int64, now time.Time) *JobExecution {
	return &JobExecution{
		InstanceID:  instanceID,
		Status:      STARTING,
		ExitCode:    ExitUnknown,
		CreateTime:  now,
		LastUpdated: now,
	}
}

// IsRunning is true if the execution hasn't ended.
func (e *JobExecution) IsRunning() bool {
	return e.EndTime == nil && !IsFinalStatus(e.Status)
}

// Copy returns a deep copy of the execution.
func (e *JobExecution) Copy() *JobExecution {
	out := *e
	if e.StartTime != nil {
		st := *e.StartTime
		out.StartTime = &st
	}
	if e.EndTime != nil {
		et := *e.EndTime
		out.EndTime = &et
	}
	return &out
}
