package structs

const (
	queryLimitDefault = 1000
	queryLimitMax     = 10000
)

// Sort is the order results of a Query are returned in.
type Sort string

const (
	// SortIDDesc returns the newest IDs first (default)
	SortIDDesc Sort = "id"

	// SortCreateTimeDesc returns the most recently created first
	SortCreateTimeDesc Sort = "create_time"
)

type Query struct {
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
	Sort   Sort `json:"sort,omitempty"`

	// Filters
	JobNames     []string `json:"job_names,omitempty"`
	JobKeys      []string `json:"job_keys,omitempty"`
	InstanceIDs  []int64  `json:"instance_ids,omitempty"`
	ExecutionIDs []int64  `json:"execution_ids,omitempty"`
	Statuses     []Status `json:"statuses,omitempty"`

	// Running restricts executions to those with no end time
	Running bool `json:"running,omitempty"`
}

func (q *Query) Sanitize() {
	if q.Limit <= 0 {
		q.Limit = queryLimitDefault
	}
	if q.Limit > queryLimitMax {
		q.Limit = queryLimitMax
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Sort != SortCreateTimeDesc {
		q.Sort = SortIDDesc
	}
	if len(q.JobNames) == 0 {
		q.JobNames = nil
	}
	if len(q.JobKeys) == 0 {
		q.JobKeys = nil
	}
	if len(q.InstanceIDs) == 0 {
		q.InstanceIDs = nil
	}
	if len(q.ExecutionIDs) == 0 {
		q.ExecutionIDs = nil
	}
	if len(q.Statuses) == 0 {
		q.Statuses = nil
	}
}
