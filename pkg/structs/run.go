package structs

// RunRequest asks for a backup job to be run.
type RunRequest struct {
	// JobName is the name of the job
	JobName string `json:"job_name"`

	// Parameters identify the job instance (source root, target host & port ..)
	Parameters JobParameters `json:"parameters"`
}

// RunResponse is returned when a run is queued.
type RunResponse struct {
	// QueueTaskID is the ID of the run in the queue
	QueueTaskID string `json:"queue_task_id"`
}
