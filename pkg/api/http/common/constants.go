package common

const (
	// API_JOBS lists job names
	API_JOBS = "/api/v1/jobs"

	// API_JOB_INSTANCES lists the instances of a job
	API_JOB_INSTANCES = "/api/v1/jobs/{name}/instances"

	// API_JOB_RUNNING lists the running executions of a job
	API_JOB_RUNNING = "/api/v1/jobs/{name}/running"

	// API_INSTANCE_EXECUTIONS lists the executions of an instance
	API_INSTANCE_EXECUTIONS = "/api/v1/instances/{id}/executions"

	// API_EXECUTION gets an execution
	API_EXECUTION = "/api/v1/executions/{id}"

	// API_STOP asks a running execution to stop
	API_STOP = "/api/v1/executions/{id}/stop"

	// API_ABANDON abandons an execution that will never be restarted
	API_ABANDON = "/api/v1/executions/{id}/abandon"

	// API_RUNS queues a run
	API_RUNS = "/api/v1/runs"

	// API_HEALTH is the health check
	API_HEALTH = "/healthz"

	// API_METRICS serves prometheus metrics
	API_METRICS = "/metrics"
)
