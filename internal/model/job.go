package model

// JobStatus is the aggregate outcome of one verification job.
type JobStatus string

const (
	JobStatusQueued         JobStatus = "queued"
	JobStatusRunning        JobStatus = "running"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusPartialFailure JobStatus = "partial_failure"
	JobStatusFailed         JobStatus = "failed"
)

// JobSummary counts step dispositions for one job.
// Invariant: TotalRequested == SkippedExisting + NewlyProcessed.
type JobSummary struct {
	TotalRequested  int      `json:"total_requested"`
	SkippedExisting int      `json:"skipped_existing"`
	NewlyProcessed  int      `json:"newly_processed"`
	SkippedSteps    []string `json:"skipped_steps,omitempty"`
	Successful      int      `json:"successful"`
	Failed          int      `json:"failed"`
}

// JobResult is the structured return of a verification job. Every requested
// step has an entry in Results, whether reconstructed, completed or failed.
type JobResult struct {
	ApplicationID int64                   `json:"application_id"`
	Status        JobStatus               `json:"status"`
	Results       map[string]StepResponse `json:"verification_results"`
	Summary       JobSummary              `json:"summary"`
}
