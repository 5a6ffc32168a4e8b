package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobRequest submits one operation against an input file.
type JobRequest struct {
	Input      string         `json:"input"`
	Operation  string         `json:"operation"`
	Output     string         `json:"output,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ProfileJobRequest submits a job using a named profile.
type ProfileJobRequest struct {
	Input   string `json:"input"`
	Profile string `json:"profile"`
	Output  string `json:"output,omitempty"`
}

// WorkflowJobRequest fans one input out into a job per workflow profile.
type WorkflowJobRequest struct {
	Input    string `json:"input"`
	Workflow string `json:"workflow"`
}

// JobView describes a job in a transport-friendly format.
type JobView struct {
	ID                string         `json:"id"`
	Input             string         `json:"input"`
	Output            string         `json:"output"`
	Operation         string         `json:"operation"`
	Parameters        map[string]any `json:"parameters,omitempty"`
	Status            string         `json:"status"`
	Progress          float64        `json:"progress"`
	Error             string         `json:"error,omitempty"`
	CreatedAt         string         `json:"createdAt,omitempty"`
	StartedAt         string         `json:"startedAt,omitempty"`
	CompletedAt       string         `json:"completedAt,omitempty"`
	ProcessingSeconds float64        `json:"processingSeconds,omitempty"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// WorkflowJob names one job spawned by a workflow submission.
type WorkflowJob struct {
	JobID   string `json:"jobId"`
	Profile string `json:"profile"`
}

// WorkflowSubmitResponse reports the jobs created from a workflow.
type WorkflowSubmitResponse struct {
	Workflow string        `json:"workflow"`
	Jobs     []WorkflowJob `json:"jobs"`
}

// StatsView aggregates queue counters for API consumers.
type StatsView struct {
	Submitted     int64 `json:"submitted"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Cancelled     int64 `json:"cancelled"`
	Processing    int64 `json:"processing"`
	QueueDepth    int   `json:"queueDepth"`
	ActiveWorkers int   `json:"activeWorkers"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Workers      int                `json:"workers"`
	Operations   []string           `json:"operations"`
	Stats        StatsView          `json:"stats"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	HistoryPath  string             `json:"historyPath,omitempty"`
	LockFilePath string             `json:"lockFilePath,omitempty"`
}

// DependencyStatus reports whether an external binary is available.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// ProfileView describes a named processing preset.
type ProfileView struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Operation   string         `json:"operation"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// WorkflowView describes a named profile sequence.
type WorkflowView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Profiles    []string `json:"profiles"`
}

// ProfileListResponse wraps the profile catalog.
type ProfileListResponse struct {
	Profiles []ProfileView `json:"profiles"`
}

// WorkflowListResponse wraps the workflow catalog.
type WorkflowListResponse struct {
	Workflows []WorkflowView `json:"workflows"`
}

// MediaInfo carries probe results for an input file.
type MediaInfo struct {
	Path      string  `json:"path"`
	Duration  float64 `json:"duration"`
	SizeBytes int64   `json:"size"`
	BitRate   int64   `json:"bitrate"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Codec     string  `json:"codec"`
	FrameRate float64 `json:"fps"`
}

// EventView describes one recorded job transition.
type EventView struct {
	JobID      string  `json:"jobId"`
	Event      string  `json:"event"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
	Operation  string  `json:"operation"`
	Input      string  `json:"input"`
	Output     string  `json:"output"`
	RecordedAt string  `json:"recordedAt,omitempty"`
}

// EventListResponse wraps recorded job transitions.
type EventListResponse struct {
	Events []EventView `json:"events"`
}

// ErrorResponse is the JSON error envelope for every failing request.
type ErrorResponse struct {
	Error string `json:"error"`
}
