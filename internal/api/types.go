package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueJob describes a queue entry in a transport-friendly format.
type QueueJob struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	SourcePath   string        `json:"sourcePath"`
	Status       string        `json:"status"`
	State        string        `json:"state"`
	Voice        string        `json:"voice"`
	RatePercent  int           `json:"ratePercent"`
	OutputDir    string        `json:"outputDir,omitempty"`
	Progress     QueueProgress `json:"progress"`
	Warning      string        `json:"warning,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	FinalFile    string        `json:"finalFile,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *QueueJob      `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitRequest is the payload for enqueuing a new conversion job.
type SubmitRequest struct {
	SourcePath  string `json:"sourcePath"`
	Voice       string `json:"voice,omitempty"`
	RatePercent int    `json:"ratePercent,omitempty"`
	OutputDir   string `json:"outputDir,omitempty"`
}

// Voice describes a narration voice offered by the daemon.
type Voice struct {
	ID          string `json:"id"`
	Locale      string `json:"locale"`
	Language    string `json:"language"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// VoicesResponse wraps the narration voice catalog.
type VoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// QueueListResponse wraps a collection of queue jobs for API responses.
type QueueListResponse struct {
	Jobs []QueueJob `json:"jobs"`
}

// QueueJobResponse wraps a single queue job.
type QueueJobResponse struct {
	Job QueueJob `json:"job"`
}

// CountResponse reports how many rows a maintenance operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}
