package api

import (
	"sort"
	"time"

	"slidecast/internal/queue"
	"slidecast/internal/stage"
	"slidecast/internal/workflow"
)

// FromJob converts a queue job into its transport representation.
func FromJob(job *queue.Job) QueueJob {
	if job == nil {
		return QueueJob{}
	}
	dto := QueueJob{
		ID:           job.ID,
		Title:        job.Title,
		SourcePath:   job.SourcePath,
		Status:       string(job.Status),
		State:        string(job.Status.ExternalState()),
		Voice:        job.Voice,
		RatePercent:  job.RatePercent,
		OutputDir:    job.OutputDir,
		Warning:      job.Warning,
		ErrorMessage: job.ErrorMessage,
		FinalFile:    job.FinalFile,
		Progress: QueueProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a job slice, dropping nils.
func FromJobs(jobs []*queue.Job) []QueueJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]QueueJob, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics into the API shape.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     summary.Running,
		LastError:   summary.LastError,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		dto := FromJob(summary.LastJob)
		status.LastJob = &dto
	}
	return status
}

// MergeQueueStats normalizes stats so every known status has an entry.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = 0
	}
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged
}

// StageHealthSlice flattens the health map into a deterministic order.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// SortJobsNewestFirst orders jobs by CreatedAt descending, breaking ties by
// ID descending.
func SortJobsNewestFirst(jobs []QueueJob) []QueueJob {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]QueueJob, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := ParseQueueTime(sorted[i].CreatedAt)
		tj := ParseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseQueueTime parses API timestamps for display formatting.
func ParseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
