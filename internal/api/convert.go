package api

import (
	"reel/internal/deps"
	"reel/internal/history"
	"reel/internal/media/ffprobe"
	"reel/internal/profiles"
	"reel/internal/queue"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:         job.ID,
		Input:      job.InputRef,
		Output:     job.OutputRef,
		Operation:  job.Operation,
		Parameters: job.Parameters,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Error:      job.Error,
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if job.StartedAt != nil {
		view.StartedAt = job.StartedAt.UTC().Format(dateTimeFormat)
	}
	if job.CompletedAt != nil {
		view.CompletedAt = job.CompletedAt.UTC().Format(dateTimeFormat)
	}
	if job.Result != nil {
		view.ProcessingSeconds = job.Result.ProcessingTime.Seconds()
	}
	return view
}

// FromJobs converts a job slice preserving order.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// FromStats converts pool counters.
func FromStats(stats queue.Stats) StatsView {
	return StatsView{
		Submitted:     stats.Submitted,
		Completed:     stats.Completed,
		Failed:        stats.Failed,
		Cancelled:     stats.Cancelled,
		Processing:    stats.Processing,
		QueueDepth:    stats.QueueDepth,
		ActiveWorkers: stats.ActiveWorkers,
	}
}

// FromProfile converts a catalog profile.
func FromProfile(name string, profile profiles.Profile) ProfileView {
	return ProfileView{
		Name:        name,
		Description: profile.Description,
		Operation:   profile.Operation,
		Parameters:  profile.Parameters,
	}
}

// FromWorkflow converts a catalog workflow.
func FromWorkflow(name string, workflow profiles.Workflow) WorkflowView {
	return WorkflowView{
		Name:        name,
		Description: workflow.Description,
		Profiles:    workflow.Profiles,
	}
}

// FromProbe converts an ffprobe result for a path.
func FromProbe(path string, info ffprobe.Info) MediaInfo {
	return MediaInfo{
		Path:      path,
		Duration:  info.Duration,
		SizeBytes: info.SizeBytes,
		BitRate:   info.BitRate,
		Width:     info.Width,
		Height:    info.Height,
		Codec:     info.Codec,
		FrameRate: info.FrameRate,
	}
}

// FromDependencies converts binary availability checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	views := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		views = append(views, DependencyStatus{
			Name:      status.Name,
			Command:   status.Command,
			Available: status.Available,
			Detail:    status.Detail,
		})
	}
	return views
}

// FromEvent converts a recorded job transition.
func FromEvent(event history.Event) EventView {
	view := EventView{
		JobID:     event.JobID,
		Event:     event.Event,
		Status:    event.Status,
		Progress:  event.Progress,
		Error:     event.Error,
		Operation: event.Operation,
		Input:     event.InputRef,
		Output:    event.OutputRef,
	}
	if !event.RecordedAt.IsZero() {
		view.RecordedAt = event.RecordedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromEvents converts an event slice preserving order.
func FromEvents(events []history.Event) []EventView {
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, FromEvent(event))
	}
	return views
}
