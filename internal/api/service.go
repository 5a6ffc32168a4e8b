package api

import (
	"errors"
	"fmt"
	"os"

	"reel/internal/profiles"
	"reel/internal/queue"
	"reel/internal/services"
)

// JobService validates submissions and exposes job operations returning API
// DTOs. Input files must exist before a job is created; operation names are
// resolved later, at dequeue time.
type JobService struct {
	pool     *queue.Pool
	store    *queue.Store
	registry *queue.Registry
	catalog  *profiles.Catalog
}

// NewJobService constructs a JobService around the pool, store, operation
// registry, and profile catalog.
func NewJobService(pool *queue.Pool, store *queue.Store, registry *queue.Registry, catalog *profiles.Catalog) *JobService {
	return &JobService{pool: pool, store: store, registry: registry, catalog: catalog}
}

// Operations returns the sorted registered operation names.
func (s *JobService) Operations() []string {
	if s.registry == nil {
		return nil
	}
	return s.registry.Names()
}

func (s *JobService) checkInput(input string) error {
	if input == "" {
		return services.Wrap(services.ErrValidation, "submit", "input is required", nil)
	}
	if _, err := os.Stat(input); err != nil {
		return services.Wrap(services.ErrNotFound, "submit", fmt.Sprintf("input file %q not found", input), nil)
	}
	return nil
}

// Submit creates one job. The job never exists when validation fails or the
// pending queue is full.
func (s *JobService) Submit(req JobRequest) (JobView, error) {
	if err := s.checkInput(req.Input); err != nil {
		return JobView{}, err
	}
	job, err := s.pool.Submit(queue.SubmitRequest{
		InputRef:   req.Input,
		Operation:  req.Operation,
		Parameters: queue.Params(req.Parameters),
		OutputRef:  req.Output,
	})
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// SubmitProfile creates one job from a named profile.
func (s *JobService) SubmitProfile(req ProfileJobRequest) (JobView, error) {
	profile, ok := s.catalog.Profile(req.Profile)
	if !ok {
		return JobView{}, services.Wrap(services.ErrNotFound, "submit", fmt.Sprintf("profile %q not found", req.Profile), nil)
	}
	if err := s.checkInput(req.Input); err != nil {
		return JobView{}, err
	}
	job, err := s.pool.Submit(queue.SubmitRequest{
		InputRef:   req.Input,
		Operation:  profile.Operation,
		Parameters: profile.Params(),
		OutputRef:  req.Output,
	})
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// SubmitWorkflow creates one job per workflow profile, in order. A full
// queue partway through reports the jobs already created alongside the
// error.
func (s *JobService) SubmitWorkflow(req WorkflowJobRequest) (WorkflowSubmitResponse, error) {
	workflow, ok := s.catalog.Workflow(req.Workflow)
	if !ok {
		return WorkflowSubmitResponse{}, services.Wrap(services.ErrNotFound, "submit",
			fmt.Sprintf("workflow %q not found", req.Workflow), nil)
	}
	if err := s.checkInput(req.Input); err != nil {
		return WorkflowSubmitResponse{}, err
	}

	response := WorkflowSubmitResponse{Workflow: req.Workflow}
	for _, profileName := range workflow.Profiles {
		profile, ok := s.catalog.Profile(profileName)
		if !ok {
			// Validated at catalog load; a miss here means a stale catalog.
			continue
		}
		job, err := s.pool.Submit(queue.SubmitRequest{
			InputRef:   req.Input,
			Operation:  profile.Operation,
			Parameters: profile.Params(),
		})
		if err != nil {
			return response, err
		}
		response.Jobs = append(response.Jobs, WorkflowJob{JobID: job.ID, Profile: profileName})
	}
	return response, nil
}

// List returns jobs in submission order, optionally filtered by status.
func (s *JobService) List(status string) ([]JobView, error) {
	if status == "" {
		return FromJobs(s.store.List()), nil
	}
	parsed, ok := queue.ParseStatus(status)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "list", fmt.Sprintf("unknown status %q", status), nil)
	}
	return FromJobs(s.store.List(parsed)), nil
}

// Describe fetches a single job.
func (s *JobService) Describe(id string) (JobView, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return JobView{}, services.Wrap(services.ErrNotFound, "describe", fmt.Sprintf("job %q not found", id), nil)
	}
	return FromJob(job), nil
}

// Cancel cancels a pending job. Jobs already claimed by a worker or already
// finished are rejected.
func (s *JobService) Cancel(id string) (JobView, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return JobView{}, services.Wrap(services.ErrNotFound, "cancel", fmt.Sprintf("job %q not found", id), nil)
	}
	if !s.store.Cancel(id) {
		return JobView{}, services.Wrap(services.ErrValidation, "cancel",
			fmt.Sprintf("job %q is %s and cannot be cancelled", id, job.Status), nil)
	}
	cancelled, _ := s.store.Get(id)
	return FromJob(cancelled), nil
}

// Stats returns the pool counters.
func (s *JobService) Stats() StatsView {
	return FromStats(s.pool.Stats())
}

// Profiles returns the catalog profiles sorted by name.
func (s *JobService) Profiles() []ProfileView {
	names := s.catalog.ProfileNames()
	views := make([]ProfileView, 0, len(names))
	for _, name := range names {
		profile, _ := s.catalog.Profile(name)
		views = append(views, FromProfile(name, profile))
	}
	return views
}

// ProfileByName fetches one profile.
func (s *JobService) ProfileByName(name string) (ProfileView, error) {
	profile, ok := s.catalog.Profile(name)
	if !ok {
		return ProfileView{}, services.Wrap(services.ErrNotFound, "profiles", fmt.Sprintf("profile %q not found", name), nil)
	}
	return FromProfile(name, profile), nil
}

// Workflows returns the catalog workflows sorted by name.
func (s *JobService) Workflows() []WorkflowView {
	names := s.catalog.WorkflowNames()
	views := make([]WorkflowView, 0, len(names))
	for _, name := range names {
		workflow, _ := s.catalog.Workflow(name)
		views = append(views, FromWorkflow(name, workflow))
	}
	return views
}

// WorkflowByName fetches one workflow.
func (s *JobService) WorkflowByName(name string) (WorkflowView, error) {
	workflow, ok := s.catalog.Workflow(name)
	if !ok {
		return WorkflowView{}, services.Wrap(services.ErrNotFound, "workflows", fmt.Sprintf("workflow %q not found", name), nil)
	}
	return FromWorkflow(name, workflow), nil
}

// StatusCode maps service errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, services.ErrNotFound):
		return 404
	case errors.Is(err, services.ErrValidation):
		return 400
	case errors.Is(err, queue.ErrQueueFull):
		return 503
	default:
		return 500
	}
}
