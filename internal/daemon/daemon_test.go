package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/logging"
	"reel/internal/profiles"
	"reel/internal/queue"
	"reel/internal/testsupport"
)

func okHandler(ctx context.Context, req queue.Request, progress chan<- float64) (*queue.Outcome, error) {
	now := time.Now()
	return &queue.Outcome{StartedAt: now, CompletedAt: now}, nil
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	logger := logging.NewNop()
	store := queue.NewStore(logger)
	registry := queue.NewRegistry()
	for _, name := range []string{"transcode", "compress", "thumbnail", "extract_audio", "gif"} {
		if err := registry.Register(name, okHandler); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	pool := queue.NewPool(store, registry, logger,
		queue.WithWorkers(2),
		queue.WithPollTimeout(20*time.Millisecond))
	catalog, err := profiles.Load("")
	if err != nil {
		t.Fatalf("profiles.Load: %v", err)
	}
	service := api.NewJobService(pool, store, registry, catalog)

	d, err := daemon.New(cfg, pool, service, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if d.Addr() == "" {
		t.Fatal("daemon has no API address")
	}
	return d, cfg
}

func apiURL(d *daemon.Daemon, path string) string {
	return "http://" + d.Addr() + path
}

func getJSON(t *testing.T, url string, target any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, payload, target any) int {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	d, _ := startDaemon(t)

	var status api.DaemonStatus
	if code := getJSON(t, apiURL(d, "/api/status"), &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !status.Running {
		t.Fatal("daemon not reported running")
	}
	if len(status.Operations) == 0 {
		t.Fatal("no operations reported")
	}
	if len(status.Dependencies) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe checks, got %d", len(status.Dependencies))
	}
	for _, dep := range status.Dependencies {
		if dep.Name != "ffmpeg" && dep.Name != "ffprobe" {
			t.Fatalf("unexpected dependency %q", dep.Name)
		}
	}
}

func TestJobSubmissionLifecycle(t *testing.T) {
	d, cfg := startDaemon(t)
	input := testsupport.WriteMediaFile(t, testsupport.BaseDir(cfg), "clip.mp4")

	var created api.JobResponse
	code := postJSON(t, apiURL(d, "/api/jobs"), api.JobRequest{Input: input, Operation: "transcode"}, &created)
	if code != http.StatusCreated {
		t.Fatalf("submit status = %d", code)
	}
	if created.Job.ID == "" || created.Job.Status != "pending" && created.Job.Status != "processing" && created.Job.Status != "completed" {
		t.Fatalf("unexpected created job: %+v", created.Job)
	}

	deadline := time.Now().Add(2 * time.Second)
	var job api.JobResponse
	for {
		if code := getJSON(t, apiURL(d, "/api/jobs/"+created.Job.ID), &job); code != http.StatusOK {
			t.Fatalf("describe status = %d", code)
		}
		if job.Job.Status == "completed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed: %+v", job.Job)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Job.Progress != 100 {
		t.Fatalf("completed progress = %v", job.Job.Progress)
	}

	var list api.JobListResponse
	if code := getJSON(t, apiURL(d, "/api/jobs?status=completed"), &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("completed list = %+v", list.Jobs)
	}

	var stats api.StatsView
	if code := getJSON(t, apiURL(d, "/api/stats"), &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.Submitted != 1 || stats.Completed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSubmissionValidation(t *testing.T) {
	d, cfg := startDaemon(t)
	input := testsupport.WriteMediaFile(t, testsupport.BaseDir(cfg), "clip.mp4")

	// Missing input path.
	if code := postJSON(t, apiURL(d, "/api/jobs"), api.JobRequest{Operation: "transcode"}, nil); code != http.StatusBadRequest {
		t.Fatalf("empty input status = %d", code)
	}
	// Nonexistent input file.
	if code := postJSON(t, apiURL(d, "/api/jobs"), api.JobRequest{Input: input + ".missing", Operation: "transcode"}, nil); code != http.StatusNotFound {
		t.Fatalf("missing input status = %d", code)
	}
	// Unknown status filter.
	if code := getJSON(t, apiURL(d, "/api/jobs?status=bogus"), nil); code != http.StatusBadRequest {
		t.Fatalf("bad status filter code = %d", code)
	}
	// Unknown job id.
	if code := getJSON(t, apiURL(d, "/api/jobs/no-such-job"), nil); code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", code)
	}
	// Malformed body.
	resp, err := http.Post(apiURL(d, "/api/jobs"), "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", resp.StatusCode)
	}

	var errBody api.ErrorResponse
	if code := getJSON(t, apiURL(d, "/api/jobs/no-such-job"), &errBody); code != http.StatusNotFound || errBody.Error == "" {
		t.Fatalf("error envelope missing: %d %+v", code, errBody)
	}
}

func TestProfileAndWorkflowSubmission(t *testing.T) {
	d, cfg := startDaemon(t)
	input := testsupport.WriteMediaFile(t, testsupport.BaseDir(cfg), "clip.mp4")

	var created api.JobResponse
	code := postJSON(t, apiURL(d, "/api/jobs/profile"), api.ProfileJobRequest{Input: input, Profile: "web_optimized"}, &created)
	if code != http.StatusCreated {
		t.Fatalf("profile submit status = %d", code)
	}
	if created.Job.Operation != "transcode" {
		t.Fatalf("profile job operation = %q", created.Job.Operation)
	}

	if code := postJSON(t, apiURL(d, "/api/jobs/profile"), api.ProfileJobRequest{Input: input, Profile: "nope"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown profile status = %d", code)
	}

	var fanned api.WorkflowSubmitResponse
	code = postJSON(t, apiURL(d, "/api/jobs/workflow"), api.WorkflowJobRequest{Input: input, Workflow: "multi_format"}, &fanned)
	if code != http.StatusCreated {
		t.Fatalf("workflow submit status = %d", code)
	}
	if len(fanned.Jobs) != 3 {
		t.Fatalf("workflow jobs = %+v", fanned.Jobs)
	}

	if code := postJSON(t, apiURL(d, "/api/jobs/workflow"), api.WorkflowJobRequest{Input: input, Workflow: "nope"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown workflow status = %d", code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	d, _ := startDaemon(t)

	var profileList api.ProfileListResponse
	if code := getJSON(t, apiURL(d, "/api/profiles"), &profileList); code != http.StatusOK {
		t.Fatalf("profiles status = %d", code)
	}
	if len(profileList.Profiles) == 0 {
		t.Fatal("no profiles returned")
	}

	var profile api.ProfileView
	if code := getJSON(t, apiURL(d, "/api/profiles/web_optimized"), &profile); code != http.StatusOK {
		t.Fatalf("profile status = %d", code)
	}
	if profile.Operation != "transcode" {
		t.Fatalf("profile = %+v", profile)
	}
	if code := getJSON(t, apiURL(d, "/api/profiles/nope"), nil); code != http.StatusNotFound {
		t.Fatalf("unknown profile status = %d", code)
	}

	var workflowList api.WorkflowListResponse
	if code := getJSON(t, apiURL(d, "/api/workflows"), &workflowList); code != http.StatusOK {
		t.Fatalf("workflows status = %d", code)
	}
	if len(workflowList.Workflows) != 3 {
		t.Fatalf("workflows = %+v", workflowList.Workflows)
	}
}

func TestCancelEndpoint(t *testing.T) {
	d, cfg := startDaemon(t)
	input := testsupport.WriteMediaFile(t, testsupport.BaseDir(cfg), "clip.mp4")

	var created api.JobResponse
	if code := postJSON(t, apiURL(d, "/api/jobs"), api.JobRequest{Input: input, Operation: "transcode"}, &created); code != http.StatusCreated {
		t.Fatalf("submit status = %d", code)
	}

	// The job races the workers; accept either a successful cancel of a
	// pending job or a 400 once it ran to completion.
	req, err := http.NewRequest(http.MethodDelete, apiURL(d, "/api/jobs/"+created.Job.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}

	req, err = http.NewRequest(http.MethodDelete, apiURL(d, "/api/jobs/no-such-job"), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel unknown job status = %d", resp.StatusCode)
	}
}

func TestBearerTokenAuth(t *testing.T) {
	d, _ := startDaemon(t, testsupport.WithAPIToken("secret"))

	resp, err := http.Get(apiURL(d, "/api/status"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, apiURL(d, "/api/status"), nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d", resp.StatusCode)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	d, cfg := startDaemon(t)
	_ = d

	logger := logging.NewNop()
	store := queue.NewStore(logger)
	registry := queue.NewRegistry()
	pool := queue.NewPool(store, registry, logger)
	catalog, err := profiles.Load("")
	if err != nil {
		t.Fatal(err)
	}
	service := api.NewJobService(pool, store, registry, catalog)

	second, err := daemon.New(cfg, pool, service, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance acquired the lock")
	} else if fmt.Sprint(err) == "" {
		t.Fatal("empty lock error")
	}
}
