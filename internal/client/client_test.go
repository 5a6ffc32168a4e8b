package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"reel/internal/api"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, Workers: 4})
	})
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req api.JobRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode submit: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.JobResponse{Job: api.JobView{ID: "abc", Operation: req.Operation, Status: "pending"}})
		case http.MethodGet:
			if got := r.URL.Query().Get("status"); got != "completed" {
				t.Errorf("status query = %q", got)
			}
			_ = json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []api.JobView{{ID: "abc"}}})
		}
	})
	mux.HandleFunc("/api/jobs/abc", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.JobResponse{Job: api.JobView{ID: "abc", Status: "completed", Progress: 100}})
	})
	mux.HandleFunc("/api/jobs/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: `job "missing" not found`})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, New(server.URL, "secret")
}

func TestStatusCarriesBearerToken(t *testing.T) {
	_, c := newTestServer(t)
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Workers != 4 {
		t.Fatalf("status = %+v", status)
	}

	unauthenticated := New(c.baseURL, "")
	if _, err := unauthenticated.Status(context.Background()); err == nil {
		t.Fatal("missing token accepted")
	}
}

func TestSubmitAndDescribe(t *testing.T) {
	_, c := newTestServer(t)

	job, err := c.Submit(context.Background(), api.JobRequest{Input: "/tmp/in.mp4", Operation: "transcode"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID != "abc" || job.Operation != "transcode" {
		t.Fatalf("job = %+v", job)
	}

	described, err := c.Describe(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described.Status != "completed" || described.Progress != 100 {
		t.Fatalf("described = %+v", described)
	}
}

func TestListPassesStatusFilter(t *testing.T) {
	_, c := newTestServer(t)
	jobs, err := c.List(context.Background(), "completed")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "abc" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestErrorEnvelopeSurfacesAsError(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Describe(context.Background(), "missing")
	if err == nil {
		t.Fatal("missing job returned no error")
	}
	if got := err.Error(); got != `job "missing" not found` {
		t.Fatalf("error = %q", got)
	}
}

func TestAddressNormalization(t *testing.T) {
	c := New("127.0.0.1:7954", "")
	if c.baseURL != "http://127.0.0.1:7954" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
	if err := New("", "").do(context.Background(), http.MethodGet, "/api/status", nil, nil, nil); err == nil {
		t.Fatal("empty address accepted")
	}
}
