package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reel/internal/api"
	"reel/internal/config"
)

// HTTPDoer describes the HTTP client used to reach the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the daemon API.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
}

// New builds a client for the given base address, which may omit the scheme.
func New(address, token string) *Client {
	address = strings.TrimSpace(address)
	if address != "" && !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &Client{
		baseURL: strings.TrimRight(address, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewFromConfig builds a client for the configured API bind address.
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.API.Bind, cfg.API.Token)
}

// WithHTTPDoer overrides the underlying HTTP client, for tests.
func (c *Client) WithHTTPDoer(doer HTTPDoer) *Client {
	c.http = doer
	return c
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.get(ctx, "/api/status", nil, &status)
	return status, err
}

// Submit creates one job.
func (c *Client) Submit(ctx context.Context, req api.JobRequest) (api.JobView, error) {
	var resp api.JobResponse
	if err := c.post(ctx, "/api/jobs", req, &resp); err != nil {
		return api.JobView{}, err
	}
	return resp.Job, nil
}

// SubmitProfile creates one job from a named profile.
func (c *Client) SubmitProfile(ctx context.Context, req api.ProfileJobRequest) (api.JobView, error) {
	var resp api.JobResponse
	if err := c.post(ctx, "/api/jobs/profile", req, &resp); err != nil {
		return api.JobView{}, err
	}
	return resp.Job, nil
}

// SubmitWorkflow fans an input out into one job per workflow profile.
func (c *Client) SubmitWorkflow(ctx context.Context, req api.WorkflowJobRequest) (api.WorkflowSubmitResponse, error) {
	var resp api.WorkflowSubmitResponse
	err := c.post(ctx, "/api/jobs/workflow", req, &resp)
	return resp, err
}

// List returns jobs, optionally filtered by status.
func (c *Client) List(ctx context.Context, status string) ([]api.JobView, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var resp api.JobListResponse
	if err := c.get(ctx, "/api/jobs", query, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Describe fetches one job.
func (c *Client) Describe(ctx context.Context, id string) (api.JobView, error) {
	var resp api.JobResponse
	if err := c.get(ctx, "/api/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return api.JobView{}, err
	}
	return resp.Job, nil
}

// Cancel cancels a pending job.
func (c *Client) Cancel(ctx context.Context, id string) (api.JobView, error) {
	var resp api.JobResponse
	if err := c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return api.JobView{}, err
	}
	return resp.Job, nil
}

// Stats fetches the queue counters.
func (c *Client) Stats(ctx context.Context) (api.StatsView, error) {
	var stats api.StatsView
	err := c.get(ctx, "/api/stats", nil, &stats)
	return stats, err
}

// Profiles fetches the profile catalog.
func (c *Client) Profiles(ctx context.Context) ([]api.ProfileView, error) {
	var resp api.ProfileListResponse
	if err := c.get(ctx, "/api/profiles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// Workflows fetches the workflow catalog.
func (c *Client) Workflows(ctx context.Context) ([]api.WorkflowView, error) {
	var resp api.WorkflowListResponse
	if err := c.get(ctx, "/api/workflows", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

// Probe inspects a media file through the daemon.
func (c *Client) Probe(ctx context.Context, path string) (api.MediaInfo, error) {
	query := url.Values{}
	query.Set("path", path)
	var info api.MediaInfo
	err := c.get(ctx, "/api/probe", query, &info)
	return info, err
}

// History fetches recorded job transitions.
func (c *Client) History(ctx context.Context, jobID string, limit int) ([]api.EventView, error) {
	query := url.Values{}
	if jobID != "" {
		query.Set("job", jobID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp api.EventListResponse
	if err := c.get(ctx, "/api/history", query, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, target)
}

func (c *Client) post(ctx context.Context, path string, payload, target any) error {
	return c.do(ctx, http.MethodPost, path, nil, payload, target)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, target any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon address is not configured")
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%s", envelope.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode)
}
