package main

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"reel/internal/api"
	"reel/internal/daemon"
	"reel/internal/logging"
	"reel/internal/profiles"
	"reel/internal/queue"
	"reel/internal/testsupport"
)

func startTestDaemon(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	store := queue.NewStore(logger)
	registry := queue.NewRegistry()
	for _, name := range []string{"transcode", "compress", "extract_audio"} {
		err := registry.Register(name, func(ctx context.Context, req queue.Request, progress chan<- float64) (*queue.Outcome, error) {
			now := time.Now()
			return &queue.Outcome{StartedAt: now, CompletedAt: now}, nil
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	pool := queue.NewPool(store, registry, logger,
		queue.WithWorkers(1),
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
	return d, testsupport.BaseDir(cfg)
}

func runCommand(t *testing.T, address string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	cmd.SetArgs(append([]string{"--address", address}, args...))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSubmitListShowStats(t *testing.T) {
	d, baseDir := startTestDaemon(t)
	input := testsupport.WriteMediaFile(t, baseDir, "clip.mp4")

	out, err := runCommand(t, d.Addr(), "submit", input, "--operation", "transcode", "--param", "crf=18")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "submitted") {
		t.Fatalf("submit output = %q", out)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		t.Fatalf("submit output = %q", out)
	}
	jobID := fields[1]

	deadline := time.Now().Add(2 * time.Second)
	for {
		out, err = runCommand(t, d.Addr(), "show", jobID)
		if err != nil {
			t.Fatalf("show: %v", err)
		}
		if strings.Contains(out, "completed") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, show output:\n%s", out)
		}
		time.Sleep(10 * time.Millisecond)
	}

	out, err = runCommand(t, d.Addr(), "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, jobID) || !strings.Contains(out, "transcode") {
		t.Fatalf("list output = %q", out)
	}

	out, err = runCommand(t, d.Addr(), "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Submitted") {
		t.Fatalf("stats output = %q", out)
	}
}

func TestSubmitRequiresExactlyOneMode(t *testing.T) {
	d, baseDir := startTestDaemon(t)
	input := testsupport.WriteMediaFile(t, baseDir, "clip.mp4")

	if _, err := runCommand(t, d.Addr(), "submit", input); err == nil {
		t.Fatal("submit without a mode accepted")
	}
	if _, err := runCommand(t, d.Addr(), "submit", input, "--operation", "transcode", "--profile", "web_optimized"); err == nil {
		t.Fatal("submit with two modes accepted")
	}
}

func TestWorkflowSubmitFansOut(t *testing.T) {
	d, baseDir := startTestDaemon(t)
	input := testsupport.WriteMediaFile(t, baseDir, "clip.mp4")

	out, err := runCommand(t, d.Addr(), "submit", input, "--workflow", "multi_format")
	if err != nil {
		t.Fatalf("workflow submit: %v", err)
	}
	if !strings.Contains(out, "Created 3 jobs") {
		t.Fatalf("workflow output = %q", out)
	}
}

func TestCatalogCommands(t *testing.T) {
	d, _ := startTestDaemon(t)

	out, err := runCommand(t, d.Addr(), "profiles")
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if !strings.Contains(out, "web_optimized") {
		t.Fatalf("profiles output = %q", out)
	}

	out, err = runCommand(t, d.Addr(), "workflows")
	if err != nil {
		t.Fatalf("workflows: %v", err)
	}
	if !strings.Contains(out, "multi_format") {
		t.Fatalf("workflows output = %q", out)
	}
}

func TestStatusCommand(t *testing.T) {
	d, _ := startTestDaemon(t)

	out, err := runCommand(t, d.Addr(), "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Running:    yes") {
		t.Fatalf("status output = %q", out)
	}
}

func TestUnknownJobSurfacesDaemonError(t *testing.T) {
	d, _ := startTestDaemon(t)

	if _, err := runCommand(t, d.Addr(), "show", "no-such-job"); err == nil {
		t.Fatal("unknown job returned no error")
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"crf=18", "target_size_mb=12.5", "faststart=true", "inputs=a.mp4,b.mp4", "preset=slow"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	want := map[string]any{
		"crf":            18,
		"target_size_mb": 12.5,
		"faststart":      true,
		"inputs":         []string{"a.mp4", "b.mp4"},
		"preset":         "slow",
	}
	if !reflect.DeepEqual(params, want) {
		t.Fatalf("params = %#v, want %#v", params, want)
	}

	if _, err := parseParams([]string{"broken"}); err == nil {
		t.Fatal("malformed parameter accepted")
	}
	if empty, err := parseParams(nil); err != nil || empty != nil {
		t.Fatalf("empty parse = %v, %v", empty, err)
	}
}
