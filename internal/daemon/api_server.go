package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/history"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	cfg     *config.Config
	service *api.JobService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logging.WithComponent(logger, "api"),
		daemon:  d,
		cfg:     cfg,
		service: d.service,
	}

	token := strings.TrimSpace(cfg.API.Token)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/jobs", authMiddleware(token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/profile", authMiddleware(token, srv.handleProfileJob))
	mux.HandleFunc("/api/jobs/workflow", authMiddleware(token, srv.handleWorkflowJob))
	mux.HandleFunc("/api/jobs/", authMiddleware(token, srv.handleJob))
	mux.HandleFunc("/api/stats", authMiddleware(token, srv.handleStats))
	mux.HandleFunc("/api/profiles", authMiddleware(token, srv.handleProfiles))
	mux.HandleFunc("/api/profiles/", authMiddleware(token, srv.handleProfile))
	mux.HandleFunc("/api/workflows", authMiddleware(token, srv.handleWorkflows))
	mux.HandleFunc("/api/workflows/", authMiddleware(token, srv.handleWorkflow))
	mux.HandleFunc("/api/probe", authMiddleware(token, srv.handleProbe))
	mux.HandleFunc("/api/history", authMiddleware(token, srv.handleHistory))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.service.List(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
	case http.MethodPost:
		var req api.JobRequest
		if !s.decode(w, r, &req) {
			return
		}
		job, err := s.service.Submit(req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: job})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		job, err := s.service.Describe(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
	case http.MethodDelete:
		job, err := s.service.Cancel(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleProfileJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ProfileJobRequest
	if !s.decode(w, r, &req) {
		return
	}
	job, err := s.service.SubmitProfile(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: job})
}

func (s *apiServer) handleWorkflowJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.WorkflowJobRequest
	if !s.decode(w, r, &req) {
		return
	}
	response, err := s.service.SubmitWorkflow(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, response)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Stats())
}

func (s *apiServer) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProfileListResponse{Profiles: s.service.Profiles()})
}

func (s *apiServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	profile, err := s.service.ProfileByName(name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *apiServer) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.WorkflowListResponse{Workflows: s.service.Workflows()})
}

func (s *apiServer) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/workflows/")
	workflow, err := s.service.WorkflowByName(name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, workflow)
}

func (s *apiServer) handleProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	info, err := ffprobe.Probe(r.Context(), s.cfg.FFprobeBinary(), path)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromProbe(path, info))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.history == nil {
		s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: nil})
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	events, err := s.daemon.history.Events(r.Context(), history.Query{
		JobID: strings.TrimSpace(query.Get("job")),
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: api.FromEvents(events)})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, api.StatusCode(err), err.Error())
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response failed", logging.Error(err))
	}
}
