package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duetdev/duet/internal/logging"
)

// TaskRequest is the POST /tasks payload.
type TaskRequest struct {
	TaskPrompt  string `json:"task_prompt"`
	ProjectName string `json:"project_name,omitempty"`
	Model       string `json:"model,omitempty"`
}

// TaskResponse acknowledges an accepted job.
type TaskResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ServerConfig configures the HTTP job service.
type ServerConfig struct {
	Store  Store
	Runner RunnerConfig // template; per-job fields are filled per request
	Logger *logging.Logger
}

// Server serves the job API: submit a task, poll its status.
type Server struct {
	store  Store
	runner RunnerConfig
	logger *logging.Logger
	mux    *http.ServeMux
}

// NewServer creates the job service.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	s := &Server{
		store:  cfg.Store,
		runner: cfg.Runner,
		logger: logger.WithComponent("service"),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/tasks", s.handleTasks)
	s.mux.HandleFunc("/tasks/", s.handleTaskByID)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.submitTask(w, r)
	case http.MethodGet:
		s.listTasks(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.TaskPrompt) == "" {
		http.Error(w, "task_prompt is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	job := &Job{
		ID:          uuid.New().String(),
		TaskPrompt:  req.TaskPrompt,
		ProjectName: req.ProjectName,
		Model:       req.Model,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(r.Context(), job); err != nil {
		s.logger.Error("job_insert_failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}

	// The run outlives the request.
	go s.runJob(context.Background(), job)

	writeJSON(w, http.StatusAccepted, TaskResponse{ID: job.ID, Status: job.Status})
}

func (s *Server) runJob(ctx context.Context, job *Job) {
	start := time.Now()
	s.logger.JobStart(job.ID)

	job.Status = StatusRunning
	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Error("job_update_failed", map[string]interface{}{"job": job.ID, "error": err.Error()})
	}

	runnerCfg := s.runner
	runnerCfg.TaskPrompt = job.TaskPrompt
	runnerCfg.ProjectName = job.ProjectName
	if job.Model != "" {
		runnerCfg.Model = job.Model
	}

	result, err := NewRunner(runnerCfg).Run(ctx)
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusCompleted
		job.Result = result
	}
	job.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Error("job_update_failed", map[string]interface{}{"job": job.ID, "error": err.Error()})
	}
	s.logger.JobComplete(job.ID, job.Status, time.Since(start))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if id == "" {
		http.Error(w, "job id is required", http.StatusBadRequest)
		return
	}

	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
