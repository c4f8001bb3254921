// Package server exposes the tender pipeline as an HTTP job API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"auto_bid_writer/logging"
	"auto_bid_writer/pipeline"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// TenderRunner runs one tender to completion.
type TenderRunner interface {
	RunFile(ctx context.Context, path string) (pipeline.TenderResult, error)
	RunTender(ctx context.Context, name, text string) (pipeline.TenderResult, error)
}

type Server struct {
	runner  TenderRunner
	store   *jobStore
	metrics http.Handler
	logger  *slog.Logger
	baseCtx context.Context
	// path 任务只能读取该目录下的文件；为空时不接受 path 任务
	inputDir string
	wg       sync.WaitGroup
}

type Option func(*Server)

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// WithBaseContext is the parent context of background jobs.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.baseCtx = ctx }
}

// WithInputDir enables path jobs for files under dir.
func WithInputDir(dir string) Option {
	return func(s *Server) { s.inputDir = dir }
}

func New(runner TenderRunner, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, errors.New("tender runner required")
	}
	s := &Server{
		runner:  runner,
		store:   newStore(),
		logger:  logging.NewNop(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", s.handleJobCreate)
		r.Get("/{id}", s.handleJobGet)
		r.Get("/{id}/document", s.handleJobDocument)
	})
	return r
}

// Wait blocks until every background job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// --- Handlers ---

type jobCreateReq struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

type jobCreateResp struct {
	JobID string `json:"job_id"`
}

func (req jobCreateReq) validate() error {
	switch {
	case req.Path != "" && (req.Name != "" || req.Text != ""):
		return errors.New("use either path or name+text")
	case req.Path != "":
		return nil
	case req.Name == "" || req.Text == "":
		return errors.New("path, or name and text, required")
	}
	return nil
}

func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tender := req.Name
	if req.Path != "" {
		path, err := s.resolveInput(req.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Path = path
		tender = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	job := &Job{
		ID:        uuid.NewString(),
		Tender:    tender,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	job.UpdatedAt = job.CreatedAt
	s.store.set(job)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job.ID, req)
	}()

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, jobCreateResp{JobID: job.ID})
}

func (s *Server) runJob(id string, req jobCreateReq) {
	s.store.update(id, func(j *Job) { j.Status = StatusRunning })
	log := s.logger.With("job_id", id)
	log.Info("job started")

	var (
		res pipeline.TenderResult
		err error
	)
	if req.Path != "" {
		res, err = s.runner.RunFile(s.baseCtx, req.Path)
	} else {
		res, err = s.runner.RunTender(s.baseCtx, req.Name, req.Text)
	}

	s.store.update(id, func(j *Job) {
		j.applyResult(res)
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			return
		}
		j.Status = StatusDone
	})
	if err != nil {
		log.Error("job failed", "error", err)
		return
	}
	log.Info("job done", "docx", res.DocxPath)
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobDocument(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Status != StatusDone || job.Outputs.Docx == "" {
		http.Error(w, "document not ready: job is "+string(job.Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filepath.Base(job.Outputs.Docx)))
	http.ServeFile(w, r, job.Outputs.Docx)
}

// --- Helpers ---

var errOutsideInput = errors.New("path must be inside the input directory")

// resolveInput maps a requested tender path onto the input directory.
// Relative paths are taken relative to it.
func (s *Server) resolveInput(path string) (string, error) {
	if s.inputDir == "" {
		return "", errors.New("path jobs are disabled")
	}
	root, err := filepath.Abs(s.inputDir)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideInput
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}
