package server

import (
	"sync"
	"time"

	"auto_bid_writer/pipeline"
)

type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job is the externally visible state of one tender run.
type Job struct {
	ID       string    `json:"job_id"`
	Tender   string    `json:"tender"`
	Status   JobStatus `json:"status"`
	RunID    string    `json:"run_id,omitempty"`
	Sections []string  `json:"sections,omitempty"`
	// Chapters 已落盘章节数，Failed 为其中的占位章节数。
	Chapters  int        `json:"chapters"`
	Failed    int        `json:"failed_chapters"`
	Reused    bool       `json:"reused,omitempty"`
	Error     string     `json:"error,omitempty"`
	Outputs   JobOutputs `json:"outputs"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type JobOutputs struct {
	Markdown string `json:"markdown,omitempty"`
	Docx     string `json:"docx,omitempty"`
	HTML     string `json:"html,omitempty"`
}

func (j *Job) applyResult(res pipeline.TenderResult) {
	j.RunID = res.RunID
	if res.Tender != "" {
		j.Tender = res.Tender
	}
	j.Sections = res.Sections
	j.Reused = res.Reused
	j.Chapters = len(res.Chapters)
	j.Failed = 0
	for _, d := range res.Chapters {
		if d.Failed() {
			j.Failed++
		}
	}
	if res.DocxPath != "" {
		j.Outputs = JobOutputs{Markdown: res.MarkdownPath, Docx: res.DocxPath, HTML: res.HTMLPath}
	}
}

type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newStore() *jobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

func (s *jobStore) set(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// get returns a copy so callers can read it without holding the lock.
func (s *jobStore) get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	cp := *job
	cp.Sections = append([]string(nil), job.Sections...)
	return cp, true
}

func (s *jobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}
