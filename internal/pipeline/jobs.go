package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/google/uuid"
)

// JobStatus represents the state of a batch job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// PageInput is one HTML page submitted in a batch.
type PageInput struct {
	Filename string
	Data     []byte
}

// PageResult is the outcome for one page of a batch.
type PageResult struct {
	Filename    string      `json:"filename"`
	ContentHash string      `json:"content_hash"`
	Status      page.Status `json:"status,omitempty"`
	Links       int         `json:"links"`
	Error       string      `json:"error,omitempty"`

	output []byte
}

// Job tracks the state of a batch of pages.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	inputs  []PageInput
	results []PageResult
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalPages     int                 `json:"total_pages"`
	PagesProcessed int                 `json:"pages_processed"`
	ByStatus       map[page.Status]int `json:"by_status"`
	Errors         []string            `json:"errors"`
}

// NewJob creates a queued job for the given pages.
func NewJob(inputs []PageInput) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  Progress{TotalPages: len(inputs)},
		inputs:    inputs,
		results:   make([]PageResult, len(inputs)),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult stores the outcome of page i and counts it as processed.
func (j *Job) SetResult(i int, res PageResult, output []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	res.output = output
	j.results[i] = res
	j.Progress.PagesProcessed++
	if res.Status != "" {
		if j.Progress.ByStatus == nil {
			j.Progress.ByStatus = make(map[page.Status]int)
		}
		j.Progress.ByStatus[res.Status]++
	}
	j.UpdatedAt = time.Now()
}

// Inputs returns the submitted pages.
func (j *Job) Inputs() []PageInput {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputs
}

// ReleaseInputs drops the submitted page bytes once they are processed.
func (j *Job) ReleaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inputs = nil
}

// Output returns the processed HTML of page i, or false when the page does
// not exist or has no output yet.
func (j *Job) Output(i int) (PageResult, []byte, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if i < 0 || i >= len(j.results) || j.results[i].output == nil {
		return PageResult{}, nil, false
	}
	return j.results[i], j.results[i].output, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string       `json:"job_id"`
	Status   JobStatus    `json:"status"`
	Phase    string       `json:"phase"`
	Progress Progress     `json:"progress"`
	Pages    []PageResult `json:"pages"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	byStatus := make(map[page.Status]int, len(j.Progress.ByStatus))
	for k, v := range j.Progress.ByStatus {
		byStatus[k] = v
	}
	pages := make([]PageResult, len(j.results))
	copy(pages, j.results)
	for i := range pages {
		pages[i].output = nil
	}
	return JobSnapshot{
		ID:     j.ID,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			TotalPages:     j.Progress.TotalPages,
			PagesProcessed: j.Progress.PagesProcessed,
			ByStatus:       byStatus,
			Errors:         errs,
		},
		Pages: pages,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
