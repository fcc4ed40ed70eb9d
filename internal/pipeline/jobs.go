package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"skripsiforge/internal/merge"
)

// JobStatus represents the state of a formatting job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProfiling  JobStatus = "profiling"
	StatusSectioning JobStatus = "sectioning"
	StatusPlanning   JobStatus = "planning"
	StatusMerging    JobStatus = "merging"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single template+content formatting run.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status           JobStatus `json:"status"`
	Phase            string    `json:"phase"`
	TemplateFilename string    `json:"template_filename"`
	ContentFilename  string    `json:"content_filename"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	templateData []byte
	contentData  []byte
	meta         merge.Metadata
	output       []byte
	result       *merge.Result
	warnings     []string
	errors       []string
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
		if now.Sub(job.UpdatedAt) > s.ttl {
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
	j.UpdatedAt = time.Now()
}

// AddWarnings appends non-fatal warnings from a pipeline stage.
func (j *Job) AddWarnings(warnings []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, warnings...)
	j.UpdatedAt = time.Now()
}

// SetContentHash records the digest of the uploaded content bytes.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// SetInputs stores the uploaded bytes and metadata for processing.
func (j *Job) SetInputs(template, content []byte, meta merge.Metadata) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.templateData = template
	j.contentData = content
	j.meta = meta
}

// Inputs returns the uploaded bytes and metadata.
func (j *Job) Inputs() (template, content []byte, meta merge.Metadata) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.templateData, j.contentData, j.meta
}

// SetOutput stores the produced document and its merge result.
func (j *Job) SetOutput(output []byte, result *merge.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = output
	j.result = result
	// Inputs are no longer needed once the output exists.
	j.templateData = nil
	j.contentData = nil
	j.UpdatedAt = time.Now()
}

// Output returns the produced document bytes, or nil if not completed.
func (j *Job) Output() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID               string        `json:"job_id"`
	Status           JobStatus     `json:"status"`
	Phase            string        `json:"phase"`
	TemplateFilename string        `json:"template_filename"`
	ContentFilename  string        `json:"content_filename"`
	ContentHash      string        `json:"content_hash,omitempty"`
	Warnings         []string      `json:"warnings"`
	Errors           []string      `json:"errors"`
	Result           *merge.Result `json:"result,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	warns := make([]string, len(j.warnings))
	copy(warns, j.warnings)
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:               j.ID,
		Status:           j.Status,
		Phase:            j.Phase,
		TemplateFilename: j.TemplateFilename,
		ContentFilename:  j.ContentFilename,
		ContentHash:      j.ContentHash,
		Warnings:         warns,
		Errors:           errs,
		Result:           j.result,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns a hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
