package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job ID is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// Job is the lifecycle record for one document conversion. Values
// returned from the registry are snapshots; callers never share memory
// with the record being mutated by the orchestrator.
type Job struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Status      Status    `json:"status"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	OutputFile  string    `json:"outputFile,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Registry is the in-memory job table. It is the only state shared
// between the request path and orchestrator goroutines: inserts and
// reads may come from any goroutine, while updates for a given job
// come only from that job's orchestrator.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create inserts a new pending job and returns its snapshot.
func (r *Registry) Create(filename string) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return *job
}

// Get returns a snapshot of the job or ErrNotFound.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// update applies fn to the job under the write lock. Unknown IDs and
// terminal jobs are ignored so a late orchestrator update can never
// resurrect a finished record.
func (r *Registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
}

// MarkProcessing transitions a pending job to processing.
func (r *Registry) MarkProcessing(id string) {
	r.update(id, func(j *Job) {
		if j.Status == StatusPending {
			j.Status = StatusProcessing
		}
	})
}

// SetTotalPages records the page count once the document is open.
func (r *Registry) SetTotalPages(id string, total int) {
	r.update(id, func(j *Job) {
		j.TotalPages = total
	})
}

// SetCurrentPage records progress through the document (1-based).
func (r *Registry) SetCurrentPage(id string, page int) {
	r.update(id, func(j *Job) {
		j.CurrentPage = page
	})
}

// MarkCompleted transitions the job to completed with its artifact
// reference.
func (r *Registry) MarkCompleted(id, outputFile string) {
	r.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.OutputFile = outputFile
	})
}

// MarkFailed transitions the job to failed with a cause.
func (r *Registry) MarkFailed(id, cause string) {
	r.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = cause
	})
}
