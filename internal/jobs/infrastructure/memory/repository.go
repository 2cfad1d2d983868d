// Package memory is an in-process job repository used by tests and the
// offline CLI, where a database would be overhead.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	jobs "freight-audit/internal/jobs/domain"
	recon "freight-audit/internal/recon/domain"
)

type results struct {
	res *recon.Result
	kpi recon.KPIReport
}

// Repository keeps jobs and results in maps guarded by a mutex.
type Repository struct {
	mu      sync.Mutex
	jobs    map[string]*jobs.Job
	results map[string]results
}

func NewRepository() *Repository {
	return &Repository{
		jobs:    make(map[string]*jobs.Job),
		results: make(map[string]results),
	}
}

func (r *Repository) CreateJob(_ context.Context, job *jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *Repository) FindJob(_ context.Context, id string) (*jobs.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *Repository) UpdateJob(_ context.Context, job *jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return jobs.ErrJobNotFound
	}
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

// ClaimNextQueued picks the oldest queued job and marks it running.
func (r *Repository) ClaimNextQueued(_ context.Context) (*jobs.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var queued []*jobs.Job
	for _, job := range r.jobs {
		if job.State == jobs.StateQueued {
			queued = append(queued, job)
		}
	}
	if len(queued) == 0 {
		return nil, jobs.ErrNoQueuedJob
	}
	sort.Slice(queued, func(i, j int) bool {
		if queued[i].CreatedAt.Equal(queued[j].CreatedAt) {
			return queued[i].ID < queued[j].ID
		}
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})
	job := queued[0]
	if err := job.MarkRunning(time.Now()); err != nil {
		return nil, err
	}
	clone := *job
	return &clone, nil
}

func (r *Repository) ReplaceResults(_ context.Context, jobID string, res *recon.Result, kpi recon.KPIReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[jobID] = results{res: res, kpi: kpi}
	return nil
}

func (r *Repository) ListSummaries(_ context.Context, jobID string) ([]recon.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.results[jobID]
	if !ok {
		return nil, jobs.ErrResultsNotReady
	}
	return append([]recon.Summary(nil), stored.res.Summaries...), nil
}

func (r *Repository) ListExceptions(_ context.Context, jobID string) ([]recon.Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.results[jobID]
	if !ok {
		return nil, jobs.ErrResultsNotReady
	}
	return append([]recon.Exception(nil), stored.res.Exceptions...), nil
}

func (r *Repository) GetKPIs(_ context.Context, jobID string) (recon.KPIReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.results[jobID]
	if !ok {
		return recon.KPIReport{}, jobs.ErrResultsNotReady
	}
	return stored.kpi, nil
}
