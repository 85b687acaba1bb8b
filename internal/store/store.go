package store

import (
	"sort"
	"sync"
	"time"

	"github.com/neuroaroma/api/internal/model"
)

// Store is the authoritative in-memory table of jobs. Job state is
// ephemeral and lost on restart.
type Store struct {
	mu     sync.RWMutex
	jobs   map[int64]*model.Job
	nextID int64
}

// JobUpdate carries a partial set of fields to merge into a job. Nil
// fields are left untouched.
type JobUpdate struct {
	Status         *model.JobStatus
	FrequencyCount *int
	FrequencyMin   *float64
	FrequencyMax   *float64
	AudioFileName  *string
	PDFFileName    *string
	ErrorMessage   *string
}

// New creates an empty store
func New() *Store {
	return &Store{
		jobs:   make(map[int64]*model.Job),
		nextID: 1,
	}
}

// Create allocates the next id and stores a pending job
func (s *Store) Create(sourceFileName, originalFileName, companyName string) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &model.Job{
		ID:               s.nextID,
		SourceFileName:   sourceFileName,
		OriginalFileName: originalFileName,
		Status:           model.JobStatusPending,
		CompanyName:      companyName,
		CreatedAt:        time.Now(),
	}
	s.nextID++
	s.jobs[job.ID] = job

	return copyJob(job)
}

// Get returns the job with the given id, or ok=false
func (s *Store) Get(id int64) (*model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return copyJob(job), true
}

// Update merges the given fields into the job. The first transition into
// a terminal status stamps CompletedAt; later updates never change it.
// Returns ok=false if the job no longer exists, which callers treat as a
// no-op since the job may have been deleted concurrently.
func (s *Store) Update(id int64, upd JobUpdate) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}

	if upd.Status != nil {
		job.Status = *upd.Status
		if job.Status.Terminal() && job.CompletedAt == nil {
			now := time.Now()
			job.CompletedAt = &now
		}
	}
	if upd.FrequencyCount != nil {
		job.FrequencyCount = upd.FrequencyCount
	}
	if upd.FrequencyMin != nil {
		job.FrequencyMin = upd.FrequencyMin
	}
	if upd.FrequencyMax != nil {
		job.FrequencyMax = upd.FrequencyMax
	}
	if upd.AudioFileName != nil {
		job.AudioFileName = upd.AudioFileName
	}
	if upd.PDFFileName != nil {
		job.PDFFileName = upd.PDFFileName
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = upd.ErrorMessage
	}

	return copyJob(job), true
}

// ListRecent returns up to limit jobs, newest first. Ties on CreatedAt
// fall back to id order, which matches insertion order.
func (s *Store) ListRecent(limit int) []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, copyJob(job))
	}

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID > jobs[j].ID
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

// Delete removes the job and reports whether it existed. Ids are never
// reused after deletion.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// Len returns the number of stored jobs
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func copyJob(job *model.Job) *model.Job {
	c := *job
	return &c
}
