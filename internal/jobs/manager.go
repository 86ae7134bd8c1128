// Package jobs runs conversions asynchronously: each job profiles the source
// file, converts it to a fragment artifact, and catalogues the result.
package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/step-fragments/backend/internal/convert"
	"github.com/step-fragments/backend/internal/models"
	"github.com/step-fragments/backend/internal/profile"
)

// Status represents the conversion job status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProfiling  Status = "profiling"
	StatusConverting Status = "converting"
	StatusStoring    Status = "storing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job represents an async conversion job.
type Job struct {
	ID          string                   `json:"id"`
	FileID      string                   `json:"fileId"`
	FileName    string                   `json:"fileName"`
	Status      Status                   `json:"status"`
	Progress    float64                  `json:"progress"`
	Stage       string                   `json:"stage"`
	Profile     *models.FileProfile      `json:"profile,omitempty"`
	Result      *models.ConversionResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
}

// FileStore is the slice of the storage layer the manager needs.
type FileStore interface {
	GetFilePath(id string) (string, error)
	SetStatus(id string, status string) error
}

// Cataloguer persists converted artifacts.
type Cataloguer interface {
	Store(fragmentPath, sourceName string, result models.ConversionResult) (bool, error)
}

// Manager handles async conversion processing.
type Manager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	outputDir string
	store     FileStore
	catalog   Cataloguer
	converter *convert.Converter
	overwrite bool
}

// NewManager creates a new conversion job manager. catalog may be nil, in
// which case converted artifacts are only written to outputDir.
func NewManager(outputDir string, store FileStore, catalog Cataloguer, converter *convert.Converter) *Manager {
	return &Manager{
		jobs:      make(map[string]*Job),
		outputDir: outputDir,
		store:     store,
		catalog:   catalog,
		converter: converter,
	}
}

// SetOverwrite controls whether jobs reconvert files whose artifact already
// exists in the output directory. Off by default; existing artifacts are
// kept. Must be called before any job is started.
func (m *Manager) SetOverwrite(overwrite bool) {
	m.overwrite = overwrite
}

// StartJob begins async conversion of a stored file.
func (m *Manager) StartJob(fileID, fileName string) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		FileID:    fileID,
		FileName:  fileName,
		Status:    StatusPending,
		Stage:     "queued",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	snapshot := *job
	go m.processJob(job)

	return &snapshot
}

// GetJob retrieves a snapshot of a job by ID. The worker goroutine keeps
// mutating the live record, so callers get a copy taken under the lock.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// ListJobs returns snapshots of all known jobs.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		list = append(list, &snapshot)
	}
	return list
}

// processJob handles the actual async processing.
func (m *Manager) processJob(job *Job) {
	fmt.Printf("[ConvertJob %s] Starting conversion: %s\n", job.ID[:8], job.FileName)

	inputPath, err := m.store.GetFilePath(job.FileID)
	if err != nil {
		m.markJobError(job, fmt.Sprintf("locating source file: %v", err))
		return
	}
	m.store.SetStatus(job.FileID, "converting")

	// Stage 1: Profile the source
	m.updateJobStatus(job, StatusProfiling, "profiling source file")

	prof, err := profile.Profile(inputPath)
	if err != nil {
		m.store.SetStatus(job.FileID, "error")
		m.markJobError(job, fmt.Sprintf("profiling source: %v", err))
		return
	}
	m.setProfile(job, prof)

	if !prof.HeaderValid {
		fmt.Printf("[ConvertJob %s] Warning: %s does not carry a valid exchange header\n", job.ID[:8], job.FileName)
	}
	if prof.Advisory != nil {
		fmt.Printf("[ConvertJob %s] %s\n", job.ID[:8], prof.Advisory.Note)
	}

	// Stage 2: Convert
	outputPath := filepath.Join(m.outputDir, convert.OutputPathFor(job.FileName))
	if !m.overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			m.store.SetStatus(job.FileID, "converted")
			m.markJobComplete(job)
			fmt.Printf("[ConvertJob %s] Existing artifact kept: %s\n", job.ID[:8], filepath.Base(outputPath))
			return
		}
	}
	m.updateJobStatus(job, StatusConverting, "converting to fragments")
	result := m.converter.Convert(inputPath, outputPath)
	m.setResult(job, &result)

	if !result.Success {
		m.store.SetStatus(job.FileID, "error")
		m.markJobError(job, result.Error)
		return
	}

	// Stage 3: Catalogue the artifact
	if m.catalog != nil {
		m.updateJobStatus(job, StatusStoring, "storing fragment")
		if _, err := m.catalog.Store(outputPath, job.FileName, result); err != nil {
			// The artifact is already on disk; cataloguing is best-effort.
			fmt.Printf("[ConvertJob %s] Warning: failed to catalogue fragment: %v\n", job.ID[:8], err)
		}
	}

	m.store.SetStatus(job.FileID, "converted")
	m.markJobComplete(job)
	fmt.Printf("[ConvertJob %s] Conversion complete: %s\n", job.ID[:8], job.FileName)
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage

	// Profiling: 0-10%, Converting: 10-90%, Storing: 90-100%
	switch status {
	case StatusProfiling:
		job.Progress = 5
	case StatusConverting:
		job.Progress = 10
	case StatusStoring:
		job.Progress = 90
	case StatusComplete:
		job.Progress = 100
	}
}

func (m *Manager) setProfile(job *Job, prof *models.FileProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Profile = prof
}

func (m *Manager) setResult(job *Job, result *models.ConversionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Result = result
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Stage = "done"
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Stage = "failed"
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	fmt.Printf("[ConvertJob %s] Error: %s\n", job.ID[:8], errMsg)
}

// CleanupOldJobs removes jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
			}
		}
	}
}
