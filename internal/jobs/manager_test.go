// manager_test.go - Tests for the async conversion job manager
package jobs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/step-fragments/backend/internal/convert"
	"github.com/step-fragments/backend/internal/fragment"
	"github.com/step-fragments/backend/internal/models"
	"github.com/step-fragments/backend/internal/storage"
)

const sampleExchange = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('test model'),'2;1');
FILE_NAME('model.ifc','2026-01-01',(''),(''),'','','');
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1= IFCPROJECT('2O_qw8XmPDvwz$abc',$,'Test',$,$,$,$,$,$);
#2= IFCWALL('3H_kp1YnQExaa$def',$,'Wall',$,$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

// recordingCatalog captures Store calls for assertions
type recordingCatalog struct {
	calls   int
	lastSrc string
}

func (r *recordingCatalog) Store(fragmentPath, sourceName string, result models.ConversionResult) (bool, error) {
	r.calls++
	r.lastSrc = sourceName
	return true, nil
}

func newTestManager(t *testing.T, catalog Cataloguer) (*Manager, *storage.LocalStore, string) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	outputDir := t.TempDir()
	converter := convert.NewConverter(fragment.NewEncoder())

	return NewManager(outputDir, store, catalog, converter), store, outputDir
}

// waitForJob polls until the job leaves its in-flight states
func waitForJob(t *testing.T, m *Manager, id string) *Job {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.GetJob(id)
		if !ok {
			t.Fatalf("Job %s disappeared", id)
		}
		if job.Status == StatusComplete || job.Status == StatusError {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish in time", id)
	return nil
}

func TestStartJob(t *testing.T) {
	t.Run("converts stored file", func(t *testing.T) {
		catalog := &recordingCatalog{}
		manager, store, outputDir := newTestManager(t, catalog)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		job := manager.StartJob(info.ID, info.Name)
		if job.ID == "" {
			t.Error("Expected job ID to be set")
		}

		done := waitForJob(t, manager, job.ID)
		if done.Status != StatusComplete {
			t.Fatalf("Expected job to complete, got status %s (error: %s)", done.Status, done.Error)
		}
		if done.Progress != 100 {
			t.Errorf("Expected progress 100, got %f", done.Progress)
		}
		if done.CompletedAt == nil {
			t.Error("Expected CompletedAt to be set")
		}

		// Profile captured during the run
		if done.Profile == nil {
			t.Fatal("Expected job to carry a file profile")
		}
		if !done.Profile.HeaderValid {
			t.Error("Expected valid exchange header")
		}
		if done.Profile.SchemaID != "IFC4" {
			t.Errorf("Expected schema IFC4, got %q", done.Profile.SchemaID)
		}

		// Conversion result and artifact
		if done.Result == nil || !done.Result.Success {
			t.Fatal("Expected successful conversion result")
		}
		artifact := filepath.Join(outputDir, "model.frag")
		data, err := os.ReadFile(artifact)
		if err != nil {
			t.Fatalf("Failed to read artifact: %v", err)
		}
		if !fragment.Detect(data) {
			t.Error("Expected artifact to be a fragment container")
		}

		// Catalogued once with the source name
		if catalog.calls != 1 {
			t.Errorf("Expected 1 catalog store, got %d", catalog.calls)
		}
		if catalog.lastSrc != "model.ifc" {
			t.Errorf("Expected source model.ifc, got %s", catalog.lastSrc)
		}

		// Storage status updated
		updated, err := store.Get(info.ID)
		if err != nil {
			t.Fatalf("Failed to get file: %v", err)
		}
		if updated.Status != "converted" {
			t.Errorf("Expected status 'converted', got %s", updated.Status)
		}
	})

	t.Run("works without a catalog", func(t *testing.T) {
		manager, store, _ := newTestManager(t, nil)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		job := manager.StartJob(info.ID, info.Name)
		done := waitForJob(t, manager, job.ID)
		if done.Status != StatusComplete {
			t.Errorf("Expected job to complete, got %s (error: %s)", done.Status, done.Error)
		}
	})

	t.Run("unknown file id fails", func(t *testing.T) {
		manager, _, _ := newTestManager(t, nil)

		job := manager.StartJob("no-such-id", "model.ifc")
		done := waitForJob(t, manager, job.ID)

		if done.Status != StatusError {
			t.Fatalf("Expected job to fail, got %s", done.Status)
		}
		if done.Error == "" {
			t.Error("Expected error message to be set")
		}
	})

	t.Run("failed conversion marks file as error", func(t *testing.T) {
		manager, store, _ := newTestManager(t, nil)

		// Remove the file behind the store entry so the job fails.
		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		path, _ := store.GetFilePath(info.ID)
		os.Remove(path)

		job := manager.StartJob(info.ID, info.Name)
		done := waitForJob(t, manager, job.ID)

		if done.Status != StatusError {
			t.Fatalf("Expected job to fail, got %s", done.Status)
		}
		updated, _ := store.Get(info.ID)
		if updated.Status != "error" {
			t.Errorf("Expected file status 'error', got %s", updated.Status)
		}
	})
}

func TestOverwriteArtifacts(t *testing.T) {
	t.Run("keeps existing artifact by default", func(t *testing.T) {
		catalog := &recordingCatalog{}
		manager, store, outputDir := newTestManager(t, catalog)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		first := manager.StartJob(info.ID, info.Name)
		waitForJob(t, manager, first.ID)
		artifact := filepath.Join(outputDir, "model.frag")
		stamp, err := os.Stat(artifact)
		if err != nil {
			t.Fatalf("Failed to stat artifact: %v", err)
		}

		// Second run finds the artifact and completes without reconverting
		second := manager.StartJob(info.ID, info.Name)
		done := waitForJob(t, manager, second.ID)
		if done.Status != StatusComplete {
			t.Fatalf("Expected job to complete, got %s (error: %s)", done.Status, done.Error)
		}
		if catalog.calls != 1 {
			t.Errorf("Expected 1 catalog store, got %d", catalog.calls)
		}
		after, _ := os.Stat(artifact)
		if !after.ModTime().Equal(stamp.ModTime()) {
			t.Error("Expected existing artifact to be left untouched")
		}
	})

	t.Run("overwrite reconverts", func(t *testing.T) {
		catalog := &recordingCatalog{}
		manager, store, _ := newTestManager(t, catalog)
		manager.SetOverwrite(true)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		for i := 0; i < 2; i++ {
			job := manager.StartJob(info.ID, info.Name)
			done := waitForJob(t, manager, job.ID)
			if done.Status != StatusComplete {
				t.Fatalf("Run %d: expected completion, got %s (error: %s)", i, done.Status, done.Error)
			}
		}
		if catalog.calls != 2 {
			t.Errorf("Expected 2 catalog stores, got %d", catalog.calls)
		}
	})
}

func TestGetJob(t *testing.T) {
	t.Run("returns false for unknown job", func(t *testing.T) {
		manager, _, _ := newTestManager(t, nil)

		if _, ok := manager.GetJob("missing"); ok {
			t.Error("Expected ok=false for unknown job")
		}
	})

	t.Run("snapshots are safe to read while the worker runs", func(t *testing.T) {
		manager, store, _ := newTestManager(t, nil)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		job := manager.StartJob(info.ID, info.Name)

		// Hammer the read paths concurrently with the worker's updates;
		// the race detector flags any unlocked access to the live record.
		done := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					if snap, ok := manager.GetJob(job.ID); ok {
						if _, err := json.Marshal(snap); err != nil {
							t.Errorf("Failed to marshal job: %v", err)
							return
						}
					}
					for _, j := range manager.ListJobs() {
						_ = j.Status
						_ = j.Stage
					}
				}
			}()
		}

		finished := waitForJob(t, manager, job.ID)
		close(done)
		wg.Wait()

		if finished.Status != StatusComplete {
			t.Fatalf("Expected job to complete, got %s (error: %s)", finished.Status, finished.Error)
		}
	})
}

func TestCleanupOldJobs(t *testing.T) {
	t.Run("removes completed jobs past max age", func(t *testing.T) {
		manager, store, _ := newTestManager(t, nil)

		info, err := store.Save("model.ifc", strings.NewReader(sampleExchange))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		job := manager.StartJob(info.ID, info.Name)
		waitForJob(t, manager, job.ID)

		// Generous max age keeps the job
		manager.CleanupOldJobs(time.Hour)
		if _, ok := manager.GetJob(job.ID); !ok {
			t.Error("Expected recent job to survive cleanup")
		}

		// Zero max age removes anything finished
		time.Sleep(5 * time.Millisecond)
		manager.CleanupOldJobs(0)
		if _, ok := manager.GetJob(job.ID); ok {
			t.Error("Expected finished job to be cleaned up")
		}
	})
}
