// Package batch converts every exchange file in a directory, isolating
// per-file failures so one bad file never aborts the run.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/step-fragments/backend/internal/convert"
	"github.com/step-fragments/backend/internal/models"
)

// exchangeExtensions are the source suffixes the coordinator picks up,
// matched case-insensitively.
var exchangeExtensions = []string{".ifc", ".step", ".stp"}

// Options configures a batch run.
type Options struct {
	// Overwrite reconverts files whose target artifact already exists.
	Overwrite bool
	// ReportPath, when set, receives the JSON batch summary.
	ReportPath string
	// Extensions overrides the source suffixes picked up, each including
	// the leading dot.
	Extensions []string
}

// Coordinator runs conversions over whole directories.
type Coordinator struct {
	converter *convert.Converter
	opts      Options
}

// NewCoordinator creates a batch coordinator around a converter.
func NewCoordinator(converter *convert.Converter, opts Options) *Coordinator {
	return &Coordinator{converter: converter, opts: opts}
}

// Run converts every exchange file under sourceDir into targetDir and
// returns the aggregated summary. Individual failures are recorded in the
// summary; Run itself fails only when the directories cannot be used.
func (c *Coordinator) Run(sourceDir, targetDir string) (*models.BatchSummary, error) {
	extensions := c.opts.Extensions
	if len(extensions) == 0 {
		extensions = exchangeExtensions
	}

	files, err := listExchangeFiles(sourceDir, extensions)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	summary := &models.BatchSummary{
		SourceDir:  sourceDir,
		TargetDir:  targetDir,
		TotalFiles: len(files),
		StartedAt:  time.Now(),
		Results:    make([]models.FileOutcome, 0, len(files)),
	}

	for _, name := range files {
		inputPath := filepath.Join(sourceDir, name)
		outputPath := filepath.Join(targetDir, convert.OutputPathFor(name))

		if !c.opts.Overwrite {
			if _, err := os.Stat(outputPath); err == nil {
				fmt.Printf("[batch] skipping %s: target exists\n", name)
				summary.Skipped++
				summary.Results = append(summary.Results, models.FileOutcome{
					File:   name,
					Status: "skipped",
					Result: models.ConversionResult{
						Success: true,
						Message: fmt.Sprintf("Skipped %s: target already exists", name),
					},
				})
				continue
			}
		}

		start := time.Now()
		result := c.converter.Convert(inputPath, outputPath)
		elapsed := time.Since(start).Seconds()

		outcome := models.FileOutcome{
			File:    name,
			Result:  result,
			Elapsed: elapsed,
		}
		if result.Success {
			outcome.Status = "success"
			summary.Successful++
		} else {
			outcome.Status = "failed"
			summary.Failed++
			fmt.Printf("[batch] %s failed: %s\n", name, result.Error)
		}
		summary.Results = append(summary.Results, outcome)
	}

	summary.FinishedAt = time.Now()
	summary.TotalTime = summary.FinishedAt.Sub(summary.StartedAt).Seconds()

	if c.opts.ReportPath != "" {
		if err := writeReport(c.opts.ReportPath, summary); err != nil {
			return summary, fmt.Errorf("writing batch report: %w", err)
		}
	}

	return summary, nil
}

// listExchangeFiles returns the exchange files directly under dir, sorted
// by name for a deterministic run order.
func listExchangeFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, entry.Name())
				break
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func writeReport(path string, summary *models.BatchSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
