package models

import "time"

// FileOutcome is the batch coordinator's view of one file: the atomic
// ConversionResult plus bookkeeping it does not alter.
type FileOutcome struct {
	File    string           `json:"file"`
	Status  string           `json:"status"` // "success", "failed", "skipped"
	Result  ConversionResult `json:"result"`
	Elapsed float64          `json:"elapsedSeconds"`
}

// BatchSummary aggregates one batch run over a source directory.
type BatchSummary struct {
	SourceDir  string        `json:"sourceDir"`
	TargetDir  string        `json:"targetDir"`
	TotalFiles int           `json:"totalFiles"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	TotalTime  float64       `json:"totalTimeSeconds"`
	Results    []FileOutcome `json:"results"`
}
