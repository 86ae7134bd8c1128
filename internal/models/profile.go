package models

import "time"

// SizeTier is a coarse classification of input size driving operational advisories.
type SizeTier string

const (
	SizeTierSmall    SizeTier = "small"
	SizeTierWarning  SizeTier = "warning"
	SizeTierCritical SizeTier = "critical"
)

// MemoryAdvisory recommends a heap budget for converting a large file.
type MemoryAdvisory struct {
	RecommendedHeapMB int    `json:"recommendedHeapMB"`
	Note              string `json:"note"`
}

// FileProfile is a preflight inspection of one exchange file. It is derived
// solely from on-disk state at inspection time and never mutates afterwards.
type FileProfile struct {
	Path            string          `json:"path"`
	SizeBytes       int64           `json:"sizeBytes"`
	ModifiedAt      time.Time       `json:"modifiedAt"`
	SizeTier        SizeTier        `json:"sizeTier"`
	HeaderValid     bool            `json:"headerValid"`
	SchemaID        string          `json:"schemaId,omitempty"`
	EncodingAnomaly bool            `json:"encodingAnomaly"`
	EstimatedRAMMB  int64           `json:"estimatedRamMB"`
	Advisory        *MemoryAdvisory `json:"advisory,omitempty"`
}
