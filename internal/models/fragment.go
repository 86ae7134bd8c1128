package models

import "time"

// FragmentInfo describes a fragment artifact on disk.
type FragmentInfo struct {
	Filename string    `json:"filename"`
	SizeMB   float64   `json:"sizeMb"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// ConversionRecord is one catalogued conversion: the stored artifact plus the
// metadata captured when it was produced.
type ConversionRecord struct {
	ID         int64     `json:"id" msgpack:"id"`
	Filename   string    `json:"filename" msgpack:"filename"`
	FileHash   string    `json:"fileHash" msgpack:"fileHash"`
	SizeBytes  int64     `json:"sizeBytes" msgpack:"sizeBytes"`
	SourceFile string    `json:"sourceFile" msgpack:"sourceFile"`
	StoredAt   time.Time `json:"storedAt" msgpack:"storedAt"`
	Metadata   string    `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// CatalogStats summarizes the fragment catalog.
type CatalogStats struct {
	TotalFragments int64   `json:"totalFragments"`
	TotalSizeBytes int64   `json:"totalSizeBytes"`
	AvgSizeBytes   float64 `json:"avgSizeBytes"`
}
