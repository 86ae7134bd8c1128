// Package profile inspects exchange files before conversion: size, header,
// schema identifier and memory advisories. Inspection is bounded to one stat
// and one fixed-size prefix read, so profiling a multi-hundred-megabyte file
// costs the same as profiling a tiny one.
package profile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"

	"github.com/step-fragments/backend/internal/models"
)

// MagicHeader is the fixed prefix every valid exchange file starts with.
const MagicHeader = "ISO-10303-21;"

// PrefixSize is how many leading bytes are inspected. Header, schema and
// encoding checks are all heuristics bounded to this window; an anomaly
// beyond it goes undetected.
const PrefixSize = 1024

const mib = 1024 * 1024

// Size-tier boundaries.
const (
	WarningTierBytes  = 100 * mib
	CriticalTierBytes = 500 * mib
)

// Memory-advisory thresholds. These are independent of the size tiers and
// mirror the heap budgets the conversion host passes to large inputs.
const (
	largeAdvisoryBytes    = 200 * mib
	moderateAdvisoryBytes = 50 * mib

	largeHeapMB    = 8192
	moderateHeapMB = 4096
)

// schemaPattern matches the schema declaration near the top of the file,
// e.g. FILE_SCHEMA(('IFC4')). First match wins.
var schemaPattern = regexp.MustCompile(`(?i)FILE_SCHEMA\s*\(+\s*'([^']*)'`)

// Profile inspects the file at path and returns its immutable profile.
// It fails only when the path is inaccessible; invalid headers, missing
// schema ids and encoding anomalies are recorded as flags, never errors.
func Profile(path string) (*models.FileProfile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prefix := make([]byte, PrefixSize)
	n, err := io.ReadFull(f, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read prefix of %s: %w", path, err)
	}
	prefix = prefix[:n]

	p := &models.FileProfile{
		Path:            path,
		SizeBytes:       info.Size(),
		ModifiedAt:      info.ModTime(),
		SizeTier:        TierForSize(info.Size()),
		HeaderValid:     HeaderValid(prefix),
		SchemaID:        extractSchemaID(prefix),
		EncodingAnomaly: hasEncodingAnomaly(prefix),
		EstimatedRAMMB:  EstimateRAMMB(info.Size()),
		Advisory:        advisoryForSize(info.Size()),
	}
	return p, nil
}

// TierForSize classifies a file size. Thresholds are fixed and monotonic:
// Small < 100 MiB <= Warning < 500 MiB <= Critical.
func TierForSize(sizeBytes int64) models.SizeTier {
	switch {
	case sizeBytes >= CriticalTierBytes:
		return models.SizeTierCritical
	case sizeBytes >= WarningTierBytes:
		return models.SizeTierWarning
	default:
		return models.SizeTierSmall
	}
}

// HeaderValid reports whether the prefix starts with the exact magic literal.
func HeaderValid(prefix []byte) bool {
	if len(prefix) < len(MagicHeader) {
		return false
	}
	return string(prefix[:len(MagicHeader)]) == MagicHeader
}

// EstimateRAMMB estimates working memory for a conversion as ceil(sizeMB * 3).
// A fixed multiplier heuristic, not a measurement.
func EstimateRAMMB(sizeBytes int64) int64 {
	sizeMB := float64(sizeBytes) / mib
	return int64(math.Ceil(sizeMB * 3))
}

func extractSchemaID(prefix []byte) string {
	m := schemaPattern.FindSubmatch(prefix)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func hasEncodingAnomaly(prefix []byte) bool {
	return bytes.IndexByte(prefix, 0x00) >= 0 ||
		bytes.Contains(prefix, []byte("�"))
}

func advisoryForSize(sizeBytes int64) *models.MemoryAdvisory {
	switch {
	case sizeBytes > largeAdvisoryBytes:
		return &models.MemoryAdvisory{
			RecommendedHeapMB: largeHeapMB,
			Note:              "very large input: expand heap budget and prefer streaming preprocessing",
		}
	case sizeBytes > moderateAdvisoryBytes:
		return &models.MemoryAdvisory{
			RecommendedHeapMB: moderateHeapMB,
			Note:              "large input: expand heap budget and monitor memory during conversion",
		}
	default:
		return nil
	}
}
