// Package convert drives one exchange file through the chunked reader and a
// fragment parser, producing exactly one terminal ConversionResult. Errors
// never escape this boundary: every failure mode is folded into the result
// so a batch coordinator can treat each file as atomic.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/step-fragments/backend/internal/chunkio"
	"github.com/step-fragments/backend/internal/fragment"
	"github.com/step-fragments/backend/internal/models"
)

// Source is the per-conversion view of one open input file.
type Source interface {
	chunkio.RangeReader
	Finished() bool
	Close() error
}

// Converter converts single files with a fixed parser. Each Convert call
// opens its own Source, so one Converter may serve many conversions, but a
// single conversion is strictly sequential.
type Converter struct {
	parser fragment.Parser
	open   func(path string) (Source, error)
}

// NewConverter creates a Converter around the given parser.
func NewConverter(parser fragment.Parser) *Converter {
	return &Converter{
		parser: parser,
		open: func(path string) (Source, error) {
			return chunkio.Open(path)
		},
	}
}

// Convert runs one conversion attempt. It never returns an error; the
// outcome, success or failure, is the returned ConversionResult.
func (c *Converter) Convert(inputPath, outputPath string) (result models.ConversionResult) {
	base := filepath.Base(inputPath)

	defer func() {
		if r := recover(); r != nil {
			result = failure(base, fmt.Sprintf("parser panic: %v", r))
		}
	}()

	start := time.Now()

	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(base, fmt.Sprintf("input file not found: %s", inputPath))
		}
		return failure(base, fmt.Sprintf("stat input: %v", err))
	}

	src, err := c.open(inputPath)
	if err != nil {
		return failure(base, fmt.Sprintf("open input: %v", err))
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			fmt.Printf("[convert] warning: closing %s: %v\n", base, cerr)
		}
	}()

	artifact, err := c.parser.Parse(src)
	if err != nil {
		return failure(base, fmt.Sprintf("parse: %v", err))
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return failure(base, fmt.Sprintf("create output directory: %v", err))
		}
	}
	if err := os.WriteFile(outputPath, artifact, 0644); err != nil {
		return failure(base, fmt.Sprintf("write output: %v", err))
	}

	elapsed := time.Since(start)

	return models.ConversionResult{
		Success: true,
		Message: fmt.Sprintf("Successfully converted %s", base),
		Stats:   buildStats(info.Size(), int64(len(artifact)), elapsed),
	}
}

// OutputPathFor derives the default artifact path for an input file: same
// directory, extension replaced by .frag.
func OutputPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return inputPath[:len(inputPath)-len(ext)] + ".frag"
}

func buildStats(inputBytes, outputBytes int64, elapsed time.Duration) *models.ConversionStats {
	const mb = 1024 * 1024

	ratio := 0.0
	if inputBytes > 0 {
		ratio = (1 - float64(outputBytes)/float64(inputBytes)) * 100
	}

	return &models.ConversionStats{
		InputSizeMB:       fmt.Sprintf("%.2f", float64(inputBytes)/mb),
		OutputSizeMB:      fmt.Sprintf("%.2f", float64(outputBytes)/mb),
		CompressionRatio:  fmt.Sprintf("%.1f%%", ratio),
		ConversionSeconds: fmt.Sprintf("%.2f", elapsed.Seconds()),
	}
}

func failure(base, errMsg string) models.ConversionResult {
	return models.ConversionResult{
		Success: false,
		Message: fmt.Sprintf("Failed to convert %s", base),
		Error:   errMsg,
	}
}
