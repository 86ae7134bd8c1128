package convert

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/step-fragments/backend/internal/models"
)

// ResultMarker prefixes the machine-readable result line. A calling process
// scans for this token on the last line of output instead of parsing the
// free-form log text above it.
const ResultMarker = "CONVERSION_RESULT_JSON:"

// WriteResultLine emits the single structured result line for one conversion.
func WriteResultLine(w io.Writer, result models.ConversionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s %s\n", ResultMarker, payload)
	return err
}

// ParseResultLine extracts a ConversionResult from one line of output.
// It returns false when the line does not carry the marker.
func ParseResultLine(line string) (models.ConversionResult, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ResultMarker) {
		return models.ConversionResult{}, false
	}

	var result models.ConversionResult
	payload := strings.TrimSpace(strings.TrimPrefix(line, ResultMarker))
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return models.ConversionResult{}, false
	}
	return result, true
}
