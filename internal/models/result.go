package models

// ConversionStats carries the measurements of one successful conversion.
// All fields are pre-formatted strings so the result-line protocol is stable
// regardless of the consumer's float handling.
type ConversionStats struct {
	InputSizeMB       string `json:"inputSizeMB"`
	OutputSizeMB      string `json:"outputSizeMB"`
	CompressionRatio  string `json:"compressionRatio"`
	ConversionSeconds string `json:"conversionTimeSeconds"`
}

// ConversionResult is the terminal outcome of one conversion attempt.
// Stats is present only when Success is true; Error only when it is false.
type ConversionResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Stats   *ConversionStats `json:"stats,omitempty"`
	Error   string           `json:"error,omitempty"`
}
