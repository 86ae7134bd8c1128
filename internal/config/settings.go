package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the YAML settings file consumed by the fragconv CLI. All
// fields are optional; zero values fall back to built-in defaults.
type Settings struct {
	// ChunkSizeKB is the read granularity used while scanning sources.
	ChunkSizeKB int `yaml:"chunkSizeKB"`
	// Overwrite reconverts files whose target artifact already exists.
	Overwrite bool `yaml:"overwrite"`
	// ReportPath receives the JSON batch summary when set.
	ReportPath string `yaml:"reportPath"`
	// Extensions overrides the source suffixes picked up in batch mode.
	Extensions []string `yaml:"extensions"`
}

// LoadSettings parses a YAML settings file.
func LoadSettings(filePath string) (*Settings, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadSettingsFromReader(file)
}

// LoadSettingsFromReader parses settings from an io.Reader.
func LoadSettingsFromReader(r io.Reader) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}
