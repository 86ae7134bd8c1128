// config_test.go - Tests for XML server config and YAML CLI settings
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("creates default config when file missing", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.xml")

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Server.Port != 8090 {
			t.Errorf("Expected default port 8090, got %d", cfg.Server.Port)
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			t.Error("Expected default config file to be written")
		}
	})

	t.Run("loads values from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.xml")
		content := `<?xml version="1.0"?>
<StepFragments>
  <Server>
    <Port>9999</Port>
    <BindAddress>127.0.0.1</BindAddress>
  </Server>
  <Storage>
    <DataDirectory>./custom-data</DataDirectory>
    <UploadsDirectory>./custom-data/uploads</UploadsDirectory>
    <FragmentsDirectory>./custom-data/fragments</FragmentsDirectory>
    <CatalogPath>./custom-data/catalog.duckdb</CatalogPath>
  </Storage>
</StepFragments>`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Server.Port != 9999 {
			t.Errorf("Expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.GetServerAddr() != "127.0.0.1:9999" {
			t.Errorf("Unexpected server addr: %s", cfg.GetServerAddr())
		}
	})

	t.Run("resolves relative paths against config dir", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.xml")

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if !filepath.IsAbs(cfg.GetDataDir()) {
			t.Errorf("Expected absolute data dir, got %s", cfg.GetDataDir())
		}
		if !strings.HasPrefix(cfg.GetDataDir(), tempDir) {
			t.Errorf("Expected data dir under %s, got %s", tempDir, cfg.GetDataDir())
		}
		if !filepath.IsAbs(cfg.Storage.CatalogPath) {
			t.Errorf("Expected absolute catalog path, got %s", cfg.Storage.CatalogPath)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.xml")
		if _, err := LoadConfig(configPath); err != nil {
			t.Fatalf("Failed to seed config: %v", err)
		}

		t.Setenv("PORT", "7777")
		t.Setenv("DATA_DIR", "/tmp/override-data")

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Server.Port != 7777 {
			t.Errorf("Expected PORT override 7777, got %d", cfg.Server.Port)
		}
		if cfg.GetDataDir() != "/tmp/override-data" {
			t.Errorf("Expected DATA_DIR override, got %s", cfg.GetDataDir())
		}
	})

	t.Run("invalid XML fails", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.xml")
		if err := os.WriteFile(configPath, []byte("not xml at all <"), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("Expected error for invalid XML")
		}
	})
}

func TestEnsureDirectories(t *testing.T) {
	t.Run("creates storage directories", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.xml")
		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("EnsureDirectories failed: %v", err)
		}

		for _, dir := range []string{cfg.GetDataDir(), cfg.GetUploadDir(), cfg.GetFragmentsDir()} {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				t.Errorf("Expected directory %s to exist", dir)
			}
		}
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("parses YAML settings", func(t *testing.T) {
		settingsPath := filepath.Join(t.TempDir(), "fragconv.yaml")
		content := `chunkSizeKB: 512
overwrite: true
reportPath: /tmp/report.json
extensions:
  - .ifc
  - .stp
`
		if err := os.WriteFile(settingsPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write settings: %v", err)
		}

		settings, err := LoadSettings(settingsPath)
		if err != nil {
			t.Fatalf("Failed to load settings: %v", err)
		}

		if settings.ChunkSizeKB != 512 {
			t.Errorf("Expected chunkSizeKB 512, got %d", settings.ChunkSizeKB)
		}
		if !settings.Overwrite {
			t.Error("Expected overwrite true")
		}
		if settings.ReportPath != "/tmp/report.json" {
			t.Errorf("Unexpected reportPath: %s", settings.ReportPath)
		}
		if len(settings.Extensions) != 2 || settings.Extensions[0] != ".ifc" {
			t.Errorf("Unexpected extensions: %v", settings.Extensions)
		}
	})

	t.Run("empty file yields zero settings", func(t *testing.T) {
		settings, err := LoadSettingsFromReader(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Failed to load settings: %v", err)
		}
		if settings.ChunkSizeKB != 0 || settings.Overwrite {
			t.Errorf("Expected zero settings, got %+v", settings)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing settings file")
		}
	})
}
