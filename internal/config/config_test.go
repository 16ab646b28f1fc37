package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-translator/internal/types"
)

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		customPath := "/tmp/test-config.json"
		cm, err := NewConfigManager(customPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() != customPath {
			t.Errorf("expected config path %s, got %s", customPath, cm.GetConfigPath())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() == "" {
			t.Error("expected non-empty config path")
		}
	})
}

func TestConfigManager_LoadSave(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "test-config.json")

	t.Run("Load with non-existent file uses defaults", func(t *testing.T) {
		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		if err := cm.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		config := cm.GetConfig()
		if config.TargetLang != DefaultTargetLang {
			t.Errorf("expected default target %s, got %s", DefaultTargetLang, config.TargetLang)
		}
		if config.MaxRetries != DefaultMaxRetries {
			t.Errorf("expected default max retries %d, got %d", DefaultMaxRetries, config.MaxRetries)
		}
		if config.Granularity != string(types.GranularityLine) {
			t.Errorf("expected default granularity line, got %s", config.Granularity)
		}
	})

	t.Run("Save creates config file", func(t *testing.T) {
		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		cm.SetConfig(&types.Config{
			TargetLang:    "fr",
			Granularity:   "block",
			Concurrency:   3,
			OpenAIAPIKey:  "test-api-key",
			SelfHostedURL: "http://localhost:5000",
		})

		if err := cm.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			t.Error("config file was not created")
		}
	})

	t.Run("Load reads saved config", func(t *testing.T) {
		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		if err := cm.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		config := cm.GetConfig()
		if config.TargetLang != "fr" {
			t.Errorf("expected target 'fr', got '%s'", config.TargetLang)
		}
		if config.Granularity != "block" {
			t.Errorf("expected granularity 'block', got '%s'", config.Granularity)
		}
		if config.OpenAIAPIKey != "test-api-key" {
			t.Errorf("expected API key 'test-api-key', got '%s'", config.OpenAIAPIKey)
		}
		if config.SelfHostedURL != "http://localhost:5000" {
			t.Errorf("expected self-hosted URL, got '%s'", config.SelfHostedURL)
		}
		// Defaults re-applied for fields the file left empty
		if config.MaxRetries != DefaultMaxRetries {
			t.Errorf("expected default max retries %d, got %d", DefaultMaxRetries, config.MaxRetries)
		}
		if config.MaxChunkChars != DefaultMaxChunkChars {
			t.Errorf("expected default chunk chars %d, got %d", DefaultMaxChunkChars, config.MaxChunkChars)
		}
	})

	t.Run("Load with invalid JSON uses defaults", func(t *testing.T) {
		invalidConfigPath := filepath.Join(tmpDir, "invalid-config.json")
		if err := os.WriteFile(invalidConfigPath, []byte("invalid json"), 0644); err != nil {
			t.Fatalf("failed to write invalid config: %v", err)
		}

		cm, err := NewConfigManager(invalidConfigPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		if err := cm.Load(); err != nil {
			t.Fatalf("Load should not fail with invalid JSON: %v", err)
		}

		if cm.GetConfig().TargetLang != DefaultTargetLang {
			t.Errorf("expected default target after invalid JSON, got %s", cm.GetConfig().TargetLang)
		}
	})
}

func TestConfigManager_GetAPIKey(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "test-config.json")

	t.Run("returns config file value when set", func(t *testing.T) {
		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		cm.SetConfig(&types.Config{OpenAIAPIKey: "config-api-key"})

		if got := cm.GetAPIKey(); got != "config-api-key" {
			t.Errorf("expected 'config-api-key', got '%s'", got)
		}
	})

	t.Run("falls back to environment variable", func(t *testing.T) {
		originalEnv := os.Getenv(EnvOpenAIAPIKey)
		defer os.Setenv(EnvOpenAIAPIKey, originalEnv)

		os.Setenv(EnvOpenAIAPIKey, "env-api-key")

		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		cm.SetConfig(&types.Config{OpenAIAPIKey: ""})

		if got := cm.GetAPIKey(); got != "env-api-key" {
			t.Errorf("expected 'env-api-key', got '%s'", got)
		}
	})

	t.Run("config file takes precedence over env var", func(t *testing.T) {
		originalEnv := os.Getenv(EnvOpenAIAPIKey)
		defer os.Setenv(EnvOpenAIAPIKey, originalEnv)

		os.Setenv(EnvOpenAIAPIKey, "env-api-key")

		cm, err := NewConfigManager(configPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}

		cm.SetConfig(&types.Config{OpenAIAPIKey: "config-api-key"})

		if got := cm.GetAPIKey(); got != "config-api-key" {
			t.Errorf("expected 'config-api-key' (from config), got '%s'", got)
		}
	})
}

func TestConfigManager_GettersWithDefaults(t *testing.T) {
	cm, err := NewConfigManager("/tmp/unused-config.json")
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}

	t.Run("zeroed config falls back to defaults", func(t *testing.T) {
		cm.SetConfig(&types.Config{})

		if cm.GetTargetLang() != DefaultTargetLang {
			t.Errorf("GetTargetLang = %s, want %s", cm.GetTargetLang(), DefaultTargetLang)
		}
		if cm.GetConcurrency() != DefaultConcurrency {
			t.Errorf("GetConcurrency = %d, want %d", cm.GetConcurrency(), DefaultConcurrency)
		}
		if cm.GetMaxRetries() != DefaultMaxRetries {
			t.Errorf("GetMaxRetries = %d, want %d", cm.GetMaxRetries(), DefaultMaxRetries)
		}
		if cm.GetBackoffBase() != DefaultBackoffBaseMS*time.Millisecond {
			t.Errorf("GetBackoffBase = %v, want %v", cm.GetBackoffBase(), DefaultBackoffBaseMS*time.Millisecond)
		}
		if cm.GetMinFontSize() != DefaultMinFontSize {
			t.Errorf("GetMinFontSize = %v, want %v", cm.GetMinFontSize(), DefaultMinFontSize)
		}
		if cm.GetGranularity() != types.GranularityLine {
			t.Errorf("GetGranularity = %v, want line", cm.GetGranularity())
		}
		if cm.OCREnabled() {
			t.Error("OCREnabled should default to false")
		}
	})

	t.Run("configured values win", func(t *testing.T) {
		cm.SetConfig(&types.Config{
			TargetLang:    "de",
			Concurrency:   5,
			MaxRetries:    2,
			BackoffBaseMS: 100,
			Granularity:   "span",
			EnableOCR:     true,
		})

		if cm.GetTargetLang() != "de" {
			t.Errorf("GetTargetLang = %s, want de", cm.GetTargetLang())
		}
		if cm.GetConcurrency() != 5 {
			t.Errorf("GetConcurrency = %d, want 5", cm.GetConcurrency())
		}
		if cm.GetMaxRetries() != 2 {
			t.Errorf("GetMaxRetries = %d, want 2", cm.GetMaxRetries())
		}
		if cm.GetBackoffBase() != 100*time.Millisecond {
			t.Errorf("GetBackoffBase = %v, want 100ms", cm.GetBackoffBase())
		}
		if cm.GetGranularity() != types.GranularitySpan {
			t.Errorf("GetGranularity = %v, want span", cm.GetGranularity())
		}
		if !cm.OCREnabled() {
			t.Error("OCREnabled should be true")
		}
	})
}

func TestConfigManager_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "nested", "dir", "config.json")

	cm, err := NewConfigManager(configPath)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}

	if err := cm.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created in nested directory")
	}

	// Saved file must round-trip as JSON
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var saved types.Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("failed to parse saved config: %v", err)
	}
	if saved.TargetLang != DefaultTargetLang {
		t.Errorf("saved target = %s, want %s", saved.TargetLang, DefaultTargetLang)
	}
}

func TestLoadEnvFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	envPath := filepath.Join(tmpDir, "test.env")
	if err := os.WriteFile(envPath, []byte("PDFTRANSLATE_TEST_KEY=from-env-file\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	defer os.Unsetenv("PDFTRANSLATE_TEST_KEY")

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("PDFTRANSLATE_TEST_KEY"); got != "from-env-file" {
		t.Errorf("expected 'from-env-file', got '%s'", got)
	}

	if err := LoadEnvFile(filepath.Join(tmpDir, "missing.env")); err == nil {
		t.Error("LoadEnvFile with explicit missing file should fail")
	}
}
