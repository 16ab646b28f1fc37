// Package config provides configuration management for the PDF translator.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "pdf-translator-config.json"
	// EnvOpenAIAPIKey is the environment variable name for the OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for the OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvSelfHostedURL is the environment variable name for the self-hosted translate endpoint
	EnvSelfHostedURL = "SELF_HOSTED_TRANSLATE_URL"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default OpenAI model to use
	DefaultModel = "gpt-4"
	// DefaultSourceLang detects the input language on the provider side
	DefaultSourceLang = "auto"
	// DefaultTargetLang is the default translation target
	DefaultTargetLang = "sw"
	// DefaultConcurrency is the number of units translated in parallel
	DefaultConcurrency = 2
	// DefaultMaxRetries is the number of attempts per provider before moving on
	DefaultMaxRetries = 4
	// DefaultBackoffBaseMS is the first retry delay in milliseconds.
	// Subsequent delays double: base, 2*base, 4*base, ...
	DefaultBackoffBaseMS = 1500
	// DefaultMaxChunkChars is the chunker bin size in characters
	DefaultMaxChunkChars = 4500
	// DefaultMinFontSize is the compositor font floor in points
	DefaultMinFontSize = 6.0
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "pdf-translator", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		SourceLang:    DefaultSourceLang,
		TargetLang:    DefaultTargetLang,
		Granularity:   string(types.GranularityLine),
		Concurrency:   DefaultConcurrency,
		MaxRetries:    DefaultMaxRetries,
		BackoffBaseMS: DefaultBackoffBaseMS,
		MaxChunkChars: DefaultMaxChunkChars,
		MinFontSize:   DefaultMinFontSize,
		OpenAIBaseURL: DefaultBaseURL,
		OpenAIModel:   DefaultModel,
		LogLevel:      logger.LevelInfo,
	}
}

// LoadEnvFile loads a .env file if one is present. A missing default .env
// is not an error; an explicitly named file that cannot be read is.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return types.NewAppError(types.ErrConfig, "failed to load .env file", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return types.NewAppError(types.ErrConfig, "failed to load .env file", err)
	}
	return nil
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables take precedence for credentials if config file values are empty.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	// Try to read the config file
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		// Parse the config file
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			// Invalid JSON, use defaults
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded",
				logger.String("path", m.configPath),
				logger.String("targetLang", config.TargetLang),
				logger.String("granularity", config.Granularity),
				logger.Int("apiKeyLength", len(config.OpenAIAPIKey)))
			m.config = config
		}
	}

	// Apply defaults for empty fields
	if m.config.SourceLang == "" {
		m.config.SourceLang = DefaultSourceLang
	}
	if m.config.TargetLang == "" {
		m.config.TargetLang = DefaultTargetLang
	}
	if m.config.Granularity == "" {
		m.config.Granularity = string(types.GranularityLine)
	}
	if m.config.Concurrency == 0 {
		m.config.Concurrency = DefaultConcurrency
	}
	if m.config.MaxRetries == 0 {
		m.config.MaxRetries = DefaultMaxRetries
	}
	if m.config.BackoffBaseMS == 0 {
		m.config.BackoffBaseMS = DefaultBackoffBaseMS
	}
	if m.config.MaxChunkChars == 0 {
		m.config.MaxChunkChars = DefaultMaxChunkChars
	}
	if m.config.MinFontSize == 0 {
		m.config.MinFontSize = DefaultMinFontSize
	}
	if m.config.OpenAIBaseURL == "" {
		m.config.OpenAIBaseURL = DefaultBaseURL
	}
	if m.config.OpenAIModel == "" {
		m.config.OpenAIModel = DefaultModel
	}

	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	// Ensure the directory exists
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	// Marshal config to JSON
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	// Write to file
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetAPIKey returns the OpenAI API key.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetAPIKey() string {
	if m.config != nil && m.config.OpenAIAPIKey != "" {
		return m.config.OpenAIAPIKey
	}
	return os.Getenv(EnvOpenAIAPIKey)
}

// GetBaseURL returns the OpenAI API base URL.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetBaseURL() string {
	if m.config != nil && m.config.OpenAIBaseURL != "" {
		return m.config.OpenAIBaseURL
	}
	if envURL := os.Getenv(EnvOpenAIBaseURL); envURL != "" {
		return envURL
	}
	return DefaultBaseURL
}

// GetModel returns the OpenAI model to use.
func (m *ConfigManager) GetModel() string {
	if m.config != nil && m.config.OpenAIModel != "" {
		return m.config.OpenAIModel
	}
	return DefaultModel
}

// GetSelfHostedURL returns the self-hosted translate endpoint.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetSelfHostedURL() string {
	if m.config != nil && m.config.SelfHostedURL != "" {
		return m.config.SelfHostedURL
	}
	return os.Getenv(EnvSelfHostedURL)
}

// GetSourceLang returns the source language tag.
func (m *ConfigManager) GetSourceLang() string {
	if m.config != nil && m.config.SourceLang != "" {
		return m.config.SourceLang
	}
	return DefaultSourceLang
}

// GetTargetLang returns the target language tag.
func (m *ConfigManager) GetTargetLang() string {
	if m.config != nil && m.config.TargetLang != "" {
		return m.config.TargetLang
	}
	return DefaultTargetLang
}

// GetGranularity returns the extraction granularity.
func (m *ConfigManager) GetGranularity() types.Granularity {
	if m.config != nil {
		return types.ParseGranularity(m.config.Granularity)
	}
	return types.GranularityLine
}

// GetConcurrency returns the number of units translated in parallel.
func (m *ConfigManager) GetConcurrency() int {
	if m.config != nil && m.config.Concurrency > 0 {
		return m.config.Concurrency
	}
	return DefaultConcurrency
}

// GetMaxRetries returns the number of attempts per provider.
func (m *ConfigManager) GetMaxRetries() int {
	if m.config != nil && m.config.MaxRetries > 0 {
		return m.config.MaxRetries
	}
	return DefaultMaxRetries
}

// GetBackoffBase returns the first retry delay.
func (m *ConfigManager) GetBackoffBase() time.Duration {
	if m.config != nil && m.config.BackoffBaseMS > 0 {
		return time.Duration(m.config.BackoffBaseMS) * time.Millisecond
	}
	return DefaultBackoffBaseMS * time.Millisecond
}

// GetMaxChunkChars returns the chunker bin size.
func (m *ConfigManager) GetMaxChunkChars() int {
	if m.config != nil && m.config.MaxChunkChars > 0 {
		return m.config.MaxChunkChars
	}
	return DefaultMaxChunkChars
}

// GetMinFontSize returns the compositor font floor in points.
func (m *ConfigManager) GetMinFontSize() float64 {
	if m.config != nil && m.config.MinFontSize > 0 {
		return m.config.MinFontSize
	}
	return DefaultMinFontSize
}

// OCREnabled reports whether the OCR fallback is enabled for the text
// extraction workflow.
func (m *ConfigManager) OCREnabled() bool {
	return m.config != nil && m.config.EnableOCR
}
