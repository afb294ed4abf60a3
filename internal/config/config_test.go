// Copyright 2025 AI Services Demos Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return path
}

func clearMappedEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	for envVar := range envMappings {
		t.Setenv(envVar, "")
	}
}

func validTestConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8000"},
		AWS:    AWSConfig{Region: "us-east-1"},
		Limits: LimitsConfig{
			MaxFileBytes:        10 * 1024 * 1024,
			ComprehendMaxLength: 4500,
			TranslateMaxBytes:   9500,
		},
		Translation:  TranslationConfig{Delimiter: " ||| ", MaxConcurrency: 5},
		Textract:     TextractConfig{PollInterval: "5s", MaxAttempts: 60},
		Staging:      StagingConfig{Backend: "s3"},
		Bedrock:      BedrockConfig{Provider: "bedrock", DefaultTemperature: 0.2, DefaultMaxTokens: 1000},
		Multilingual: MultilingualConfig{Participants: map[string]string{"person1": "en"}},
		ClaimStore:   ClaimStoreConfig{Backend: "sqlite", DBPath: "./claims.db"},
		Logging:      LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func TestLoadConfig(t *testing.T) {
	clearMappedEnv(t)

	configPath := writeConfig(t, "config.yaml", `
server:
  port: "9000"
aws:
  region: "eu-west-1"
features:
  enable_translation: false
  enable_polly: true
textract:
  bucket: "claims-textract"
  poll_interval: "2s"
  max_attempts: 10
bedrock:
  model_id: "anthropic.claude-3-haiku"
  default_temperature: 0.4
  model_limits:
    - model: "default"
      temperature_min: 0.0
      temperature_max: 1.0
      max_tokens_min: 100
      max_tokens_max: 8192
    - model: "anthropic.claude-3-haiku"
      temperature_min: 0.0
      temperature_max: 1.0
      max_tokens_min: 50
      max_tokens_max: 4096
logging:
  level: "debug"
  format: "json"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != "9000" {
		t.Errorf("Expected port '9000', got '%s'", config.Server.Port)
	}

	if config.AWS.Region != "eu-west-1" {
		t.Errorf("Expected region 'eu-west-1', got '%s'", config.AWS.Region)
	}

	if config.Features.EnableTranslation {
		t.Errorf("Expected translation to be disabled")
	}

	if config.Textract.Bucket != "claims-textract" {
		t.Errorf("Expected textract bucket 'claims-textract', got '%s'", config.Textract.Bucket)
	}

	interval, err := config.Textract.Interval()
	if err != nil || interval != 2*time.Second {
		t.Errorf("Expected poll interval 2s, got %v (err %v)", interval, err)
	}

	if limits := config.Bedrock.LimitsFor("anthropic.claude-3-haiku"); limits.MaxTokensMax != 4096 {
		t.Errorf("Expected model specific max tokens 4096, got %d", limits.MaxTokensMax)
	}

	if limits := config.Bedrock.LimitsFor("unknown-model"); limits.MaxTokensMax != 8192 {
		t.Errorf("Expected default max tokens 8192, got %d", limits.MaxTokensMax)
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	clearMappedEnv(t)

	configPath := writeConfig(t, "config.yaml", `
aws:
  region: "us-east-1"
textract:
  bucket: "file-bucket"
`)

	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("TEXTRACT_S3_BUCKET", "env-bucket")
	t.Setenv("ENABLE_POLLY", "false")
	t.Setenv("KNOWLEDGE_BASE_ID", "KB123")
	t.Setenv("AIDEMOS_SERVER_PORT", "7070")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.AWS.Region != "ap-southeast-2" {
		t.Errorf("Expected region from environment, got '%s'", config.AWS.Region)
	}

	if config.Textract.Bucket != "env-bucket" {
		t.Errorf("Expected bucket from environment, got '%s'", config.Textract.Bucket)
	}

	if config.Features.EnablePolly {
		t.Errorf("Expected polly to be disabled by ENABLE_POLLY")
	}

	if config.KnowledgeBase.ID != "KB123" {
		t.Errorf("Expected knowledge base id 'KB123', got '%s'", config.KnowledgeBase.ID)
	}

	if config.Server.Port != "7070" {
		t.Errorf("Expected port from prefixed environment variable, got '%s'", config.Server.Port)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError bool
		errorContains string
	}{
		{
			name:          "Valid configuration",
			mutate:        func(*Config) {},
			expectedError: false,
		},
		{
			name:          "Missing region",
			mutate:        func(c *Config) { c.AWS.Region = "" },
			expectedError: true,
			errorContains: "AWS region is required",
		},
		{
			name:          "Ceiling smaller than delimiter",
			mutate:        func(c *Config) { c.Limits.TranslateMaxBytes = 3 },
			expectedError: true,
			errorContains: "translate_max_bytes",
		},
		{
			name:          "Invalid poll interval",
			mutate:        func(c *Config) { c.Textract.PollInterval = "soon" },
			expectedError: true,
			errorContains: "poll_interval",
		},
		{
			name:          "Negative poll interval",
			mutate:        func(c *Config) { c.Textract.PollInterval = "-1s" },
			expectedError: true,
			errorContains: "poll_interval",
		},
		{
			name:          "OpenAI provider without key",
			mutate:        func(c *Config) { c.Bedrock.Provider = "openai" },
			expectedError: true,
			errorContains: "OpenAI API key is required",
		},
		{
			name:          "Unknown staging backend",
			mutate:        func(c *Config) { c.Staging.Backend = "ftp" },
			expectedError: true,
			errorContains: "staging backend must be one of",
		},
		{
			name:          "MinIO without endpoint",
			mutate:        func(c *Config) { c.Staging.Backend = "minio" },
			expectedError: true,
			errorContains: "MinIO endpoint is required",
		},
		{
			name:          "DynamoDB without table",
			mutate:        func(c *Config) { c.ClaimStore.Backend = "dynamodb" },
			expectedError: true,
			errorContains: "table name is required",
		},
		{
			name:          "Temperature out of range",
			mutate:        func(c *Config) { c.Bedrock.DefaultTemperature = 1.5 },
			expectedError: true,
			errorContains: "default_temperature must be between 0 and 1",
		},
		{
			name:          "Invalid log level",
			mutate:        func(c *Config) { c.Logging.Level = "verbose" },
			expectedError: true,
			errorContains: "log level must be one of",
		},
		{
			name: "Multiple errors are reported together",
			mutate: func(c *Config) {
				c.AWS.Region = ""
				c.Translation.MaxConcurrency = 0
			},
			expectedError: true,
			errorContains: "max_concurrency must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			tt.mutate(&config)

			err := validateConfig(&config)
			if tt.expectedError {
				if err == nil {
					t.Errorf("Expected validation error, but got none")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no validation error, but got: %v", err)
			}
		})
	}
}

func TestMaskSensitiveValues(t *testing.T) {
	config := &Config{
		OpenAI: OpenAIConfig{
			APIKey: "sk-test-1234567890abcdef", // pragma: allowlist secret
		},
		Staging: StagingConfig{
			SecretKey: "minioadmin-secret", // pragma: allowlist secret
		},
	}

	masked := config.MaskSensitiveValues()

	if config.OpenAI.APIKey != "sk-test-1234567890abcdef" {
		t.Errorf("Original config API key should remain unchanged")
	}

	expectedAPIKey := "sk-test-" + "****************"
	if masked.OpenAI.APIKey != expectedAPIKey {
		t.Errorf("Expected masked API key '%s', got '%s'", expectedAPIKey, masked.OpenAI.APIKey)
	}

	if masked.Staging.SecretKey != "minioadm*********" {
		t.Errorf("Expected masked MinIO secret, got '%s'", masked.Staging.SecretKey)
	}

	if masked.AWS.SecretAccessKey != "" {
		t.Errorf("Expected empty secret to stay empty")
	}
}

func TestConfigPathEnvironmentVariable(t *testing.T) {
	clearMappedEnv(t)

	configPath := writeConfig(t, "custom_config.yaml", `
knowledge_base:
  id: "KB-CUSTOM"
`)

	t.Setenv("CONFIG_PATH", configPath)

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.KnowledgeBase.ID != "KB-CUSTOM" {
		t.Errorf("Expected knowledge base id from custom config 'KB-CUSTOM', got '%s'", config.KnowledgeBase.ID)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearMappedEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file, but got none")
	}
}

func TestLoadWithOptions(t *testing.T) {
	clearMappedEnv(t)

	configPath := writeConfig(t, "config.yaml", `
staging:
  backend: "minio"
`)

	config, err := LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: false,
	})
	if err != nil {
		t.Fatalf("Failed to load config with options: %v", err)
	}

	if config.Staging.Backend != "minio" {
		t.Errorf("Expected staging backend 'minio', got '%s'", config.Staging.Backend)
	}

	_, err = LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
	if err == nil {
		t.Error("Expected validation error for MinIO without endpoint, but got none")
	}
}

func TestDefaultValues(t *testing.T) {
	clearMappedEnv(t)

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Limits.TranslateMaxBytes != 9500 {
		t.Errorf("Expected default translate ceiling 9500, got %d", config.Limits.TranslateMaxBytes)
	}

	if config.Translation.Delimiter != " ||| " {
		t.Errorf("Expected default delimiter ' ||| ', got '%s'", config.Translation.Delimiter)
	}

	if config.Limits.ComprehendMaxLength != 4500 {
		t.Errorf("Expected default comprehend length 4500, got %d", config.Limits.ComprehendMaxLength)
	}

	if config.Textract.MaxAttempts != 60 {
		t.Errorf("Expected default max attempts 60, got %d", config.Textract.MaxAttempts)
	}

	if config.Bedrock.ModelID != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("Expected default model id, got '%s'", config.Bedrock.ModelID)
	}

	if config.Bedrock.DefaultMaxTokens != 1000 {
		t.Errorf("Expected default max tokens 1000, got %d", config.Bedrock.DefaultMaxTokens)
	}

	if config.Multilingual.Participants["person2"] != "es" {
		t.Errorf("Expected person2 to speak 'es', got '%s'", config.Multilingual.Participants["person2"])
	}

	if !config.Features.EnableRekognition {
		t.Errorf("Expected rekognition enabled by default")
	}

	if config.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLimitsForFallback(t *testing.T) {
	var cfg BedrockConfig
	limits := cfg.LimitsFor("anything")
	if limits.TemperatureMax != 1 || limits.MaxTokensMin != 100 || limits.MaxTokensMax != 8192 {
		t.Errorf("Expected built-in default limits, got %+v", limits)
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ENV", "")

	if env := getEnvironment(); env != "development" {
		t.Errorf("Expected default environment 'development', got '%s'", env)
	}

	t.Setenv("ENVIRONMENT", "production")
	if env := getEnvironment(); env != "production" {
		t.Errorf("Expected environment 'production', got '%s'", env)
	}

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ENV", "staging")
	if env := getEnvironment(); env != "staging" {
		t.Errorf("Expected environment 'staging', got '%s'", env)
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Message: "test error message",
	}

	expected := "configuration validation failed for field 'test.field': test error message"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Short value", input: "short", expected: "*****"},
		{name: "Long value", input: "sk-test-1234567890abcdef", expected: "sk-test-" + "****************"},
		{name: "Exactly 8 characters", input: "12345678", expected: "********"},
		{name: "9 characters", input: "123456789", expected: "12345678" + "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskValue(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "text", Output: "stdout"}, "test")
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	if !logger.Core().Enabled(parseLevel("debug")) {
		t.Errorf("Expected debug level to be enabled")
	}

	if parseLevel("bogus") != parseLevel("info") {
		t.Errorf("Expected unknown level to fall back to info")
	}
}
