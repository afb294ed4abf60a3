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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// EnvPrefix is the prefix for automatic environment overrides (AIDEMOS_SERVER_PORT etc.)
const EnvPrefix = "AIDEMOS"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Features      FeatureConfig       `mapstructure:"features"`
	Limits        LimitsConfig        `mapstructure:"limits"`
	Translation   TranslationConfig   `mapstructure:"translation"`
	Textract      TextractConfig      `mapstructure:"textract"`
	Staging       StagingConfig       `mapstructure:"staging"`
	Polly         PollyConfig         `mapstructure:"polly"`
	Bedrock       BedrockConfig       `mapstructure:"bedrock"`
	KnowledgeBase KnowledgeBaseConfig `mapstructure:"knowledge_base"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Session       SessionConfig       `mapstructure:"session"`
	Multilingual  MultilingualConfig  `mapstructure:"multilingual"`
	Aggregate     AggregateConfig     `mapstructure:"aggregate"`
	ClaimStore    ClaimStoreConfig    `mapstructure:"claim_store"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port           string `mapstructure:"port"`
	StaticDir      string `mapstructure:"static_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// AWSConfig contains the settings shared by every AWS service client
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// FeatureConfig contains the pipeline feature flags
type FeatureConfig struct {
	EnableTranslation bool `mapstructure:"enable_translation"`
	EnablePolly       bool `mapstructure:"enable_polly"`
	EnableRekognition bool `mapstructure:"enable_rekognition"`
}

// LimitsConfig contains input size limits
type LimitsConfig struct {
	MaxFileBytes        int64 `mapstructure:"max_file_bytes"`
	ComprehendMaxLength int   `mapstructure:"comprehend_max_length"`
	TranslateMaxBytes   int   `mapstructure:"translate_max_bytes"`
	PollySnippetLength  int   `mapstructure:"polly_snippet_length"`
	MaxImageBytes       int64 `mapstructure:"max_image_bytes"`
}

// TranslationConfig contains batch translation settings
type TranslationConfig struct {
	Delimiter      string `mapstructure:"delimiter"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// TextractConfig contains document analysis settings
type TextractConfig struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	PollInterval string `mapstructure:"poll_interval"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
}

// StagingConfig selects and configures the object store used for staging and claim images
type StagingConfig struct {
	Backend   string `mapstructure:"backend"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PollyConfig contains speech synthesis settings
type PollyConfig struct {
	AudioDir string `mapstructure:"audio_dir"`
	Engine   string `mapstructure:"engine"`
}

// BedrockConfig contains chat model settings
type BedrockConfig struct {
	Provider           string        `mapstructure:"provider"`
	ModelID            string        `mapstructure:"model_id"`
	DefaultTemperature float64       `mapstructure:"default_temperature"`
	DefaultMaxTokens   int           `mapstructure:"default_max_tokens"`
	ModelLimits        []ModelLimits `mapstructure:"model_limits"`
}

// ModelLimits bounds the sampling parameters accepted for a model. Model "default"
// applies to every model without an entry of its own.
type ModelLimits struct {
	Model          string  `mapstructure:"model" json:"-"`
	TemperatureMin float64 `mapstructure:"temperature_min" json:"temperature_min"`
	TemperatureMax float64 `mapstructure:"temperature_max" json:"temperature_max"`
	MaxTokensMin   int     `mapstructure:"max_tokens_min" json:"max_tokens_min"`
	MaxTokensMax   int     `mapstructure:"max_tokens_max" json:"max_tokens_max"`
}

// KnowledgeBaseConfig contains retrieve-and-generate settings
type KnowledgeBaseConfig struct {
	ID       string `mapstructure:"id"`
	ModelARN string `mapstructure:"model_arn"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// SessionConfig contains conversation store settings
type SessionConfig struct {
	RecentActivityLimit int `mapstructure:"recent_activity_limit"`
	TimelineDays        int `mapstructure:"timeline_days"`
}

// MultilingualConfig contains chat room settings
type MultilingualConfig struct {
	Participants   map[string]string `mapstructure:"participants"`
	SourceLanguage string            `mapstructure:"source_language"`
}

// AggregateConfig tells the preprocessing flow where the aggregate function lives
type AggregateConfig struct {
	FunctionName string `mapstructure:"function_name"`
	LocalURL     string `mapstructure:"local_url"`
	Bucket       string `mapstructure:"bucket"`
}

// ClaimStoreConfig selects the claim record store
type ClaimStoreConfig struct {
	Backend   string `mapstructure:"backend"`
	DBPath    string `mapstructure:"db_path"`
	TableName string `mapstructure:"table_name"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnableHotReload  bool
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnableHotReload:  false,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)

	if err := v.ReadInConfig(); err != nil {
		// Running on defaults and environment alone is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.max_upload_bytes", 64<<20)

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("features.enable_translation", true)
	v.SetDefault("features.enable_polly", true)
	v.SetDefault("features.enable_rekognition", true)

	v.SetDefault("limits.max_file_bytes", 10*1024*1024)
	v.SetDefault("limits.comprehend_max_length", 4500)
	v.SetDefault("limits.translate_max_bytes", 9500)
	v.SetDefault("limits.polly_snippet_length", 1000)
	v.SetDefault("limits.max_image_bytes", 3932160)

	v.SetDefault("translation.delimiter", " ||| ")
	v.SetDefault("translation.max_concurrency", 5)

	v.SetDefault("textract.prefix", "textract-temp/")
	v.SetDefault("textract.poll_interval", "5s")
	v.SetDefault("textract.max_attempts", 60)

	v.SetDefault("staging.backend", "s3")
	v.SetDefault("staging.use_ssl", false)

	v.SetDefault("polly.audio_dir", "./static/audio")
	v.SetDefault("polly.engine", "neural")

	v.SetDefault("bedrock.provider", "bedrock")
	v.SetDefault("bedrock.model_id", "us.anthropic.claude-sonnet-4-20250514-v1:0")
	v.SetDefault("bedrock.default_temperature", 0.2)
	v.SetDefault("bedrock.default_max_tokens", 1000)
	v.SetDefault("bedrock.model_limits", []map[string]interface{}{
		{
			"model":           "default",
			"temperature_min": 0.0,
			"temperature_max": 1.0,
			"max_tokens_min":  100,
			"max_tokens_max":  8192,
		},
	})

	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")

	v.SetDefault("session.recent_activity_limit", 20)
	v.SetDefault("session.timeline_days", 30)

	v.SetDefault("multilingual.participants", map[string]string{
		"person1": "en",
		"person2": "es",
		"person3": "fr",
	})
	v.SetDefault("multilingual.source_language", "auto")

	v.SetDefault("claim_store.backend", "sqlite")
	v.SetDefault("claim_store.db_path", "./claims.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations; none of them is required
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return nil
}

// envMappings maps the conventional variable names used by the deployed demos onto config keys
var envMappings = map[string]string{
	"PORT":                           "server.port",
	"AWS_REGION":                     "aws.region",
	"AWS_ENDPOINT_URL":               "aws.endpoint",
	"TEXTRACT_S3_BUCKET":             "textract.bucket",
	"ENABLE_TRANSLATION":             "features.enable_translation",
	"ENABLE_POLLY":                   "features.enable_polly",
	"ENABLE_REKOGNITION":             "features.enable_rekognition",
	"BEDROCK_MODEL_ID":               "bedrock.model_id",
	"KNOWLEDGE_BASE_ID":              "knowledge_base.id",
	"FOUNDATION_MODEL_ARN":           "knowledge_base.model_arn",
	"AGGREGATE_LAMBDA_FUNCTION_NAME": "aggregate.function_name",
	"AGGREGATE_LAMBDA_LOCAL_URL":     "aggregate.local_url",
	"S3_BUCKET_NAME":                 "aggregate.bucket",
	"DYNAMODB_TABLE_NAME":            "claim_store.table_name",
	"MINIO_ENDPOINT":                 "staging.endpoint",
	"MINIO_ACCESS_KEY":               "staging.access_key",
	"MINIO_SECRET_KEY":               "staging.secret_key",
	"OPENAI_API_KEY":                 "openai.apikey",
	"OPENAI_ENDPOINT":                "openai.endpoint",
	"LOG_LEVEL":                      "logging.level",
	"LOG_FORMAT":                     "logging.format",
	"LOG_OUTPUT":                     "logging.output",
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	if config.AWS.Region == "" {
		errors = append(errors, ValidationError{
			Field:   "aws.region",
			Message: "AWS region is required. Set via config file or AWS_REGION environment variable",
		})
	}

	if config.Server.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "server port is required",
		})
	}

	if config.Limits.MaxFileBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "limits.max_file_bytes",
			Message: "max_file_bytes must be greater than 0",
		})
	}

	if config.Limits.ComprehendMaxLength <= 0 {
		errors = append(errors, ValidationError{
			Field:   "limits.comprehend_max_length",
			Message: "comprehend_max_length must be greater than 0",
		})
	}

	if config.Limits.TranslateMaxBytes <= len(config.Translation.Delimiter) {
		errors = append(errors, ValidationError{
			Field:   "limits.translate_max_bytes",
			Message: "translate_max_bytes must be larger than the batch delimiter",
		})
	}

	if config.Translation.Delimiter == "" {
		errors = append(errors, ValidationError{
			Field:   "translation.delimiter",
			Message: "batch delimiter is required",
		})
	}

	if config.Translation.MaxConcurrency <= 0 {
		errors = append(errors, ValidationError{
			Field:   "translation.max_concurrency",
			Message: "max_concurrency must be greater than 0",
		})
	}

	if config.Textract.MaxAttempts <= 0 {
		errors = append(errors, ValidationError{
			Field:   "textract.max_attempts",
			Message: "max_attempts must be greater than 0",
		})
	}

	if _, err := config.Textract.Interval(); err != nil {
		errors = append(errors, ValidationError{
			Field:   "textract.poll_interval",
			Message: fmt.Sprintf("poll_interval must be a positive duration: %v", err),
		})
	}

	if config.Bedrock.DefaultMaxTokens <= 0 {
		errors = append(errors, ValidationError{
			Field:   "bedrock.default_max_tokens",
			Message: "default_max_tokens must be greater than 0",
		})
	}

	if config.Bedrock.DefaultTemperature < 0 || config.Bedrock.DefaultTemperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "bedrock.default_temperature",
			Message: "default_temperature must be between 0 and 1",
		})
	}

	validProviders := []string{"bedrock", "openai"}
	if !contains(validProviders, config.Bedrock.Provider) {
		errors = append(errors, ValidationError{
			Field:   "bedrock.provider",
			Message: fmt.Sprintf("provider must be one of: %s", strings.Join(validProviders, ", ")),
		})
	}

	if config.Bedrock.Provider == "openai" && config.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required when bedrock.provider is openai. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	validStagingBackends := []string{"s3", "minio", "memory"}
	if !contains(validStagingBackends, config.Staging.Backend) {
		errors = append(errors, ValidationError{
			Field:   "staging.backend",
			Message: fmt.Sprintf("staging backend must be one of: %s", strings.Join(validStagingBackends, ", ")),
		})
	}

	if config.Staging.Backend == "minio" && config.Staging.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "staging.endpoint",
			Message: "MinIO endpoint is required when staging.backend is minio",
		})
	}

	validClaimStores := []string{"sqlite", "dynamodb"}
	if !contains(validClaimStores, config.ClaimStore.Backend) {
		errors = append(errors, ValidationError{
			Field:   "claim_store.backend",
			Message: fmt.Sprintf("claim store backend must be one of: %s", strings.Join(validClaimStores, ", ")),
		})
	}

	if config.ClaimStore.Backend == "dynamodb" && config.ClaimStore.TableName == "" {
		errors = append(errors, ValidationError{
			Field:   "claim_store.table_name",
			Message: "table name is required for the dynamodb claim store. Set via DYNAMODB_TABLE_NAME",
		})
	}

	if config.ClaimStore.Backend == "sqlite" && config.ClaimStore.DBPath != "" {
		if err := validateDirectoryExists(filepath.Dir(config.ClaimStore.DBPath)); err != nil {
			errors = append(errors, ValidationError{
				Field:   "claim_store.db_path",
				Message: fmt.Sprintf("claim store directory does not exist: %s", filepath.Dir(config.ClaimStore.DBPath)),
			})
		}
	}

	if len(config.Multilingual.Participants) == 0 {
		errors = append(errors, ValidationError{
			Field:   "multilingual.participants",
			Message: "at least one chat participant is required",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// LimitsFor returns the sampling limits configured for a model, falling back to "default"
func (c BedrockConfig) LimitsFor(modelID string) ModelLimits {
	fallback := ModelLimits{Model: "default", TemperatureMin: 0, TemperatureMax: 1, MaxTokensMin: 100, MaxTokensMax: 8192}
	for _, limits := range c.ModelLimits {
		if strings.EqualFold(limits.Model, modelID) {
			return limits
		}
		if limits.Model == "default" {
			fallback = limits
		}
	}
	return fallback
}

// Interval parses the poll interval
func (c TextractConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidConfigValue, c.PollInterval)
	}
	return d, nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Staging.SecretKey != "" {
		masked.Staging.SecretKey = maskValue(masked.Staging.SecretKey)
	}
	if masked.AWS.SecretAccessKey != "" {
		masked.AWS.SecretAccessKey = maskValue(masked.AWS.SecretAccessKey)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading. The callback receives every
// successfully validated reload; a reload that fails validation is reported to
// onError and the previous configuration stays in effect.
func WatchConfig(configPath string, callback func(*Config), onError func(error)) error {
	v := viper.New()

	if err := setConfigFile(v, configPath); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file for watching: %w", err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       v.ConfigFileUsed(),
			EnableHotReload:  true,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload config: %w", err))
			}
			return
		}

		callback(config)
	})
	v.WatchConfig()

	return nil
}
