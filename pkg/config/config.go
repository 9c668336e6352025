package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ExhaustedStop returns partial results when the listing runs out of pages
	ExhaustedStop = "stop"
	// ExhaustedError reports an error when the listing runs out of pages
	ExhaustedError = "error"
)

// Config holds all configuration options for the saved-items downloader
type Config struct {
	// Reddit application and account credentials
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig holds Reddit-specific configuration
type RedditConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
	APIBaseURL   string `yaml:"api_base_url" json:"api_base_url"`
	TokenURL     string `yaml:"token_url" json:"token_url"`
}

// DownloadConfig holds fetch and download behaviour
type DownloadConfig struct {
	Limit                  int           `yaml:"limit" json:"limit"`
	PageSize               int           `yaml:"page_size" json:"page_size"`
	Timeout                time.Duration `yaml:"timeout" json:"timeout"`
	ContinueOnError        bool          `yaml:"continue_on_error" json:"continue_on_error"`
	ExhaustedPolicy        string        `yaml:"exhausted_policy" json:"exhausted_policy"`
	MediaRequestsPerMinute int           `yaml:"media_requests_per_minute" json:"media_requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory   string `yaml:"base_directory" json:"base_directory"`
	DirPermissions  string `yaml:"dir_permissions" json:"dir_permissions"`
	FilePermissions string `yaml:"file_permissions" json:"file_permissions"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:  "redditsaver/1.0",
			APIBaseURL: "https://oauth.reddit.com",
			TokenURL:   "https://www.reddit.com/api/v1/access_token",
		},
		Download: DownloadConfig{
			Limit:                  10,
			PageSize:               10,
			Timeout:                30 * time.Second,
			ContinueOnError:        false,
			ExhaustedPolicy:        ExhaustedStop,
			MediaRequestsPerMinute: 0, // 0 means no throttle
		},
		Output: OutputConfig{
			BaseDirectory:   "./downloads",
			DirPermissions:  "0755",
			FilePermissions: "0644",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// HasCredentials reports whether every value needed for the password grant is set
func (c *Config) HasCredentials() bool {
	r := c.Reddit
	return r.ClientID != "" && r.ClientSecret != "" && r.Username != "" && r.Password != ""
}

// DirMode parses the configured directory permissions
func (c *Config) DirMode() os.FileMode {
	return parseMode(c.Output.DirPermissions, 0o755)
}

// FileMode parses the configured file permissions
func (c *Config) FileMode() os.FileMode {
	return parseMode(c.Output.FilePermissions, 0o644)
}

func parseMode(value string, fallback os.FileMode) os.FileMode {
	if value == "" {
		return fallback
	}
	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return fallback
	}
	return os.FileMode(mode)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Reddit credentials
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		c.Reddit.Username = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		c.Reddit.Password = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		c.Reddit.UserAgent = v
	}

	if v := os.Getenv("REDDIT_DOWNLOAD_LIMIT"); v != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid REDDIT_DOWNLOAD_LIMIT %q: %w", v, err)
		}
		c.Download.Limit = limit
	}

	if v := os.Getenv("REDDITSAVER_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid REDDITSAVER_PAGE_SIZE %q: %w", v, err)
		}
		c.Download.PageSize = size
	}

	if v := os.Getenv("REDDITSAVER_CONTINUE_ON_ERROR"); v != "" {
		c.Download.ContinueOnError = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("REDDITSAVER_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}

	if v := os.Getenv("REDDITSAVER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".redditsaver.yaml",
		".redditsaver.yml",
		filepath.Join(home, ".config", "redditsaver", "config.yaml"),
		filepath.Join(home, ".config", "redditsaver", "config.yml"),
		filepath.Join(home, ".redditsaver.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Download.Limit < 0 {
		errs = append(errs, errors.New("download limit cannot be negative"))
	}
	if c.Download.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MediaRequestsPerMinute < 0 {
		errs = append(errs, errors.New("media requests per minute cannot be negative"))
	}
	switch strings.ToLower(c.Download.ExhaustedPolicy) {
	case ExhaustedStop, ExhaustedError:
	default:
		errs = append(errs, fmt.Errorf("invalid exhausted policy %q", c.Download.ExhaustedPolicy))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Reddit.APIBaseURL == "" {
		errs = append(errs, errors.New("reddit API base URL is required"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Credentials may be present, keep the file private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Reddit.Username = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["limit"].(int); ok && v >= 0 {
		c.Download.Limit = v
	}
	if v, ok := flags["page-size"].(int); ok && v > 0 {
		c.Download.PageSize = v
	}
	if v, ok := flags["continue-on-error"].(bool); ok {
		c.Download.ContinueOnError = v
	}
	if v, ok := flags["exhausted-policy"].(string); ok && v != "" {
		c.Download.ExhaustedPolicy = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Download.Timeout = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditsaver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
