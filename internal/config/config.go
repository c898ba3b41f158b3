package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ConfigFileEnvVar names a single config file that takes precedence over the
// default search path. Useful for testing and development.
const ConfigFileEnvVar = "INTEROPD_CONFIG"

// ProjectRootPlaceholder is substituted with the filesystem root of the
// installed binary when path options are resolved.
const ProjectRootPlaceholder = "%(project_root)s"

// Config represents the complete application configuration.
// It is populated once at startup and immutable afterwards.
type Config struct {
	API     APIConfig     `yaml:"api" envconfig:"API"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// APIConfig contains the options of the "api" group.
type APIConfig struct {
	// StaticRoot is the directory where static files can be found. The value
	// must contain the %(project_root)s placeholder; the directory is
	// specified relative to the project root.
	StaticRoot string `yaml:"static_root" envconfig:"STATIC_ROOT"`

	// TemplatePath points to the directory where template files live. The
	// value must contain the %(project_root)s placeholder.
	TemplatePath string `yaml:"template_path" envconfig:"TEMPLATE_PATH"`

	// AllowedCORSOrigins is the list of sites allowed cross-site resource
	// access. If this is empty, only same-origin requests are allowed.
	AllowedCORSOrigins []string `yaml:"allowed_cors_origins" envconfig:"ALLOWED_CORS_ORIGINS"`

	// AppDevMode switches the app into debug mode. In debug mode static files
	// are served by the app itself and error responses carry a detail field.
	AppDevMode bool `yaml:"app_dev_mode" envconfig:"APP_DEV_MODE"`

	// TestResultsURL is the template for test result URLs, with %s standing
	// in for the test ID.
	TestResultsURL string `yaml:"test_results_url" envconfig:"TEST_RESULTS_URL"`

	// GithubAPICapabilitiesURL is the GitHub API URL of the repository and
	// location of the capability files. Used to get a listing of all
	// capability files.
	GithubAPICapabilitiesURL string `yaml:"github_api_capabilities_url" envconfig:"GITHUB_API_CAPABILITIES_URL"`

	// GithubRawBaseURL is the base URL used for retrieving specific
	// capability files. Capability file names are appended to it.
	GithubRawBaseURL string `yaml:"github_raw_base_url" envconfig:"GITHUB_RAW_BASE_URL"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			StaticRoot:               ProjectRootPlaceholder + "/static",
			TemplatePath:             ProjectRootPlaceholder + "/templates",
			AllowedCORSOrigins:       nil,
			AppDevMode:               false,
			TestResultsURL:           "http://interop.local/output.html?test_id=%s",
			GithubAPICapabilitiesURL: "https://api.github.com/repos/openstack/defcore/contents",
			GithubRawBaseURL:         "https://raw.githubusercontent.com/openstack/defcore/master/",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: false,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/interopd.log",
		},
	}
}

// Load loads configuration from the config file and environment variables.
// The file named by INTEROPD_CONFIG takes precedence; otherwise the default
// search path is consulted. Environment variables (INTEROPD_* prefix) override
// file values. Any failure here is fatal to startup.
func Load() (*Config, error) {
	cfg := Default()

	configFile, explicit := findConfigFile()
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configFile, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s not found", os.Getenv(ConfigFileEnvVar))
	}

	if err := envconfig.Process("INTEROPD", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the config file path and whether it was named
// explicitly through the environment.
func findConfigFile() (string, bool) {
	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		if fileExists(path) {
			return path, true
		}
		return "", true
	}

	for _, location := range searchLocations() {
		if fileExists(location) {
			return location, false
		}
	}
	return "", false
}

// searchLocations returns the conventional config file locations, in order.
func searchLocations() []string {
	locations := []string{"interopd.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".interopd", "interopd.yaml"),
			filepath.Join(home, "interopd.yaml"),
		)
	}
	locations = append(locations,
		"/etc/interopd/interopd.yaml",
		"/etc/interopd.yaml",
	)
	return locations
}

// loadFromFile overlays configuration from a YAML file onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.API.TestResultsURL == "" {
		return fmt.Errorf("api.test_results_url must not be empty")
	}

	if c.API.GithubAPICapabilitiesURL == "" {
		return fmt.Errorf("api.github_api_capabilities_url must not be empty")
	}

	if c.API.GithubRawBaseURL == "" {
		return fmt.Errorf("api.github_raw_base_url must not be empty")
	}

	if !strings.Contains(c.API.StaticRoot, ProjectRootPlaceholder) {
		return fmt.Errorf("api.static_root must contain %s", ProjectRootPlaceholder)
	}

	if !strings.Contains(c.API.TemplatePath, ProjectRootPlaceholder) {
		return fmt.Errorf("api.template_path must contain %s", ProjectRootPlaceholder)
	}

	return nil
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
