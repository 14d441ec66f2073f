// Package config loads and resolves the controller connection settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingParams indicates required connection parameters are missing.
	ErrMissingParams = errors.New("missing required parameters")
	// ErrInvalidAddress indicates the controller URL is not a valid URL.
	ErrInvalidAddress = errors.New("invalid address")
)

// Environment variables that override the config file.
const (
	EnvControllerURL = "UNIFI_CONTROLLER_URL"
	EnvUsername      = "UNIFI_USERNAME"
	EnvPassword      = "UNIFI_PASSWORD"
	EnvSite          = "UNIFI_SITE"
)

// DefaultSite is the controller site used when none is configured.
const DefaultSite = "default"

// Config is the on-disk configuration: a flat object, JSON by default and
// YAML for .yaml/.yml files.
type Config struct {
	ControllerURL string `json:"controller_url" yaml:"controller_url"`
	Username      string `json:"username" yaml:"username"`
	Password      string `json:"password" yaml:"password"`
	Site          string `json:"site" yaml:"site"`
	Debug         bool   `json:"debug" yaml:"debug"`

	// VerifyTLS enables certificate verification of the controller.
	VerifyTLS bool `json:"verify_tls,omitempty" yaml:"verify_tls,omitempty"`
	// CACert is a PEM file trusted when VerifyTLS is set.
	CACert string `json:"ca_cert,omitempty" yaml:"ca_cert,omitempty"`
	// LogFile overrides the default log file location.
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	// LogFormat is "text" (default) or "json".
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
	// LogLevel is the file log level when debug is off (default "error").
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Notify enables desktop notifications on pause and resume.
	Notify bool `json:"notify,omitempty" yaml:"notify,omitempty"`

	filePath string
}

// Template returns the sample configuration written by --create-config.
func Template() *Config {
	return &Config{
		ControllerURL: "https://192.168.1.1",
		Username:      "admin",
		Password:      "your_password_here",
		Site:          DefaultSite,
		Debug:         false,
	}
}

// isYAML reports whether path should be read and written as YAML.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Load reads the configuration at path. A missing file yields an empty
// configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{filePath: path}

	// #nosec G304 - path is the user's own configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to its file path with owner-only permissions.
func (c *Config) Save() error {
	if c.filePath == "" {
		return errors.New("config file path not set")
	}

	var (
		data []byte
		err  error
	)
	if isYAML(c.filePath) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "    ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(c.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(c.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WriteTemplate writes the sample configuration to path.
func WriteTemplate(path string) error {
	cfg := Template()
	cfg.filePath = path
	return cfg.Save()
}

// FilePath returns the path where this config was loaded from.
func (c *Config) FilePath() string {
	return c.filePath
}

// Overrides are values given on the command line. Empty strings are unset.
type Overrides struct {
	ControllerURL string
	Username      string
	Password      string
	Site          string
	Debug         bool
}

// Settings are the effective connection settings.
type Settings struct {
	ControllerURL string
	Username      string
	Password      string
	Site          string
	Debug         bool
	VerifyTLS     bool
	CACert        string
	LogFile       string
	LogFormat     string
	LogLevel      string
	Timeout       time.Duration
	Notify        bool
}

// Resolve merges flags, environment and file values, in that order of
// precedence. getenv is usually os.Getenv.
func Resolve(cfg *Config, ov Overrides, getenv func(string) string) Settings {
	if cfg == nil {
		cfg = &Config{}
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	s := Settings{
		ControllerURL: first(ov.ControllerURL, getenv(EnvControllerURL), cfg.ControllerURL),
		Username:      first(ov.Username, getenv(EnvUsername), cfg.Username),
		Password:      first(ov.Password, getenv(EnvPassword), cfg.Password),
		Site:          first(ov.Site, getenv(EnvSite), cfg.Site, DefaultSite),
		Debug:         ov.Debug || cfg.Debug,
		VerifyTLS:     cfg.VerifyTLS,
		CACert:        cfg.CACert,
		LogFile:       cfg.LogFile,
		LogFormat:     cfg.LogFormat,
		LogLevel:      cfg.LogLevel,
		Notify:        cfg.Notify,
	}
	if cfg.Timeout > 0 {
		s.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return s
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Missing returns the names of required parameters that are not set.
func (s Settings) Missing() []string {
	var missing []string
	if s.ControllerURL == "" {
		missing = append(missing, "controller_url")
	}
	if s.Username == "" {
		missing = append(missing, "username")
	}
	if s.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// Validate checks that the required parameters are present and the
// controller URL is usable.
func (s Settings) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParams, strings.Join(missing, ", "))
	}
	return ValidateAddress(s.ControllerURL)
}

// ValidateAddress checks that addr is an http or https URL with a host.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}

	parsed, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: address must use http or https scheme, got %q", ErrInvalidAddress, parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%w: address must have a host", ErrInvalidAddress)
	}

	return nil
}
