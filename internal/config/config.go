// Package config provides configuration management for go-demo-viewer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFiles are searched, in order, when no config path is given.
var DefaultFiles = []string{"demo-viewer.yaml", "demo-viewer.yml"}

// Config holds all configuration options for the viewer.
type Config struct {
	// Server
	Addr string `json:"addr" yaml:"addr"`

	// Demo collection
	Root      string `json:"root" yaml:"root"`         // working directory for runs
	DemoDir   string `json:"demo_dir" yaml:"demo_dir"` // relative to Root unless absolute
	Extension string `json:"extension" yaml:"extension"`
	Suffix    string `json:"suffix" yaml:"suffix"`

	// Execution
	Runner  string        `json:"runner" yaml:"runner"` // split on whitespace, e.g. "go run"
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Client poller
	ServerURL    string        `json:"server_url" yaml:"server_url"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	LiveReload   bool          `json:"live_reload" yaml:"live_reload"`

	// Observability
	Verbose   bool   `json:"verbose" yaml:"verbose"`
	LogFormat string `json:"log_format" yaml:"log_format"` // json, text
	LogLevel  string `json:"log_level" yaml:"log_level"`

	// Diagnostic modes
	SkipPreflight bool `json:"skip_preflight" yaml:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr: "127.0.0.1:3000",

		Root:      ".",
		DemoDir:   "demo",
		Extension: ".go",
		Suffix:    "demo",

		Runner:  "go run",
		Timeout: 10 * time.Second,

		ServerURL:    "http://127.0.0.1:3000",
		PollInterval: 2 * time.Second,
		LiveReload:   true,

		Verbose:   false,
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// An explicit path must exist. With an empty path the DefaultFiles are
// searched in the current directory; if none exists the defaults are
// returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", name, err)
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv applies environment overrides. PORT replaces the port of Addr
// and keeps its host.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	port := strings.TrimSpace(getenv("PORT"))
	if port == "" {
		return
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host = ""
	}
	cfg.Addr = net.JoinHostPort(host, port)
}

// DemoPath returns the demo directory resolved against Root.
func (c *Config) DemoPath() string {
	if filepath.IsAbs(c.DemoDir) {
		return c.DemoDir
	}
	return filepath.Join(c.Root, c.DemoDir)
}

// RunnerArgs returns the runner command split into argv.
func (c *Config) RunnerArgs() []string {
	return strings.Fields(c.Runner)
}
