package config

import (
	"github.com/spf13/pflag"
)

// binding ties a flag name to the Config field it controls, so values
// explicitly set on the command line can be layered over a loaded file.
type binding struct {
	name  string
	apply func(dst, src *Config)
}

var (
	serverBindings = []binding{
		{"addr", func(d, s *Config) { d.Addr = s.Addr }},
		{"skip-preflight", func(d, s *Config) { d.SkipPreflight = s.SkipPreflight }},
	}

	demoBindings = []binding{
		{"root", func(d, s *Config) { d.Root = s.Root }},
		{"demo-dir", func(d, s *Config) { d.DemoDir = s.DemoDir }},
		{"ext", func(d, s *Config) { d.Extension = s.Extension }},
		{"suffix", func(d, s *Config) { d.Suffix = s.Suffix }},
		{"runner", func(d, s *Config) { d.Runner = s.Runner }},
		{"timeout", func(d, s *Config) { d.Timeout = s.Timeout }},
	}

	clientBindings = []binding{
		{"server", func(d, s *Config) { d.ServerURL = s.ServerURL }},
		{"poll-interval", func(d, s *Config) { d.PollInterval = s.PollInterval }},
		{"live-reload", func(d, s *Config) { d.LiveReload = s.LiveReload }},
	}

	logBindings = []binding{
		{"verbose", func(d, s *Config) { d.Verbose = s.Verbose }},
		{"log-format", func(d, s *Config) { d.LogFormat = s.LogFormat }},
		{"log-level", func(d, s *Config) { d.LogLevel = s.LogLevel }},
	}
)

// BindLogFlags registers logging flags (normally persistent on the root).
func BindLogFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging (debug level)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
}

// BindDemoFlags registers flags describing the demo collection and how
// units are executed.
func BindDemoFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Root, "root", cfg.Root, "Working directory for demo runs")
	fs.StringVar(&cfg.DemoDir, "demo-dir", cfg.DemoDir, "Directory holding demo units (relative to -root)")
	fs.StringVar(&cfg.Extension, "ext", cfg.Extension, "Demo file extension")
	fs.StringVar(&cfg.Suffix, "suffix", cfg.Suffix, "Required filename suffix before the extension")
	fs.StringVar(&cfg.Runner, "runner", cfg.Runner, "Interpreter command; the unit path is appended")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Wall-clock limit per run")
}

// BindServerFlags registers flags for the HTTP server.
func BindServerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address (PORT env overrides the port)")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
}

// BindClientFlags registers flags for the polling client.
func BindClientFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Viewer server base URL")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Live reload polling interval")
	fs.BoolVar(&cfg.LiveReload, "live-reload", cfg.LiveReload, "Start with live reload enabled")
}

// ApplyFlags copies every flag the user explicitly set from src (the
// struct the flags were bound to) into dst (typically loaded from file).
func ApplyFlags(dst, src *Config, fs *pflag.FlagSet) {
	for _, group := range [][]binding{serverBindings, demoBindings, clientBindings, logBindings} {
		for _, b := range group {
			f := fs.Lookup(b.name)
			if f == nil || !f.Changed {
				continue
			}
			b.apply(dst, src)
		}
	}
}
