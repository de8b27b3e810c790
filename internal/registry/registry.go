// Package registry discovers runnable demo units in a directory.
//
// A unit is any regular file named <digits>-<slug>-<suffix><ext>, for
// example 01-syntax-demo.go. The numeric prefix is the unit's id and
// drives ordering; the remaining words form the display name. Files that
// do not match are ignored. Listings are computed fresh on every call.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNotFound is returned when an id does not resolve to a unit.
var ErrNotFound = errors.New("demo not found")

// Unit is one runnable demo.
type Unit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`

	// Path is File joined with the registry directory.
	Path string `json:"-"`
}

// Config configures a Registry.
type Config struct {
	Dir       string
	Suffix    string // e.g. "demo"
	Extension string // e.g. ".go"
	Logger    *slog.Logger
}

// Registry lists demo units from a directory.
type Registry struct {
	dir     string
	ext     string
	pattern *regexp.Regexp
	logger  *slog.Logger
}

// New creates a Registry. Suffix and Extension are matched literally.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dir:     cfg.Dir,
		ext:     cfg.Extension,
		pattern: filenamePattern(cfg.Suffix, cfg.Extension),
		logger:  logger,
	}
}

func filenamePattern(suffix, ext string) *regexp.Regexp {
	return regexp.MustCompile(`^(\d+)-(.+)-` + regexp.QuoteMeta(suffix) + regexp.QuoteMeta(ext) + `$`)
}

// Dir returns the directory the registry scans.
func (r *Registry) Dir() string {
	return r.dir
}

// ParseFilename derives a unit from a bare filename.
// The second return value is false if the name does not match.
func (r *Registry) ParseFilename(name string) (Unit, bool) {
	m := r.pattern.FindStringSubmatch(name)
	if m == nil {
		return Unit{}, false
	}

	// Display name covers the slug and the suffix: "syntax-demo" -> "Syntax Demo".
	stem := strings.TrimPrefix(name, m[1]+"-")
	stem = strings.TrimSuffix(stem, r.ext)

	return Unit{
		ID:   m[1],
		Name: TitleCase(stem),
		File: name,
		Path: filepath.Join(r.dir, name),
	}, true
}

// Scan lists the directory and returns all matching units ordered by
// filename. Directory read failures are returned to the caller.
func (r *Registry) Scan() ([]Unit, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read demo directory %s: %w", r.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	units := make([]Unit, 0, len(names))
	for _, name := range names {
		if u, ok := r.ParseFilename(name); ok {
			units = append(units, u)
		}
	}
	return units, nil
}

// List is Scan with failures logged and converted to an empty listing.
func (r *Registry) List() []Unit {
	units, err := r.Scan()
	if err != nil {
		r.logger.Error("demo_dir_read_failed", "dir", r.dir, "error", err)
		return []Unit{}
	}
	return units
}

// Find returns the unit with the given id.
func (r *Registry) Find(id string) (Unit, bool) {
	for _, u := range r.List() {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// Resolve is Find returning ErrNotFound on a miss.
func (r *Registry) Resolve(id string) (Unit, error) {
	u, ok := r.Find(id)
	if !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return u, nil
}

// TitleCase capitalizes each hyphen-separated word and joins them with
// spaces. Empty words are dropped.
func TitleCase(slug string) string {
	words := strings.Split(slug, "-")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		out = append(out, string(unicode.ToUpper(r))+w[size:])
	}
	return strings.Join(out, " ")
}
