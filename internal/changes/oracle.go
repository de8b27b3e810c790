// Package changes reports when a demo's source file was last modified.
package changes

import (
	"fmt"
	"os"
	"time"

	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// Record is the modification time of one unit, in milliseconds since the
// Unix epoch. Sub-millisecond precision is kept in the fraction.
type Record struct {
	ID    string  `json:"id"`
	MTime float64 `json:"mtime"`
}

// Oracle stats unit files on demand. Nothing is cached.
type Oracle struct {
	registry *registry.Registry
}

// NewOracle creates an Oracle over reg.
func NewOracle(reg *registry.Registry) *Oracle {
	return &Oracle{registry: reg}
}

// ModTime returns the current modification time of the unit's file.
// It wraps registry.ErrNotFound for unknown ids; any other error is an
// I/O failure reading the file metadata.
func (o *Oracle) ModTime(id string) (Record, error) {
	unit, err := o.registry.Resolve(id)
	if err != nil {
		return Record{}, err
	}

	info, err := os.Stat(unit.Path)
	if err != nil {
		return Record{}, fmt.Errorf("stat %s: %w", unit.File, err)
	}
	return Record{ID: unit.ID, MTime: Millis(info.ModTime())}, nil
}

// Millis converts t to fractional milliseconds since the Unix epoch.
func Millis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}
