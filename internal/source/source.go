// Package source defines the contract every timetable provider satisfies,
// the registry that resolves provider identifiers, and the read-through
// caching decorator that wraps providers.
package source

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/unitimetable/timetable/internal/model"
)

// Source fetches lessons and courses from one institution. Failures are
// returned as *model.Error carrying the fault classification.
type Source interface {
	Lessons(ctx context.Context, query map[string]string) ([]model.Lesson, error)
	Courses(ctx context.Context, query map[string]string) ([]model.Course, error)
}

var ErrInvalidID = errors.New("source id must not be empty")

// NormalizeID lower-cases and trims a source identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

type registration struct {
	name   string
	source Source
}

// Registry maps normalized identifiers to sources. It is populated once at
// startup and only read afterwards.
type Registry struct {
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds src under id with a human readable display name.
func (r *Registry) Register(id, name string, src Source) error {
	key := NormalizeID(id)
	if key == "" {
		return ErrInvalidID
	}
	if src == nil {
		return fmt.Errorf("source %q: nil source", key)
	}
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("source %q already registered", key)
	}
	r.entries[key] = registration{name: name, source: src}
	return nil
}

// Lookup resolves id. The boolean is false when nothing is registered under it.
func (r *Registry) Lookup(id string) (Source, bool) {
	reg, ok := r.entries[NormalizeID(id)]
	if !ok {
		return nil, false
	}
	return reg.source, true
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Names returns identifier to display name.
func (r *Registry) Names() map[string]string {
	out := make(map[string]string, len(r.entries))
	for id, reg := range r.entries {
		out[id] = reg.name
	}
	return out
}
