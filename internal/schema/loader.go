// Package schema loads the JSON schemas stored in payload_schemas and checks
// documents against them.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/crackedclub/pkg/repository"
)

// ErrUnknownVersion is returned when no schema is cached for a version.
var ErrUnknownVersion = errors.New("unknown schema version")

// ValidationError lists why a document does not match its schema.
type ValidationError struct {
	Version  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match schema %s: %s", e.Version, strings.Join(e.Problems, "; "))
}

// Loader loads and caches compiled JSON schemas from the repository.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	if r == nil {
		return nil, fmt.Errorf("schema repo is required")
	}
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns a compiled schema for a version.
func (l *Loader) GetSchema(version string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[version]
	l.mu.RUnlock()

	return s, ok
}

// Versions lists the compiled schema versions in sorted order.
func (l *Loader) Versions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.cache))
}

// Reload loads all schemas from the DB and compiles them. The previous cache
// stays in place when any schema fails to compile.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(r.SchemaJSON), rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", r.Version, err)
		}
		newCache[r.Version] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// Validate checks doc against the schema stored as version.
func (l *Loader) Validate(ctx context.Context, version string, doc []byte) error {
	s, ok := l.GetSchema(version)
	if !ok || s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}

	kerrs, err := s.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("validate against %s: %w", version, err)
	}
	if len(kerrs) == 0 {
		return nil
	}

	verr := &ValidationError{Version: version}
	for _, k := range kerrs {
		msg := k.Message
		if k.PropertyPath != "" && k.PropertyPath != "/" {
			msg = k.PropertyPath + ": " + msg
		}
		verr.Problems = append(verr.Problems, msg)
	}
	return verr
}
