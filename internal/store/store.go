// Package store implements the hierarchical document store the ledger persists into.
//
// Values are addressed by slash separated key paths ("companies/{cid}/vehicles/{vid}").
// Every backend offers the same contract: whole-subtree reads and overwrites, removal of a
// subtree with everything beneath it, and allocation of new child keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned for empty paths or paths with forbidden characters.
var ErrInvalidPath = errors.New("store: invalid path")

// ErrConflict is returned when an optimistic write kept losing against concurrent writers.
var ErrConflict = errors.New("store: write conflict")

// Store is the Entity Store Client contract.
type Store interface {
	// Get returns the subtree at path. A missing subtree yields a snapshot whose Exists is false.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set overwrites the subtree at path. A nil value removes it.
	Set(ctx context.Context, path string, value any) error
	// Update writes several paths in one call. Paths are applied in lexical order.
	Update(ctx context.Context, values map[string]any) error
	// Push allocates a new unique child key under path without writing a value.
	Push(ctx context.Context, path string) (string, error)
	// Remove deletes the subtree at path and everything beneath it.
	Remove(ctx context.Context, path string) error
}

// Snapshot is an immutable copy of a subtree.
type Snapshot struct {
	path string
	raw  json.RawMessage
}

// NewSnapshot encodes value as the content of a snapshot at path.
func NewSnapshot(path string, value any) (Snapshot, error) {
	if value == nil {
		return Snapshot{path: path}, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{path: path, raw: raw}, nil
}

// Path returns the path the snapshot was read from.
func (s Snapshot) Path() string { return s.path }

// Key returns the last path segment.
func (s Snapshot) Key() string {
	if i := strings.LastIndexByte(s.path, '/'); i >= 0 {
		return s.path[i+1:]
	}
	return s.path
}

// Exists reports whether a value is stored at the path.
func (s Snapshot) Exists() bool {
	return len(s.raw) > 0 && string(s.raw) != "null"
}

// Raw returns the JSON encoding of the subtree, or nil when it does not exist.
func (s Snapshot) Raw() json.RawMessage {
	if !s.Exists() {
		return nil
	}
	return s.raw
}

// Val decodes the subtree into generic JSON values.
func (s Snapshot) Val() any {
	if !s.Exists() {
		return nil
	}
	var out any
	if err := json.Unmarshal(s.raw, &out); err != nil {
		return nil
	}
	return out
}

// Decode unmarshals the subtree into dst. Missing subtrees leave dst untouched.
func (s Snapshot) Decode(dst any) error {
	if !s.Exists() {
		return nil
	}
	return json.Unmarshal(s.raw, dst)
}

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split validates path and returns its segments.
func Split(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, ErrInvalidPath
	}
	segs := strings.Split(trimmed, "/")
	for _, seg := range segs {
		if seg == "" || strings.ContainsAny(seg, ".#$[]") {
			return nil, ErrInvalidPath
		}
	}
	return segs, nil
}

// NewPushID returns a new child key. Keys are time ordered so lexical order follows creation order.
func NewPushID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

type write struct {
	segs  []string
	value any
}

func planWrites(values map[string]any) ([]write, error) {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	writes := make([]write, 0, len(paths))
	for _, p := range paths {
		segs, err := Split(p)
		if err != nil {
			return nil, err
		}
		value, err := normalize(values[p])
		if err != nil {
			return nil, err
		}
		writes = append(writes, write{segs: segs, value: value})
	}
	return writes, nil
}

func roots(writes []write) []string {
	seen := make(map[string]struct{}, len(writes))
	out := make([]string, 0, len(writes))
	for _, w := range writes {
		if _, ok := seen[w.segs[0]]; ok {
			continue
		}
		seen[w.segs[0]] = struct{}{}
		out = append(out, w.segs[0])
	}
	return out
}
