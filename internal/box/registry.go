package box

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/bead/internal/lockfile"
)

const (
	keyRepositories = "repositories"
	registryDirPerm = 0o750
)

// boxRecord is the persisted form of a box.
type boxRecord struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

// Registry is the ordered list of known boxes, persisted as
//
//	{"repositories": [{"name": ..., "directory": ...}, ...]}
//
// Lifecycle: [NewRegistry] (empty) → [Registry.Load] → [Registry.Add] /
// [Registry.Forget] → [Registry.Save]. Save rewrites the whole file. Keys
// other than "repositories" are carried through untouched.
type Registry struct {
	path   string
	boxes  []Box
	extra  map[string]json.RawMessage
	logger *slog.Logger
}

// NewRegistry returns an empty registry persisted at path.
// If logger is nil, slog.Default() is used.
func NewRegistry(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{path: path, logger: logger}
}

// Path returns the file backing the registry.
func (r *Registry) Path() string { return r.path }

// Load replaces the in-memory boxes with the persisted ones. A missing file
// is an empty registry. The file may contain comments and trailing commas.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.boxes = nil
			r.extra = nil

			return nil
		}

		return fmt.Errorf("read box registry: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRegistryInvalid, r.path, err)
	}

	var content map[string]json.RawMessage

	err = json.Unmarshal(standardized, &content)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRegistryInvalid, r.path, err)
	}

	var records []boxRecord

	if raw, ok := content[keyRepositories]; ok {
		err = json.Unmarshal(raw, &records)
		if err != nil {
			return fmt.Errorf("%w %s: %s: %w", ErrRegistryInvalid, r.path, keyRepositories, err)
		}
	}

	delete(content, keyRepositories)

	boxes := make([]Box, 0, len(records))
	for _, rec := range records {
		boxes = append(boxes, Box{Name: rec.Name, Location: rec.Directory, Logger: r.logger})
	}

	r.boxes = boxes
	r.extra = content

	return nil
}

// Save rewrites the registry file atomically under a file lock.
func (r *Registry) Save() error {
	content := make(map[string]any, len(r.extra)+1)
	for k, v := range r.extra {
		content[k] = v
	}

	records := make([]boxRecord, 0, len(r.boxes))
	for _, b := range r.boxes {
		records = append(records, boxRecord{Name: b.Name, Directory: b.Location})
	}

	content[keyRepositories] = records

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("encode box registry: %w", err)
	}

	data = append(data, '\n')

	err = os.MkdirAll(filepath.Dir(r.path), registryDirPerm)
	if err != nil {
		return fmt.Errorf("save box registry: %w", err)
	}

	err = lockfile.With(r.path, func() error {
		return atomic.WriteFile(r.path, bytes.NewReader(data))
	})
	if err != nil {
		return fmt.Errorf("save box registry: %w", err)
	}

	return nil
}

// Add registers a new box at the end of the search order. Both name and
// location must be unused; on conflict nothing changes.
func (r *Registry) Add(name, location string) error {
	if name == "" || location == "" {
		return fmt.Errorf("%w: name and directory are required", ErrInvalidBox)
	}

	for _, b := range r.boxes {
		if b.Name == name {
			return fmt.Errorf("%w: box with name %s already exists", ErrDuplicateBox, name)
		}

		if filepath.Clean(b.Location) == filepath.Clean(location) {
			return fmt.Errorf("%w: box with location %s already exists", ErrDuplicateBox, b.Location)
		}
	}

	r.boxes = append(r.boxes, Box{Name: name, Location: location, Logger: r.logger})

	return nil
}

// Forget drops the box called name and reports whether it was known.
func (r *Registry) Forget(name string) bool {
	before := len(r.boxes)
	r.boxes = slices.DeleteFunc(r.boxes, func(b Box) bool { return b.Name == name })

	return len(r.boxes) != before
}

// Get returns the box called name.
func (r *Registry) Get(name string) (Box, bool) {
	for _, b := range r.boxes {
		if b.Name == name {
			return b, true
		}
	}

	return Box{}, false
}

// All returns the boxes in search order.
func (r *Registry) All() []Box {
	return slices.Clone(r.boxes)
}
