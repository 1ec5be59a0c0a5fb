// Package workspace manages a bead's working directory: the place where a
// bead is developed, its inputs are loaded and from which it is packed.
//
// Layout:
//
//	<dir>/.bead-meta   JSON: kind and declared inputs
//	<dir>/input/<name> loaded input data, read-only
//	<dir>/output/      data produced by the bead, packed as data/
//	<dir>/temp/        scratch space, never packed
//	<dir>/...          everything else is code, packed as code/
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/bead/internal/bead"
)

const (
	metaFile = ".bead-meta"

	InputDir  = "input"
	OutputDir = "output"
	TempDir   = "temp"

	metaVersion = "workspace-meta:1"

	dirPerms  = 0o750
	filePerms = 0o644
)

// Errors returned by workspace operations.
var (
	ErrNotWorkspace     = errors.New("not a workspace")
	ErrWorkspaceExists  = errors.New("workspace already exists")
	ErrUnknownInput     = errors.New("unknown input")
	ErrInputExists      = errors.New("input already exists")
	ErrInvalidInputName = errors.New("invalid input name")
	ErrInputMismatch    = errors.New("archive does not match input")
	errUnsupportedMeta  = errors.New("unsupported workspace meta version")
)

type meta struct {
	MetaVersion string       `json:"meta_version"`
	Kind        string       `json:"kind"`
	Inputs      []bead.Input `json:"inputs"`
}

// Workspace is an opened working directory.
type Workspace struct {
	dir  string
	meta meta
}

// Create makes a new workspace for kind at dir. dir must not exist or be
// an empty directory.
func Create(dir, kind string) (*Workspace, error) {
	if kind == "" {
		return nil, errors.New("create workspace: kind is empty")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceExists, dir)
	}

	for _, sub := range []string{InputDir, OutputDir, TempDir} {
		mkdirErr := os.MkdirAll(filepath.Join(dir, sub), dirPerms)
		if mkdirErr != nil {
			return nil, fmt.Errorf("create workspace: %w", mkdirErr)
		}
	}

	ws := &Workspace{dir: dir, meta: meta{MetaVersion: metaVersion, Kind: kind}}

	err := ws.save()
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return ws, nil
}

// Open loads the workspace at dir.
func Open(dir string) (*Workspace, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotWorkspace, dir)
		}

		return nil, fmt.Errorf("open workspace: %w", err)
	}

	var m meta

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotWorkspace, dir, err)
	}

	if m.MetaVersion != metaVersion {
		return nil, fmt.Errorf("%w: %s: %w %q", ErrNotWorkspace, dir, errUnsupportedMeta, m.MetaVersion)
	}

	if m.Kind == "" {
		return nil, fmt.Errorf("%w: %s: kind is empty", ErrNotWorkspace, dir)
	}

	return &Workspace{dir: dir, meta: m}, nil
}

// IsValid reports whether dir holds a readable workspace with its input,
// output and temp directories in place.
func IsValid(dir string) bool {
	_, err := Open(dir)
	if err != nil {
		return false
	}

	for _, sub := range []string{InputDir, OutputDir, TempDir} {
		info, statErr := os.Stat(filepath.Join(dir, sub))
		if statErr != nil || !info.IsDir() {
			return false
		}
	}

	return true
}

// Find walks up from dir to the nearest workspace.
func Find(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("find workspace: %w", err)
	}

	for cur := abs; ; cur = filepath.Dir(cur) {
		_, statErr := os.Stat(filepath.Join(cur, metaFile))
		if statErr == nil {
			return Open(cur)
		}

		if filepath.Dir(cur) == cur {
			return nil, fmt.Errorf("%w: %s or any parent", ErrNotWorkspace, abs)
		}
	}
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Name is the directory's base name; it becomes the bead name when packed.
func (w *Workspace) Name() string {
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return filepath.Base(w.dir)
	}

	return filepath.Base(abs)
}

// Kind returns the lineage id of the bead developed here.
func (w *Workspace) Kind() string { return w.meta.Kind }

// Inputs returns the declared inputs sorted by name.
func (w *Workspace) Inputs() []bead.Input {
	inputs := slices.Clone(w.meta.Inputs)
	slices.SortFunc(inputs, func(a, b bead.Input) int { return strings.Compare(a.Name, b.Name) })

	return inputs
}

// Input returns the input called name.
func (w *Workspace) Input(name string) (bead.Input, bool) {
	i := w.inputIndex(name)
	if i < 0 {
		return bead.Input{}, false
	}

	return w.meta.Inputs[i], true
}

func (w *Workspace) inputIndex(name string) int {
	return slices.IndexFunc(w.meta.Inputs, func(in bead.Input) bool { return in.Name == name })
}

func (w *Workspace) inputPath(name string) string {
	return filepath.Join(w.dir, InputDir, name)
}

func (w *Workspace) save() error {
	data, err := json.MarshalIndent(w.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode workspace meta: %w", err)
	}

	path := filepath.Join(w.dir, metaFile)

	writeErr := atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
	if writeErr != nil {
		return fmt.Errorf("write workspace meta: %w", writeErr)
	}

	// atomic.WriteFile keeps the temp file's mode for new files
	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("write workspace meta: %w", chmodErr)
	}

	return nil
}

// Nuke removes the workspace directory, including read-only loaded inputs.
func (w *Workspace) Nuke() error {
	err := makeWritable(filepath.Join(w.dir, InputDir))
	if err != nil {
		return fmt.Errorf("nuke %s: %w", w.dir, err)
	}

	err = os.RemoveAll(w.dir)
	if err != nil {
		return fmt.Errorf("nuke %s: %w", w.dir, err)
	}

	return nil
}
