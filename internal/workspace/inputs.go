package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
)

const readOnlyPerms = 0o444

func validateInputName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidInputName, name)
	}

	return nil
}

// AddInput declares b as a new input called name. Data is not loaded.
func (w *Workspace) AddInput(name string, b bead.Bead) error {
	err := validateInputName(name)
	if err != nil {
		return err
	}

	if w.inputIndex(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrInputExists, name)
	}

	w.meta.Inputs = append(w.meta.Inputs, bead.InputFrom(name, b))

	return w.save()
}

// UpdateInput points the existing input name at b. Previously loaded data is
// unloaded because it belongs to the old version.
func (w *Workspace) UpdateInput(name string, b bead.Bead) error {
	i := w.inputIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownInput, name)
	}

	err := w.UnloadInput(name)
	if err != nil {
		return err
	}

	w.meta.Inputs[i] = bead.InputFrom(name, b)

	return w.save()
}

// DeleteInput unloads and forgets the input called name.
func (w *Workspace) DeleteInput(name string) error {
	i := w.inputIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownInput, name)
	}

	err := w.UnloadInput(name)
	if err != nil {
		return err
	}

	w.meta.Inputs = slices.Delete(w.meta.Inputs, i, i+1)

	return w.save()
}

// LoadInput extracts the data of a into input/<name> and makes the files
// read-only. a must be the exact version declared for the input and pass
// [archive.Archive.Verify].
func (w *Workspace) LoadInput(name string, a *archive.Archive) error {
	in, ok := w.Input(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInput, name)
	}

	if a.Kind() != in.Kind || a.ContentID != in.ContentID {
		return fmt.Errorf("%w: %s: %s", ErrInputMismatch, name, a.Path)
	}

	err := a.Verify()
	if err != nil {
		return fmt.Errorf("load input %s: %w", name, err)
	}

	err = w.UnloadInput(name)
	if err != nil {
		return err
	}

	dest := w.inputPath(name)

	err = a.ExtractData(dest)
	if err != nil {
		return fmt.Errorf("load input %s: %w", name, err)
	}

	err = filepath.WalkDir(dest, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}

		return os.Chmod(path, readOnlyPerms)
	})
	if err != nil {
		return fmt.Errorf("load input %s: %w", name, err)
	}

	return nil
}

// UnloadInput removes the loaded data of input name, if any.
func (w *Workspace) UnloadInput(name string) error {
	err := validateInputName(name)
	if err != nil {
		return err
	}

	path := w.inputPath(name)

	err = makeWritable(path)
	if err != nil {
		return fmt.Errorf("unload input %s: %w", name, err)
	}

	err = os.RemoveAll(path)
	if err != nil {
		return fmt.Errorf("unload input %s: %w", name, err)
	}

	return nil
}

// IsLoaded reports whether input name has data in input/<name>.
func (w *Workspace) IsLoaded(name string) bool {
	info, err := os.Stat(w.inputPath(name))

	return err == nil && info.IsDir()
}

// makeWritable restores owner write permission below root. A missing root
// is not an error.
func makeWritable(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		return os.Chmod(path, info.Mode().Perm()|0o200)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
