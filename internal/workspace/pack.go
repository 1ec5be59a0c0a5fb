package workspace

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
)

// Pack freezes the workspace into a new archive at dest. Code is every file
// outside input/, output/, temp/ and the meta file; data is output/.
func (w *Workspace) Pack(dest string, ft bead.FreezeTime) (*archive.Archive, error) {
	files, err := w.payload()
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", w.dir, err)
	}

	return archive.Create(dest, archive.Meta{
		Kind:       w.meta.Kind,
		FreezeTime: ft,
		FreezeName: w.Name(),
		Inputs:     w.Inputs(),
	}, files)
}

func (w *Workspace) payload() ([]archive.File, error) {
	skip := map[string]bool{InputDir: true, OutputDir: true, TempDir: true, metaFile: true}

	var files []archive.File

	code, err := collect(w.dir, archive.CodePrefix, func(rel string) bool { return skip[rel] })
	if err != nil {
		return nil, err
	}

	files = append(files, code...)

	data, err := collect(filepath.Join(w.dir, OutputDir), archive.DataPrefix, func(string) bool { return false })
	if err != nil {
		return nil, err
	}

	return append(files, data...), nil
}

// collect lists the regular files below root as archive files under prefix.
// Entries for which excluded returns true are pruned.
func collect(root, prefix string, excluded func(rel string) bool) ([]archive.File, error) {
	var files []archive.File

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		if excluded(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		files = append(files, archive.File{
			ArchivePath: path.Join(prefix, filepath.ToSlash(rel)),
			SourcePath:  p,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Develop materializes a as a new workspace at dir: its code, its declared
// inputs (not loaded) and, with withData, its data in output/. The archive is
// verified first.
func Develop(a *archive.Archive, dir string, withData bool) (*Workspace, error) {
	err := a.Verify()
	if err != nil {
		return nil, err
	}

	ws, err := Create(dir, a.Kind())
	if err != nil {
		return nil, err
	}

	ws.meta.Inputs = a.Inputs()

	err = ws.save()
	if err != nil {
		return nil, err
	}

	err = a.ExtractCode(dir)
	if err != nil {
		return nil, err
	}

	if withData {
		err = a.ExtractData(filepath.Join(dir, OutputDir))
		if err != nil {
			return nil, err
		}
	}

	return ws, nil
}
