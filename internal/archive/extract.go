package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerms  = 0o750
	filePerms = 0o644
)

// ExtractCode writes the code/ subtree into dir.
func (a *Archive) ExtractCode(dir string) error {
	return a.extract(CodePrefix, dir)
}

// ExtractData writes the data/ subtree into dir.
func (a *Archive) ExtractData(dir string) error {
	return a.extract(DataPrefix, dir)
}

func (a *Archive) extract(prefix, dir string) error {
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", a.Path, err)
	}

	defer func() { _ = zr.Close() }()

	err = os.MkdirAll(dir, dirPerms)
	if err != nil {
		return fmt.Errorf("extract %s: %w", a.Path, err)
	}

	for _, f := range zr.File {
		if !hasPrefixDir(f.Name, prefix) || f.FileInfo().IsDir() {
			continue
		}

		rel := strings.TrimPrefix(f.Name, prefix)
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("%w: %s: %s: %w", ErrCorruptArchive, a.Path, f.Name, errUnsafePath)
		}

		err = extractFile(f, filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("extract %s: %s: %w", a.Path, f.Name, err)
		}
	}

	return nil
}

func extractFile(f *zip.File, dest string) error {
	err := os.MkdirAll(filepath.Dir(dest), dirPerms)
	if err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerms) //nolint:gosec // dest is checked by the caller
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc)
	if err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
