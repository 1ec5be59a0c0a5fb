package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// File maps a file on disk to its path inside the archive.
// ArchivePath must live under [CodePrefix] or [DataPrefix].
type File struct {
	ArchivePath string
	SourcePath  string
}

// Create packs files and meta into a new archive at dest and opens it.
//
// Archives are write-once: the zip is assembled in a temp file next to dest
// and published with a hard link, so an existing dest is never replaced and
// fails with [ErrArchiveExists].
func Create(dest string, meta Meta, files []File) (*Archive, error) {
	if meta.Kind == "" {
		return nil, errors.New("create archive: kind is empty")
	}

	if meta.FreezeTime.IsZero() {
		return nil, errors.New("create archive: freeze time is zero")
	}

	seen := make(map[string]bool, len(files))

	for _, f := range files {
		err := validateArchivePath(f.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("create archive: %w", err)
		}

		if seen[f.ArchivePath] {
			return nil, fmt.Errorf("create archive: duplicate archive path %q", f.ArchivePath)
		}

		seen[f.ArchivePath] = true
	}

	_, statErr := os.Lstat(dest)
	if statErr == nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveExists, dest)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".bead-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	err = writeZip(tmp, meta, files)
	if err != nil {
		_ = tmp.Close()

		return nil, fmt.Errorf("create archive %s: %w", dest, err)
	}

	err = tmp.Sync()
	if err != nil {
		_ = tmp.Close()

		return nil, fmt.Errorf("create archive %s: sync: %w", dest, err)
	}

	err = tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("create archive %s: close: %w", dest, err)
	}

	err = os.Link(tmpPath, dest)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveExists, dest)
		}

		return nil, fmt.Errorf("create archive %s: publish: %w", dest, err)
	}

	return Open(dest)
}

func writeZip(w io.Writer, meta Meta, files []File) error {
	meta.MetaVersion = MetaVersion
	modified := meta.FreezeTime.Time()

	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b File) int { return strings.Compare(a.ArchivePath, b.ArchivePath) })

	zw := zip.NewWriter(w)
	manifest := make(map[string]string, len(sorted))

	for _, f := range sorted {
		sum, err := addFile(zw, f, modified)
		if err != nil {
			return err
		}

		manifest[f.ArchivePath] = sum
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	// encoding/json sorts map keys, which keeps the content id reproducible
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	for _, entry := range []struct {
		name string
		data []byte
	}{
		{metaBeadPath, metaBytes},
		{metaManifestPath, manifestBytes},
	} {
		ew, err := zw.CreateHeader(&zip.FileHeader{Name: entry.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return fmt.Errorf("add %s: %w", entry.name, err)
		}

		_, err = ew.Write(entry.data)
		if err != nil {
			return fmt.Errorf("add %s: %w", entry.name, err)
		}
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}

	return nil
}

func addFile(zw *zip.Writer, f File, modified time.Time) (string, error) {
	src, err := os.Open(f.SourcePath)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", f.ArchivePath, err)
	}

	defer func() { _ = src.Close() }()

	ew, err := zw.CreateHeader(&zip.FileHeader{Name: f.ArchivePath, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return "", fmt.Errorf("add %s: %w", f.ArchivePath, err)
	}

	h := sha256.New()

	_, err = io.Copy(io.MultiWriter(ew, h), src)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", f.ArchivePath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func validateArchivePath(name string) error {
	if !hasPrefixDir(name, CodePrefix) && !hasPrefixDir(name, DataPrefix) {
		return fmt.Errorf("archive path %q must be under %s or %s", name, CodePrefix, DataPrefix)
	}

	if !filepath.IsLocal(filepath.FromSlash(name)) || strings.Contains(name, `\`) {
		return fmt.Errorf("archive path %q: %w", name, errUnsafePath)
	}

	return nil
}
