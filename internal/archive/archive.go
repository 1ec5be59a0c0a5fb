// Package archive reads and writes bead archives: zip files carrying a bead's
// identity, its frozen inputs, its code and its data.
//
// Layout inside the zip:
//
//	meta/bead      JSON identity and inputs
//	meta/manifest  JSON map of every payload path to its sha256
//	code/...       workspace source files
//	data/...       output files
//
// The content id is the sha256 of the two meta entries. Because the manifest
// pins every payload byte, the id is derived from the whole packed content.
package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/calvinalkan/bead/internal/bead"
)

const (
	metaBeadPath     = "meta/bead"
	metaManifestPath = "meta/manifest"

	// CodePrefix is the zip directory holding workspace source files.
	CodePrefix = "code/"
	// DataPrefix is the zip directory holding output files.
	DataPrefix = "data/"

	// MetaVersion tags the meta/bead format.
	MetaVersion = "bead-meta:1"
)

// Meta is the decoded meta/bead entry.
type Meta struct {
	MetaVersion string          `json:"meta_version"`
	Kind        string          `json:"kind"`
	FreezeTime  bead.FreezeTime `json:"freeze_time"`
	FreezeName  string          `json:"freeze_name"`
	Inputs      []bead.Input    `json:"inputs"`
}

// Archive is an opened bead archive. Only the meta entries are read by
// [Open]; payload access reopens the zip on demand.
type Archive struct {
	Path      string
	ContentID string
	meta      Meta
	manifest  map[string]string
}

// Open decodes the identity of the archive at path.
//
// It fails with [ErrNotAnArchive] when path is not a zip carrying meta/bead,
// and with [ErrCorruptArchive] when the meta entries cannot be decoded.
func Open(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAnArchive, path, err)
	}

	defer func() { _ = zr.Close() }()

	metaBytes, err := readEntry(&zr.Reader, metaBeadPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAnArchive, path, err)
	}

	manifestBytes, err := readEntry(&zr.Reader, metaManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, path, err)
	}

	var meta Meta

	err = json.Unmarshal(metaBytes, &meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: meta: %w", ErrCorruptArchive, path, err)
	}

	if meta.Kind == "" || meta.FreezeTime.IsZero() {
		return nil, fmt.Errorf("%w: %s: meta lacks kind or freeze time", ErrCorruptArchive, path)
	}

	var manifest map[string]string

	err = json.Unmarshal(manifestBytes, &manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: manifest: %w", ErrCorruptArchive, path, err)
	}

	return &Archive{
		Path:      path,
		ContentID: contentID(metaBytes, manifestBytes),
		meta:      meta,
		manifest:  manifest,
	}, nil
}

// Kind is the lineage id of the bead.
func (a *Archive) Kind() string { return a.meta.Kind }

// FreezeTime is the moment the bead was saved.
func (a *Archive) FreezeTime() bead.FreezeTime { return a.meta.FreezeTime }

// Name is the name the bead was saved under.
func (a *Archive) Name() string { return a.meta.FreezeName }

// Inputs returns a copy of the frozen inputs.
func (a *Archive) Inputs() []bead.Input { return slices.Clone(a.meta.Inputs) }

// Bead returns the identity record of the archive.
func (a *Archive) Bead() bead.Bead {
	return bead.Bead{
		Kind:       a.meta.Kind,
		ContentID:  a.ContentID,
		FreezeTime: a.meta.FreezeTime,
		Name:       a.meta.FreezeName,
	}
}

// Verify re-hashes the payload and compares it against the manifest.
// Any mismatch, missing or unlisted entry is an [ErrCorruptArchive].
func (a *Archive) Verify() error {
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptArchive, a.Path, err)
	}

	defer func() { _ = zr.Close() }()

	seen := make(map[string]bool, len(a.manifest))

	for _, f := range zr.File {
		if f.Name == metaBeadPath || f.Name == metaManifestPath || f.FileInfo().IsDir() {
			continue
		}

		want, listed := a.manifest[f.Name]
		if !listed {
			return fmt.Errorf("%w: %s: unlisted entry %s", ErrCorruptArchive, a.Path, f.Name)
		}

		got, hashErr := hashEntry(f)
		if hashErr != nil {
			return fmt.Errorf("%w: %s: %s: %w", ErrCorruptArchive, a.Path, f.Name, hashErr)
		}

		if got != want {
			return fmt.Errorf("%w: %s: checksum mismatch for %s", ErrCorruptArchive, a.Path, f.Name)
		}

		seen[f.Name] = true
	}

	for name := range a.manifest {
		if !seen[name] {
			return fmt.Errorf("%w: %s: missing entry %s", ErrCorruptArchive, a.Path, name)
		}
	}

	return nil
}

func contentID(metaBytes, manifestBytes []byte) string {
	h := sha256.New()
	_, _ = h.Write(metaBytes)
	_, _ = h.Write(manifestBytes)

	return hex.EncodeToString(h.Sum(nil))
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return data, nil
}

func hashEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}

	defer func() { _ = rc.Close() }()

	h := sha256.New()

	_, err = io.Copy(h, rc)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hasPrefixDir reports whether name lives under the zip directory prefix.
func hasPrefixDir(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && len(name) > len(prefix)
}

var errUnsafePath = errors.New("entry escapes target directory")
