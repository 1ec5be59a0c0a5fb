// Package box stores bead archives in user managed directories ("boxes"),
// keeps the registry of known boxes and resolves version specs to archives.
package box

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
	"github.com/calvinalkan/bead/internal/order"
)

// Box is a named directory holding bead archives of any number of kinds.
//
// Boxes are read best-effort: entries that are not bead archives are skipped
// and a directory that disappeared reads as empty, because boxes are managed
// by users and may hold unrelated files or go stale.
type Box struct {
	Name     string
	Location string

	// Logger receives skip diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Packer is something that can be frozen into an archive, i.e. a workspace.
type Packer interface {
	// Name is the bead name used for the archive file name.
	Name() string
	// Pack writes a new archive at dest stamped with ft.
	Pack(dest string, ft bead.FreezeTime) (*archive.Archive, error)
}

func (b Box) log() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}

	return slog.Default()
}

// All yields every bead archive in the box.
func (b Box) All() iter.Seq[*archive.Archive] {
	return b.archives(func(string) bool { return true })
}

// FindByIdentity yields the archives of kind, restricted to contentID when
// it is non-empty.
func (b Box) FindByIdentity(kind, contentID string) iter.Seq[*archive.Archive] {
	return func(yield func(*archive.Archive) bool) {
		for a := range b.All() {
			if a.Kind() != kind {
				continue
			}

			if contentID != "" && a.ContentID != contentID {
				continue
			}

			if !yield(a) {
				return
			}
		}
	}
}

// FindByName yields the archives whose file name reduces to name.
// Only files matching the glob "<name>*" are opened.
func (b Box) FindByName(name string) iter.Seq[*archive.Archive] {
	pattern, err := glob.Compile(glob.QuoteMeta(name) + "*")
	if err != nil {
		b.log().Warn("invalid bead name pattern", "box", b.Name, "name", name, "err", err)

		return func(func(*archive.Archive) bool) {}
	}

	return b.archives(func(fileName string) bool {
		return pattern.Match(fileName) && LogicalName(fileName) == name
	})
}

// Find returns the archives of kind ordered by freeze time, at most limit of
// them when limit > 0.
func (b Box) Find(kind string, dir order.Direction, limit int) []*archive.Archive {
	return order.Sort(b.FindByIdentity(kind, ""), freezeTimeOf, dir, limit)
}

// Store packs src into a new archive named "<name>_<freeze time>.zip".
func (b Box) Store(src Packer, ft bead.FreezeTime) (*archive.Archive, error) {
	dest := filepath.Join(b.Location, fmt.Sprintf("%s_%s.zip", src.Name(), ft))

	a, err := src.Pack(dest, ft)
	if err != nil {
		return nil, fmt.Errorf("store %s in box %s: %w", src.Name(), b.Name, err)
	}

	b.log().Debug("stored bead", "box", b.Name, "path", dest, "content_id", a.ContentID)

	return a, nil
}

// archives opens every regular file accepted by keep, lazily.
func (b Box) archives(keep func(fileName string) bool) iter.Seq[*archive.Archive] {
	return func(yield func(*archive.Archive) bool) {
		entries, err := os.ReadDir(b.Location)
		if err != nil {
			b.log().Warn("box is not readable, ignoring it", "box", b.Name, "location", b.Location, "err", err)

			return
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() || !keep(entry.Name()) {
				continue
			}

			a, openErr := archive.Open(filepath.Join(b.Location, entry.Name()))
			if openErr != nil {
				b.log().Debug("skipping entry", "box", b.Name, "file", entry.Name(), "err", openErr)

				continue
			}

			if !yield(a) {
				return
			}
		}
	}
}

func freezeTimeOf(a *archive.Archive) time.Time {
	return a.FreezeTime().Time()
}
