package archive

import "errors"

var (
	// ErrNotAnArchive reports a file that is not a bead archive at all.
	ErrNotAnArchive = errors.New("not a bead archive")

	// ErrCorruptArchive reports a bead archive whose meta or payload does not check out.
	ErrCorruptArchive = errors.New("corrupt bead archive")

	// ErrArchiveExists reports an attempt to create an archive over an existing file.
	ErrArchiveExists = errors.New("archive already exists")
)
