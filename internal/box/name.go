package box

import (
	"path/filepath"
	"regexp"
)

// rePeel strips one layer of file name decoration: everything after the
// first '.', or a trailing separator followed by a version-ish run made of
// digits, separators, '+' and the 'T' between date and time of a freeze
// timestamp. Names such as "name-v1" survive.
var rePeel = regexp.MustCompile(`[.].*$|[-_](?:[-_.+0-9]|[0-9]T[0-9])*$`)

// LogicalName derives the bead name from an archive file path by peeling
// decorations until nothing changes.
//
//	LogicalName("complex-2015v3-2015-09-23.utf8-csvs.zip") == "complex-2015v3"
//
// It might return a simpler name than intended for names that end in numbers.
func LogicalName(path string) string {
	name := filepath.Base(path)

	for {
		peeled := rePeel.ReplaceAllString(name, "")
		if peeled == name {
			return name
		}

		name = peeled
	}
}
