package box

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/calvinalkan/bead/internal/bead"
)

// VersionSpec selects one version of a named bead.
//
// Grammar: NAME[@[TIMESTAMP][-N]]
//
//	name                  newest
//	name@                 newest
//	name@-N               N-th newest, 0 based (-1 is the second newest)
//	name@TIMESTAMP        exactly that freeze time
//	name@TIMESTAMP-N      N back from the versions frozen at TIMESTAMP
type VersionSpec struct {
	Name string
	// Time is the exact freeze time to anchor on; nil means "newest".
	Time   *bead.FreezeTime
	Offset int
}

var reDesignator = regexp.MustCompile(`^(\d{8}T\d{12}[-+]\d{4})?(?:-(\d+))?$`)

// ParseVersionSpec parses s according to the [VersionSpec] grammar.
func ParseVersionSpec(s string) (VersionSpec, error) {
	name, designator, _ := strings.Cut(s, "@")
	if name == "" {
		return VersionSpec{}, fmt.Errorf("%w: %q: name is empty", ErrInvalidVersionSpec, s)
	}

	spec := VersionSpec{Name: name}

	m := reDesignator.FindStringSubmatch(designator)
	if m == nil {
		return VersionSpec{}, fmt.Errorf("%w: %q", ErrInvalidVersionSpec, s)
	}

	if m[1] != "" {
		ft, err := bead.ParseFreezeTime(m[1])
		if err != nil {
			return VersionSpec{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersionSpec, s, err)
		}

		spec.Time = &ft
	}

	if m[2] != "" {
		offset, err := strconv.Atoi(m[2])
		if err != nil {
			return VersionSpec{}, fmt.Errorf("%w: %q: offset: %w", ErrInvalidVersionSpec, s, err)
		}

		spec.Offset = offset
	}

	return spec, nil
}

func (s VersionSpec) String() string {
	var designator string

	if s.Time != nil {
		designator = s.Time.String()
	}

	if s.Offset > 0 {
		designator += "-" + strconv.Itoa(s.Offset)
	}

	if designator == "" {
		return s.Name
	}

	return s.Name + "@" + designator
}
