// Package bead holds the value types shared by the store, the workspace and
// the freshness web: bead identities, frozen inputs and freeze timestamps.
package bead

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFreezeTime reports a timestamp that is not in the freeze format.
var ErrInvalidFreezeTime = errors.New("invalid freeze time")

// freezeLayout is the parse layout; the textual form drops the '.' so that
// timestamps stay a single token inside file names and version specs.
const (
	freezeLayout  = "20060102T150405.000000-0700"
	freezeTextLen = len("20060102T150405000000-0700")
	fractionAt    = len("20060102T150405")
)

// FreezeTime is the moment a bead was frozen, with microsecond resolution.
//
// Text form: YYYYMMDDTHHMMSSffffff±hhmm, e.g. 20190321T191922693711+0100.
type FreezeTime struct {
	t time.Time
}

// NewFreezeTime truncates t to microseconds.
func NewFreezeTime(t time.Time) FreezeTime {
	return FreezeTime{t: t.Truncate(time.Microsecond)}
}

// Now returns the current local time as a FreezeTime.
func Now() FreezeTime {
	return NewFreezeTime(time.Now())
}

// ParseFreezeTime parses the text form produced by [FreezeTime.String].
func ParseFreezeTime(s string) (FreezeTime, error) {
	if len(s) != freezeTextLen {
		return FreezeTime{}, fmt.Errorf("%w: %q", ErrInvalidFreezeTime, s)
	}

	t, err := time.Parse(freezeLayout, s[:fractionAt]+"."+s[fractionAt:])
	if err != nil {
		return FreezeTime{}, fmt.Errorf("%w: %q", ErrInvalidFreezeTime, s)
	}

	return FreezeTime{t: t}, nil
}

// MustParseFreezeTime is ParseFreezeTime for constants; it panics on error.
func MustParseFreezeTime(s string) FreezeTime {
	ft, err := ParseFreezeTime(s)
	if err != nil {
		panic(err)
	}

	return ft
}

// Time returns the underlying time.
func (f FreezeTime) Time() time.Time { return f.t }

// IsZero reports whether f is the zero value.
func (f FreezeTime) IsZero() bool { return f.t.IsZero() }

// Equal reports instant equality, ignoring the zone.
func (f FreezeTime) Equal(other FreezeTime) bool { return f.t.Equal(other.t) }

// Compare returns -1, 0 or +1 like [time.Time.Compare].
func (f FreezeTime) Compare(other FreezeTime) int { return f.t.Compare(other.t) }

func (f FreezeTime) String() string {
	if f.t.IsZero() {
		return ""
	}

	s := f.t.Format(freezeLayout)

	return s[:fractionAt] + s[fractionAt+1:]
}

// MarshalText implements [encoding.TextMarshaler].
func (f FreezeTime) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (f *FreezeTime) UnmarshalText(text []byte) error {
	ft, err := ParseFreezeTime(string(text))
	if err != nil {
		return err
	}

	*f = ft

	return nil
}

// Bead is the identity of a stored bead.
//
// Kind groups every version of the same logical bead (the lineage); Name is
// the human name it was saved under and is not part of the identity.
type Bead struct {
	Kind       string
	ContentID  string
	FreezeTime FreezeTime
	Name       string
}

// Input is a named, frozen dependency on a specific version of another bead.
type Input struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	ContentID  string     `json:"content_id"`
	FreezeTime FreezeTime `json:"freeze_time"`
}

// InputFrom builds an Input named name that pins b.
func InputFrom(name string, b Bead) Input {
	return Input{
		Name:       name,
		Kind:       b.Kind,
		ContentID:  b.ContentID,
		FreezeTime: b.FreezeTime,
	}
}
