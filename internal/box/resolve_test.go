package box_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bead/internal/box"
)

func historyRegistry(t *testing.T) *box.Registry {
	t.Helper()

	b := newBox(t, "main")
	store(t, b, "pkg_with_history", "kind-history", ts1)
	store(t, b, "pkg_with_history", "kind-history", ts2)

	r := box.NewRegistry(filepath.Join(t.TempDir(), "env.json"), nil)
	require.NoError(t, r.Add(b.Name, b.Location))

	return r
}

func Test_Registry_ResolveString_Selects_Version(t *testing.T) {
	t.Parallel()

	r := historyRegistry(t)

	cases := []struct {
		spec string
		want string
	}{
		{"pkg_with_history", ts2},
		{"pkg_with_history@", ts2},
		{"pkg_with_history@-0", ts2},
		{"pkg_with_history@-1", ts1},
		{"pkg_with_history@" + ts1, ts1},
		{"pkg_with_history@" + ts2, ts2},
		{"pkg_with_history@" + ts2 + "-1", ts2},
	}

	for _, tc := range cases {
		a, err := r.ResolveString(tc.spec)
		if err != nil {
			t.Errorf("ResolveString(%q): %v", tc.spec, err)

			continue
		}

		if got := a.FreezeTime().String(); got != tc.want {
			t.Errorf("ResolveString(%q)=%s, want=%s", tc.spec, got, tc.want)
		}
	}
}

func Test_Registry_ResolveString_Fails_With_NotFound_When_Nothing_Matches(t *testing.T) {
	t.Parallel()

	r := historyRegistry(t)

	for _, spec := range []string{"pkg_with_history@-2", "pkg_with_history@" + ts3, "missing", "pkg_with"} {
		_, err := r.ResolveString(spec)
		if !errors.Is(err, box.ErrNotFound) {
			t.Errorf("ResolveString(%q) err=%v, want ErrNotFound", spec, err)
		}
	}

	_, err := r.ResolveString("pkg@nope")
	if !errors.Is(err, box.ErrInvalidVersionSpec) {
		t.Errorf("err=%v, want ErrInvalidVersionSpec", err)
	}
}

// Contract: an offset of any size resolves to ErrNotFound when too few
// versions exist, and TIMESTAMP-N still clamps to the anchor's oldest.
func Test_Registry_ResolveString_Handles_Huge_Offsets(t *testing.T) {
	t.Parallel()

	empty := box.NewRegistry(filepath.Join(t.TempDir(), "env.json"), nil)
	b := newBox(t, "empty")
	require.NoError(t, empty.Add(b.Name, b.Location))

	huge := []string{"-9223372036854775807", "-9223372036854775806", "-1000000000"}

	for _, offset := range huge {
		for _, spec := range []string{"pkg@" + offset, "pkg@" + ts1 + offset} {
			_, err := empty.ResolveString(spec)
			if !errors.Is(err, box.ErrNotFound) {
				t.Errorf("empty box: ResolveString(%q) err=%v, want ErrNotFound", spec, err)
			}
		}
	}

	r := historyRegistry(t)

	_, err := r.ResolveString("pkg_with_history@" + huge[0])
	if !errors.Is(err, box.ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}

	a, err := r.ResolveString("pkg_with_history@" + ts2 + huge[0])
	require.NoError(t, err)

	if got := a.FreezeTime().String(); got != ts2 {
		t.Errorf("anchored huge offset=%s, want=%s", got, ts2)
	}
}

// Contract: boxes are searched in registry order and the first match wins,
// even when a later box has a newer version.
func Test_Registry_Resolve_Prefers_Earlier_Box(t *testing.T) {
	t.Parallel()

	first := newBox(t, "first")
	second := newBox(t, "second")

	store(t, first, "pkg", "kind-pkg", ts1)
	store(t, second, "pkg", "kind-pkg", ts2)
	store(t, second, "pkg", "kind-pkg", ts3)
	store(t, second, "only_second", "kind-second", ts2)

	r := box.NewRegistry(filepath.Join(t.TempDir(), "env.json"), nil)
	require.NoError(t, r.Add(first.Name, first.Location))
	require.NoError(t, r.Add(second.Name, second.Location))

	a, err := r.ResolveString("pkg")
	require.NoError(t, err)

	if got := a.FreezeTime().String(); got != ts1 {
		t.Fatalf("pkg=%s, want=%s from first box", got, ts1)
	}

	// The first box has no second version, so the second box answers.
	a, err = r.ResolveString("pkg@-1")
	require.NoError(t, err)

	if got := a.FreezeTime().String(); got != ts2 {
		t.Fatalf("pkg@-1=%s, want=%s from second box", got, ts2)
	}

	a, err = r.ResolveString("only_second")
	require.NoError(t, err)

	if got := a.FreezeTime().String(); got != ts2 {
		t.Fatalf("only_second=%s, want=%s", got, ts2)
	}
}

func Test_Registry_Newest_And_Package_Search_Every_Box(t *testing.T) {
	t.Parallel()

	first := newBox(t, "first")
	second := newBox(t, "second")

	old := store(t, first, "pkg", "kind-pkg", ts1)
	store(t, second, "pkg", "kind-pkg", ts3)

	r := box.NewRegistry(filepath.Join(t.TempDir(), "env.json"), nil)
	require.NoError(t, r.Add(first.Name, first.Location))
	require.NoError(t, r.Add(second.Name, second.Location))

	newest, err := r.Newest("kind-pkg")
	require.NoError(t, err)

	if got := newest.FreezeTime().String(); got != ts3 {
		t.Fatalf("newest=%s, want=%s", got, ts3)
	}

	found, err := r.Package("kind-pkg", old.ContentID)
	require.NoError(t, err)

	if found.Path != old.Path {
		t.Fatalf("package path=%q, want=%q", found.Path, old.Path)
	}

	_, err = r.Package("kind-pkg", "no-such-content")
	require.ErrorIs(t, err, box.ErrNotFound)

	_, err = r.Newest("kind-none")
	require.ErrorIs(t, err, box.ErrNotFound)
}
