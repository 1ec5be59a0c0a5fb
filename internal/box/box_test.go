package box_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/order"
)

const (
	ts1 = "20150901T151015000001+0200"
	ts2 = "20150901T151016000002+0200"
	ts3 = "20150902T080000000000+0200"
)

// fakeWorkspace packs a single sentinel file, like a minimal workspace.
type fakeWorkspace struct {
	t    *testing.T
	name string
	kind string
}

func (w fakeWorkspace) Name() string { return w.name }

func (w fakeWorkspace) Pack(dest string, ft bead.FreezeTime) (*archive.Archive, error) {
	src := filepath.Join(w.t.TempDir(), "sentinel")
	require.NoError(w.t, os.WriteFile(src, []byte(ft.String()), 0o600))

	return archive.Create(dest, archive.Meta{Kind: w.kind, FreezeTime: ft, FreezeName: w.name}, []archive.File{
		{ArchivePath: "code/sentinel-" + ft.String(), SourcePath: src},
	})
}

func newBox(t *testing.T, name string) box.Box {
	t.Helper()

	return box.Box{Name: name, Location: t.TempDir()}
}

func store(t *testing.T, b box.Box, name, kind, ts string) *archive.Archive {
	t.Helper()

	a, err := b.Store(fakeWorkspace{t: t, name: name, kind: kind}, bead.MustParseFreezeTime(ts))
	require.NoError(t, err)

	return a
}

func collect(seq func(func(*archive.Archive) bool)) []string {
	var out []string

	for a := range seq {
		out = append(out, a.FreezeTime().String())
	}

	slices.Sort(out)

	return out
}

func Test_LogicalName_Peels_Versions_And_Extensions(t *testing.T) {
	t.Parallel()

	cases := []struct{ input, want string }{
		{"complex-2015v3-2015-09-23.utf8-csvs.zip", "complex-2015v3"},
		{"/boxes/main/pkg_with_history_" + ts1 + ".zip", "pkg_with_history"},
		{"pkg_a_" + ts2 + ".zip", "pkg_a"},
		{"name-v1.zip", "name-v1"},
		{"name-v2_" + ts3 + ".zip", "name-v2"},
		{"data.tar.gz", "data"},
		{"plain", "plain"},
		{"numbers-1-2-3", "numbers"},
		{"trailing_", "trailing"},
		{"weird_20190321T191922693711-0500", "weird"},
	}

	for _, tc := range cases {
		got := box.LogicalName(tc.input)
		if got != tc.want {
			t.Errorf("LogicalName(%q)=%q, want=%q", tc.input, got, tc.want)
		}

		if again := box.LogicalName(got); again != got {
			t.Errorf("LogicalName not idempotent on %q: %q", got, again)
		}
	}
}

func Test_ParseVersionSpec_Accepts_Every_Designator_Form(t *testing.T) {
	t.Parallel()

	anchor := bead.MustParseFreezeTime(ts1)
	negAnchor := bead.MustParseFreezeTime("20150901T151015000001-0200")

	cases := []struct {
		in   string
		want box.VersionSpec
	}{
		{"pkg", box.VersionSpec{Name: "pkg"}},
		{"pkg@", box.VersionSpec{Name: "pkg"}},
		{"pkg@-1", box.VersionSpec{Name: "pkg", Offset: 1}},
		{"pkg@-0", box.VersionSpec{Name: "pkg"}},
		{"pkg@" + ts1, box.VersionSpec{Name: "pkg", Time: &anchor}},
		{"pkg@" + ts1 + "-3", box.VersionSpec{Name: "pkg", Time: &anchor, Offset: 3}},
		{"pkg@20150901T151015000001-0200", box.VersionSpec{Name: "pkg", Time: &negAnchor}},
		{"pkg@20150901T151015000001-0200-2", box.VersionSpec{Name: "pkg", Time: &negAnchor, Offset: 2}},
	}

	for _, tc := range cases {
		got, err := box.ParseVersionSpec(tc.in)
		if err != nil {
			t.Errorf("ParseVersionSpec(%q): %v", tc.in, err)

			continue
		}

		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseVersionSpec(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}

func Test_ParseVersionSpec_Fails_When_Designator_Is_Malformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "@-1", "pkg@1", "pkg@-x", "pkg@yesterday", "pkg@" + ts1 + "+1", "pkg@--1"} {
		_, err := box.ParseVersionSpec(in)
		if !errors.Is(err, box.ErrInvalidVersionSpec) {
			t.Errorf("ParseVersionSpec(%q) err=%v, want ErrInvalidVersionSpec", in, err)
		}
	}
}

func Test_VersionSpec_String_Round_Trips(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"pkg", "pkg@-2", "pkg@" + ts1, "pkg@" + ts1 + "-1"} {
		spec, err := box.ParseVersionSpec(in)
		require.NoError(t, err)

		if got := spec.String(); got != in {
			t.Errorf("String()=%q, want=%q", got, in)
		}
	}
}

// Contract: enumeration skips files that are not bead archives instead of failing.
func Test_FindByIdentity_Skips_Foreign_Files_When_Box_Is_Shared(t *testing.T) {
	t.Parallel()

	b := newBox(t, "main")
	want := store(t, b, "pkg", "kind-pkg", ts1)
	store(t, b, "pkg", "kind-pkg", ts2)
	store(t, b, "other", "kind-other", ts3)

	require.NoError(t, os.WriteFile(filepath.Join(b.Location, "README"), []byte("not a bead"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(b.Location, "broken.zip"), []byte("PK garbage"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(b.Location, "subdir"), 0o750))

	if diff := cmp.Diff([]string{ts1, ts2}, collect(b.FindByIdentity("kind-pkg", ""))); diff != "" {
		t.Errorf("by kind (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{ts1}, collect(b.FindByIdentity("kind-pkg", want.ContentID))); diff != "" {
		t.Errorf("by kind and content id (-want +got):\n%s", diff)
	}

	if got := collect(b.FindByIdentity("kind-missing", "")); len(got) != 0 {
		t.Errorf("unknown kind matched %v", got)
	}

	if got := len(collect(b.All())); got != 3 {
		t.Errorf("All()=%d archives, want=3", got)
	}
}

// Contract: a box whose directory vanished behaves as an empty box.
func Test_Box_Reads_As_Empty_When_Directory_Is_Missing(t *testing.T) {
	t.Parallel()

	b := box.Box{Name: "gone", Location: filepath.Join(t.TempDir(), "deleted")}

	if got := collect(b.All()); len(got) != 0 {
		t.Errorf("All()=%v, want empty", got)
	}

	if _, ok := b.Resolve(box.VersionSpec{Name: "pkg"}); ok {
		t.Error("Resolve found a bead in a missing box")
	}
}

func Test_FindByName_Matches_Logical_Name_Only(t *testing.T) {
	t.Parallel()

	b := newBox(t, "main")
	store(t, b, "pkg", "kind-pkg", ts1)
	store(t, b, "pkg_extra", "kind-extra", ts2)
	store(t, b, "pkg-v2", "kind-v2", ts3)

	if diff := cmp.Diff([]string{ts1}, collect(b.FindByName("pkg"))); diff != "" {
		t.Errorf("pkg (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{ts3}, collect(b.FindByName("pkg-v2"))); diff != "" {
		t.Errorf("pkg-v2 (-want +got):\n%s", diff)
	}

	if got := collect(b.FindByName("pk")); len(got) != 0 {
		t.Errorf("prefix-only name matched %v", got)
	}
}

func Test_Store_Names_Archive_After_Bead_And_Freeze_Time(t *testing.T) {
	t.Parallel()

	b := newBox(t, "main")
	a := store(t, b, "pkg", "kind-pkg", ts1)

	want := filepath.Join(b.Location, "pkg_"+ts1+".zip")
	if a.Path != want {
		t.Errorf("path=%q, want=%q", a.Path, want)
	}

	_, err := b.Store(fakeWorkspace{t: t, name: "pkg", kind: "kind-pkg"}, bead.MustParseFreezeTime(ts1))
	if !errors.Is(err, archive.ErrArchiveExists) {
		t.Errorf("second store err=%v, want ErrArchiveExists", err)
	}
}

func Test_Find_Orders_By_Freeze_Time_With_Limit(t *testing.T) {
	t.Parallel()

	b := newBox(t, "main")
	store(t, b, "pkg", "kind-pkg", ts2)
	store(t, b, "pkg", "kind-pkg", ts3)
	store(t, b, "pkg", "kind-pkg", ts1)

	times := func(as []*archive.Archive) []string {
		out := make([]string, len(as))
		for i, a := range as {
			out[i] = a.FreezeTime().String()
		}

		return out
	}

	if diff := cmp.Diff([]string{ts3, ts2}, times(b.Find("kind-pkg", order.NewestFirst, 2))); diff != "" {
		t.Errorf("newest (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{ts1, ts2, ts3}, times(b.Find("kind-pkg", order.OldestFirst, 0))); diff != "" {
		t.Errorf("oldest (-want +got):\n%s", diff)
	}
}
