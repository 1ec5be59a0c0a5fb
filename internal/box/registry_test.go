package box_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bead/internal/box"
)

func boxNames(r *box.Registry) []string {
	var names []string
	for _, b := range r.All() {
		names = append(names, b.Name)
	}

	return names
}

func Test_Registry_Load_Returns_Empty_When_File_Is_Missing(t *testing.T) {
	t.Parallel()

	r := box.NewRegistry(filepath.Join(t.TempDir(), "env.json"), nil)
	require.NoError(t, r.Load())

	if got := r.All(); len(got) != 0 {
		t.Fatalf("boxes=%v, want empty", got)
	}
}

// Contract: a conflicting Add leaves both memory and disk untouched.
func Test_Registry_Add_Fails_When_Name_Or_Location_Is_Taken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "env.json")

	r := box.NewRegistry(path, nil)
	require.NoError(t, r.Add("main", filepath.Join(dir, "main")))
	require.NoError(t, r.Save())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = r.Add("main", filepath.Join(dir, "elsewhere"))
	if !errors.Is(err, box.ErrDuplicateBox) {
		t.Fatalf("same name err=%v, want ErrDuplicateBox", err)
	}

	err = r.Add("other", filepath.Join(dir, "main")+"/")
	if !errors.Is(err, box.ErrDuplicateBox) {
		t.Fatalf("same location err=%v, want ErrDuplicateBox", err)
	}

	err = r.Add("", filepath.Join(dir, "x"))
	if !errors.Is(err, box.ErrInvalidBox) {
		t.Fatalf("empty name err=%v, want ErrInvalidBox", err)
	}

	if diff := cmp.Diff([]string{"main"}, boxNames(r)); diff != "" {
		t.Fatalf("boxes changed (-want +got):\n%s", diff)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)

	if string(after) != string(before) {
		t.Fatalf("registry file changed:\n%s", after)
	}
}

func Test_Registry_Save_Then_Load_Preserves_Order_And_Unknown_Keys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "env.json")
	content := `{
  // hand edited
  "repositories": [
    {"name": "b", "directory": "/tmp/b"},
    {"name": "a", "directory": "/tmp/a"},
  ],
  "note": {"owner": "me"},
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r := box.NewRegistry(path, nil)
	require.NoError(t, r.Load())

	if diff := cmp.Diff([]string{"b", "a"}, boxNames(r)); diff != "" {
		t.Fatalf("loaded (-want +got):\n%s", diff)
	}

	require.NoError(t, r.Add("c", "/tmp/c"))
	require.True(t, r.Forget("b"))
	require.False(t, r.Forget("b"))
	require.NoError(t, r.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved map[string]any

	require.NoError(t, json.Unmarshal(data, &saved))

	if diff := cmp.Diff(map[string]any{"owner": "me"}, saved["note"]); diff != "" {
		t.Fatalf("unknown key lost (-want +got):\n%s", diff)
	}

	reloaded := box.NewRegistry(path, nil)
	require.NoError(t, reloaded.Load())

	if diff := cmp.Diff([]string{"a", "c"}, boxNames(reloaded)); diff != "" {
		t.Fatalf("reloaded (-want +got):\n%s", diff)
	}

	got, ok := reloaded.Get("c")
	require.True(t, ok)

	if got.Location != "/tmp/c" {
		t.Fatalf("location=%q, want=/tmp/c", got.Location)
	}
}

func Test_Registry_Load_Fails_When_File_Is_Not_Json(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "env.json")
	require.NoError(t, os.WriteFile(path, []byte("repositories = []"), 0o600))

	err := box.NewRegistry(path, nil).Load()
	if !errors.Is(err, box.ErrRegistryInvalid) {
		t.Fatalf("err=%v, want ErrRegistryInvalid", err)
	}
}
