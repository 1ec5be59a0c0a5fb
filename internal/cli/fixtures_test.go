package cli_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/cli"
	"github.com/calvinalkan/bead/internal/translation"
	"github.com/calvinalkan/bead/internal/workspace"
)

// freeze times
const (
	ts1 = "20150901T151015000001+0200"
	ts2 = "20150901T151016000002+0200"
)

// storeVersion freezes a workspace of kind into boxDir at ts. The code holds
// a file called sentinel-<ts>, the data holds data.txt with "<name> <ts>".
// inputs are defined as input1, input2, ...
func storeVersion(t *testing.T, boxDir, name, kind, ts string, inputs ...*archive.Archive) *archive.Archive {
	t.Helper()

	dir := filepath.Join(t.TempDir(), name)

	ws, err := workspace.Create(dir, kind)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sentinel-"+ts), []byte(ts), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "output"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output", "data.txt"), []byte(name+" "+ts), 0o600))

	for i, in := range inputs {
		require.NoError(t, ws.AddInput(fmt.Sprintf("input%d", i+1), in.Bead()))
	}

	a, err := box.Box{Name: "fixture", Location: boxDir}.Store(ws, bead.MustParseFreezeTime(ts))
	require.NoError(t, err)

	return a
}

// remember records name for kind in the CLI's translation table.
func remember(t *testing.T, c *cli.CLI, name, kind string) {
	t.Helper()

	table, err := translation.Open(t.Context(), filepath.Join(c.ConfigDir, "translations.sqlite"))
	require.NoError(t, err)

	defer func() { _ = table.Close() }()

	require.NoError(t, table.Add(t.Context(), name, kind))
}

// forgetNames drops the CLI's translation table.
func forgetNames(t *testing.T, c *cli.CLI) {
	t.Helper()

	require.NoError(t, os.Remove(filepath.Join(c.ConfigDir, "translations.sqlite")))
}

// withHistory registers a box holding pkg_with_history frozen at ts1 and ts2.
func withHistory(t *testing.T, c *cli.CLI) string {
	t.Helper()

	boxDir := c.AddBox("main")
	storeVersion(t, boxDir, "pkg_with_history", "kind-history", ts1)
	storeVersion(t, boxDir, "pkg_with_history", "kind-history", ts2)

	return boxDir
}
