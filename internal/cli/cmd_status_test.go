package cli_test

import (
	"testing"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/cli"
)

// statusFixture develops pkg_with_inputs, whose input1 pins pkg_a, and cds
// into it. pkg_a's name is known locally.
func statusFixture(t *testing.T) (*cli.CLI, *archive.Archive) {
	t.Helper()

	c := cli.NewCLI(t)
	boxDir := c.AddBox("main")

	pkgA := storeVersion(t, boxDir, "pkg_a", "kind-a", ts1)
	remember(t, c, "pkg_a", "kind-a")

	storeVersion(t, boxDir, "pkg_with_inputs", "kind-with-inputs", ts2, pkgA)

	c.MustRun("develop", "pkg_with_inputs")
	c.Cd("pkg_with_inputs")

	return c, pkgA
}

func Test_Status_Shows_Names_And_Freeze_Times_When_Names_Are_Known(t *testing.T) {
	t.Parallel()

	c, pkgA := statusFixture(t)
	stdout := c.MustRun("status")

	cli.AssertContains(t, stdout, "Bead name: pkg_with_inputs")
	cli.AssertContains(t, stdout, "pkg_a")
	cli.AssertContains(t, stdout, ts1)
	cli.AssertContains(t, stdout, "loaded:      no")

	cli.AssertNotContains(t, stdout, "kind-with-inputs")
	cli.AssertNotContains(t, stdout, "kind-a")
	cli.AssertNotContains(t, stdout, pkgA.ContentID)
}

func Test_Status_Verbose_Adds_Kinds_And_Content_Ids(t *testing.T) {
	t.Parallel()

	c, pkgA := statusFixture(t)
	stdout := c.MustRun("status", "-v")

	cli.AssertContains(t, stdout, "pkg_with_inputs")
	cli.AssertContains(t, stdout, "pkg_a")
	cli.AssertContains(t, stdout, "kind-with-inputs")
	cli.AssertContains(t, stdout, "kind-a")
	cli.AssertContains(t, stdout, ts1)
	cli.AssertContains(t, stdout, pkgA.ContentID)
}

// Contract: without known names, beads are shown by kind and content id.
func Test_Status_Falls_Back_To_Kinds_When_Names_Are_Unknown(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"status"}, {"status", "--verbose"}} {
		c, pkgA := statusFixture(t)
		forgetNames(t, c)

		stdout := c.MustRun(args...)

		cli.AssertNotContains(t, stdout, "Bead name:")
		cli.AssertNotContains(t, stdout, "pkg_a")
		cli.AssertNotContains(t, stdout, ts1)

		cli.AssertContains(t, stdout, "Bead kind: kind-with-inputs")
		cli.AssertContains(t, stdout, "kind-a")
		cli.AssertContains(t, stdout, pkgA.ContentID)
	}
}

func Test_Status_Reports_No_Inputs_And_Fails_Outside_Workspace(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	cli.AssertContains(t, c.MustFail("status"), "not a workspace")

	c.MustRun("new", "lonely")
	c.Cd("lonely")

	stdout := c.MustRun("status")
	cli.AssertContains(t, stdout, "Bead name: lonely")
	cli.AssertContains(t, stdout, "No inputs defined")
}
