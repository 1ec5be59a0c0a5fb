package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/translation"
	"github.com/calvinalkan/bead/internal/workspace"

	flag "github.com/spf13/pflag"
)

const versionSpecHelp = `A bead is selected with NAME[@[TIMESTAMP][-N]]:

  name                  newest version
  name@-1               second newest version
  name@TIMESTAMP        version frozen at TIMESTAMP
  name@TIMESTAMP-N      N versions back, among those frozen at TIMESTAMP

Boxes are searched in the order they were added; the first box with a match wins.`

// DevelopCmd returns the develop command.
func DevelopCmd(s *session) *Command {
	flags := flag.NewFlagSet("develop", flag.ContinueOnError)
	noData := flags.Bool("no-data", false, "Do not extract the bead's output data")

	return &Command{
		Flags: flags,
		Usage: "develop <spec> [dir] [flags]",
		Short: "Create a workspace from a stored bead",
		Long: `Create a workspace from a stored bead, in [dir] or in a directory named
after the bead. Inputs are defined but not loaded.

` + versionSpecHelp,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("%w: develop takes a bead spec and an optional directory", errWrongArgCount)
			}

			dir := ""
			if len(args) == 2 {
				dir = args[1]
			}

			return execDevelop(ctx, o, s, args[0], dir, !*noData)
		},
	}
}

func execDevelop(ctx context.Context, o *IO, s *session, specText, dir string, withData bool) error {
	spec, err := box.ParseVersionSpec(specText)
	if err != nil {
		return err
	}

	reg, err := s.registry()
	if err != nil {
		return err
	}

	a, err := reg.Resolve(spec)
	if err != nil {
		return err
	}

	s.logger.Debug("resolved bead", "spec", spec.String(), "archive", a.Path)

	if dir == "" {
		dir = spec.Name
	}

	ws, err := workspace.Develop(a, s.abs(dir), withData)
	if err != nil {
		return err
	}

	rememberName(ctx, s, a)

	o.Printf("Extracted source into %s\n", ws.Dir())

	if len(ws.Inputs()) > 0 {
		o.Println(`Inputs are not loaded, run "bead input load" in the workspace`)
	}

	return nil
}

// rememberName records the archive's bead name for its kind, unless the
// name is already known. Failing to do so only costs nicer status output.
func rememberName(ctx context.Context, s *session, a *archive.Archive) {
	table, err := s.translations(ctx)
	if err != nil {
		s.logger.Warn("cannot open translations", "err", err)

		return
	}

	defer func() { _ = table.Close() }()

	err = table.Add(ctx, a.Name(), a.Kind())
	if err != nil && !errors.Is(err, translation.ErrNameTaken) {
		s.logger.Warn("cannot remember bead name", "name", a.Name(), "err", err)
	}
}
