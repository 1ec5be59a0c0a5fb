package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/bead/internal/workspace"

	flag "github.com/spf13/pflag"
)

// NukeCmd returns the nuke command.
func NukeCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("nuke", flag.ContinueOnError),
		Usage: "nuke [dir]",
		Short: "Delete a workspace",
		Long:  "Delete the workspace in [dir], or the one enclosing the working directory, including loaded input data.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: nuke takes at most one directory", errWrongArgCount)
			}

			var (
				ws  *workspace.Workspace
				err error
			)

			if len(args) == 1 {
				ws, err = workspace.Open(s.abs(args[0]))
			} else {
				ws, err = s.workspace()
			}

			if err != nil {
				return err
			}

			err = ws.Nuke()
			if err != nil {
				return err
			}

			o.Println("Deleted workspace", ws.Dir())

			return nil
		},
	}
}
