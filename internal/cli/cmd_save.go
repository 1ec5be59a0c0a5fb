package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/bead/internal/bead"

	flag "github.com/spf13/pflag"
)

// SaveCmd returns the save command.
func SaveCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("save", flag.ContinueOnError),
		Usage: "save [box]",
		Short: "Freeze the workspace into a box",
		Long: `Freeze the current workspace into a new archive in [box].

Without [box], default_box from the config is used, or the only box there is.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: save takes at most one box", errWrongArgCount)
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			return execSave(o, s, name)
		},
	}
}

func execSave(o *IO, s *session, boxName string) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}

	reg, err := s.registry()
	if err != nil {
		return err
	}

	b, err := s.pickBox(reg, boxName)
	if err != nil {
		return err
	}

	a, err := b.Store(ws, bead.Now())
	if err != nil {
		return err
	}

	o.Println("Successfully stored bead at", a.Path)

	return nil
}
