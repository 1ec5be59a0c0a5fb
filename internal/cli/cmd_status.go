package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/bead/internal/bead"
	"github.com/calvinalkan/bead/internal/translation"
	"github.com/calvinalkan/bead/internal/workspace"

	flag "github.com/spf13/pflag"
)

// StatusCmd returns the status command.
func StatusCmd(s *session) *Command {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	verbose := flags.BoolP("verbose", "v", false, "Show kinds and content ids")

	return &Command{
		Flags: flags,
		Usage: "status [flags]",
		Short: "Show the workspace and its inputs",
		Long: `Show the bead and the inputs of the current workspace.

Beads are shown by name when the name is known locally, by kind otherwise.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: status takes no arguments", errWrongArgCount)
			}

			return execStatus(ctx, o, s, *verbose)
		},
	}
}

func execStatus(ctx context.Context, o *IO, s *session, verbose bool) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}

	table, err := s.translations(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = table.Close() }()

	name, known, err := displayName(ctx, table, ws.Kind())
	if err != nil {
		return err
	}

	if known {
		o.Println("Bead name:", name)
	}

	if !known || verbose {
		o.Println("Bead kind:", ws.Kind())
	}

	o.Println()

	inputs := ws.Inputs()
	if len(inputs) == 0 {
		o.Println("No inputs defined")

		return nil
	}

	o.Println("Inputs:")

	for _, in := range inputs {
		err = printInput(ctx, o, table, ws, in, verbose)
		if err != nil {
			return err
		}
	}

	return nil
}

func printInput(ctx context.Context, o *IO, table *translation.Table, ws *workspace.Workspace, in bead.Input, verbose bool) error {
	name, known, err := displayName(ctx, table, in.Kind)
	if err != nil {
		return err
	}

	loaded := "no"
	if ws.IsLoaded(in.Name) {
		loaded = "yes"
	}

	o.Printf("  %s\n", in.Name)

	if known {
		o.Printf("    bead:        %s\n", name)
		o.Printf("    frozen:      %s\n", in.FreezeTime)
	}

	if !known || verbose {
		o.Printf("    kind:        %s\n", in.Kind)
		o.Printf("    content id:  %s\n", in.ContentID)
	}

	o.Printf("    loaded:      %s\n", loaded)

	return nil
}
