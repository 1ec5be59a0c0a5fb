package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinalkan/bead/internal/archive"
	"github.com/calvinalkan/bead/internal/bead"
	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/workspace"

	flag "github.com/spf13/pflag"
)

// InputCmd returns the input command group.
func InputCmd(s *session) *Command {
	return &Command{
		Usage: "input <command>",
		Short: "Manage data loaded from other beads",
		Long: `Inputs pin a version of another bead. Their data is loaded read-only
under input/<name> in the workspace.`,
		Subcommands: []*Command{
			inputAddCmd(s),
			inputDeleteCmd(s),
			inputUpdateCmd(s),
			inputLoadCmd(s),
			inputUnloadCmd(s),
		},
	}
}

func inputAddCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("input add", flag.ContinueOnError),
		Usage: "input add <name> [spec]",
		Short: "Define an input and load its data",
		Long: `Define the input <name> as the bead selected by [spec] (default: <name>)
and load its data.

` + versionSpecHelp,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("%w: input add takes a name and an optional bead spec", errWrongArgCount)
			}

			name, spec := args[0], args[0]
			if len(args) == 2 {
				spec = args[1]
			}

			ws, reg, err := inputContext(s)
			if err != nil {
				return err
			}

			if _, exists := ws.Input(name); exists {
				return fmt.Errorf("%w: %s", workspace.ErrInputExists, name)
			}

			a, err := reg.ResolveString(spec)
			if err != nil {
				return err
			}

			err = ws.AddInput(name, a.Bead())
			if err != nil {
				return err
			}

			err = ws.LoadInput(name, a)
			if err != nil {
				return err
			}

			o.Printf("Loaded %q from %s\n", name, describe(a))

			return nil
		},
	}
}

func inputDeleteCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("input delete", flag.ContinueOnError),
		Usage: "input delete <name>",
		Short: "Forget all about an input",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: input delete takes a name", errWrongArgCount)
			}

			ws, err := s.workspace()
			if err != nil {
				return err
			}

			err = ws.DeleteInput(args[0])
			if err != nil {
				return err
			}

			o.Printf("Input %q is deleted\n", args[0])

			return nil
		},
	}
}

func inputUpdateCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("input update", flag.ContinueOnError),
		Usage: "input update [name] [spec]",
		Short: "Update inputs to the newest or a given version",
		Long: `Point the input [name] at the bead selected by [spec] and load it.

Without [spec] the input moves to the newest bead of its kind in any box.
Without [name] every input is moved to its newest version.

` + versionSpecHelp,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 2 {
				return fmt.Errorf("%w: input update takes an optional name and bead spec", errWrongArgCount)
			}

			ws, reg, err := inputContext(s)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				a, resolveErr := reg.ResolveString(args[1])
				if resolveErr != nil {
					return resolveErr
				}

				return updateInput(o, ws, args[0], a)
			}

			inputs, err := selectInputs(ws, args)
			if err != nil {
				return err
			}

			for _, in := range inputs {
				a, newestErr := reg.Newest(in.Kind)
				if errors.Is(newestErr, box.ErrNotFound) {
					o.Warn(fmt.Sprintf("input %q: no bead of its kind in any box", in.Name), "add the box holding it")

					continue
				}

				if newestErr != nil {
					return newestErr
				}

				err = updateInput(o, ws, in.Name, a)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func updateInput(o *IO, ws *workspace.Workspace, name string, a *archive.Archive) error {
	in, ok := ws.Input(name)
	if !ok {
		return fmt.Errorf("%w: %s", workspace.ErrUnknownInput, name)
	}

	if in.ContentID == a.ContentID && ws.IsLoaded(name) {
		o.Printf("Input %q is already %s\n", name, describe(a))

		return nil
	}

	err := ws.UpdateInput(name, a.Bead())
	if err != nil {
		return err
	}

	err = ws.LoadInput(name, a)
	if err != nil {
		return err
	}

	o.Printf("Updated %q to %s\n", name, describe(a))

	return nil
}

func inputLoadCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("input load", flag.ContinueOnError),
		Usage: "input load [name]",
		Short: "Load data of defined inputs",
		Long:  "Load the data of input [name], or of every input that is not loaded yet.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: input load takes an optional name", errWrongArgCount)
			}

			ws, reg, err := inputContext(s)
			if err != nil {
				return err
			}

			inputs, err := selectInputs(ws, args)
			if err != nil {
				return err
			}

			for _, in := range inputs {
				if ws.IsLoaded(in.Name) {
					s.logger.Debug("input already loaded", "input", in.Name)

					continue
				}

				a, pkgErr := reg.Package(in.Kind, in.ContentID)
				if errors.Is(pkgErr, box.ErrNotFound) {
					o.Warn(fmt.Sprintf("input %q: bead %s is not in any box", in.Name, in.ContentID), "add the box holding it")

					continue
				}

				if pkgErr != nil {
					return pkgErr
				}

				err = ws.LoadInput(in.Name, a)
				if err != nil {
					return err
				}

				o.Printf("Loaded %q\n", in.Name)
			}

			return nil
		},
	}
}

func inputUnloadCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("input unload", flag.ContinueOnError),
		Usage: "input unload [name]",
		Short: "Unload input data",
		Long:  "Remove the loaded data of input [name], or of every input. The inputs stay defined.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: input unload takes an optional name", errWrongArgCount)
			}

			ws, err := s.workspace()
			if err != nil {
				return err
			}

			inputs, err := selectInputs(ws, args)
			if err != nil {
				return err
			}

			for _, in := range inputs {
				if !ws.IsLoaded(in.Name) {
					continue
				}

				err = ws.UnloadInput(in.Name)
				if err != nil {
					return err
				}

				o.Printf("Unloaded %q\n", in.Name)
			}

			return nil
		},
	}
}

func inputContext(s *session) (*workspace.Workspace, *box.Registry, error) {
	ws, err := s.workspace()
	if err != nil {
		return nil, nil, err
	}

	reg, err := s.registry()
	if err != nil {
		return nil, nil, err
	}

	return ws, reg, nil
}

// selectInputs returns the input named by args[0], or every input.
func selectInputs(ws *workspace.Workspace, args []string) ([]bead.Input, error) {
	if len(args) == 0 {
		return ws.Inputs(), nil
	}

	in, ok := ws.Input(args[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", workspace.ErrUnknownInput, args[0])
	}

	return []bead.Input{in}, nil
}

func describe(a *archive.Archive) string {
	return fmt.Sprintf("%s@%s", a.Name(), a.FreezeTime())
}
