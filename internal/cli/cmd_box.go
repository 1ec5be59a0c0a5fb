package cli

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// BoxCmd returns the box command group.
func BoxCmd(s *session) *Command {
	return &Command{
		Usage: "box <command>",
		Short: "Manage bead boxes",
		Long:  "Boxes are directories holding bead archives. They are searched in the order they were added.",
		Subcommands: []*Command{
			boxAddCmd(s),
			boxListCmd(s),
			boxForgetCmd(s),
		},
	}
}

func boxAddCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("box add", flag.ContinueOnError),
		Usage: "box add <name> <dir>",
		Short: "Define a box",
		Long:  "Remember <dir> as the box <name>. Both the name and the directory must be unique.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("%w: box add takes a name and a directory", errWrongArgCount)
			}

			name, dir := args[0], s.abs(args[1])

			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("%q is not an existing directory", dir)
			}

			reg, err := s.registry()
			if err != nil {
				return err
			}

			err = reg.Add(name, dir)
			if err != nil {
				return err
			}

			err = reg.Save()
			if err != nil {
				return err
			}

			o.Println("Will remember box", name)

			return nil
		},
	}
}

func boxListCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("box list", flag.ContinueOnError),
		Usage: "box list",
		Short: "Show known boxes",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			reg, err := s.registry()
			if err != nil {
				return err
			}

			boxes := reg.All()
			if len(boxes) == 0 {
				o.Println("There are no defined boxes")

				return nil
			}

			o.Println("Boxes:")
			o.Println("-------------")

			for _, b := range boxes {
				o.Printf("%s: %s\n", b.Name, b.Location)
			}

			return nil
		},
	}
}

func boxForgetCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("box forget", flag.ContinueOnError),
		Usage: "box forget <name>",
		Short: "Forget a known box",
		Long:  "Forget the box <name>. The directory and its archives are left alone.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: box forget takes a name", errWrongArgCount)
			}

			reg, err := s.registry()
			if err != nil {
				return err
			}

			if !reg.Forget(args[0]) {
				o.Warn(fmt.Sprintf("no box defined with name %q", args[0]), `run "bead box list" to see the known boxes`)

				return nil
			}

			err = reg.Save()
			if err != nil {
				return err
			}

			o.Printf("Box %q is forgotten\n", args[0])

			return nil
		},
	}
}
