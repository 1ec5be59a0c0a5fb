package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/calvinalkan/bead/internal/translation"
	"github.com/calvinalkan/bead/internal/workspace"

	flag "github.com/spf13/pflag"
)

// NewCmd returns the new command.
func NewCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("new", flag.ContinueOnError),
		Usage: "new <dir>",
		Short: "Create a workspace for a new bead",
		Long: `Create an empty workspace in <dir> for a bead of a new kind.

The base name of <dir> becomes the bead name and is remembered, so it has to
be unused.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: new takes exactly one directory", errWrongArgCount)
			}

			return execNew(ctx, o, s, args[0])
		},
	}
}

func execNew(ctx context.Context, o *IO, s *session, dir string) error {
	dir = s.abs(dir)
	name := filepath.Base(dir)

	kind, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("new kind: %w", err)
	}

	table, err := s.translations(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = table.Close() }()

	_, err = table.Kind(ctx, name)
	if err == nil {
		return fmt.Errorf("%w: %s", translation.ErrNameTaken, name)
	}

	if !errors.Is(err, translation.ErrUnknownName) {
		return err
	}

	_, statErr := os.Stat(dir)
	dirExisted := statErr == nil

	ws, err := workspace.Create(dir, kind.String())
	if err != nil {
		return err
	}

	addErr := table.Add(ctx, name, kind.String())
	if addErr != nil {
		// a directory the user handed in is theirs to keep
		if !dirExisted {
			nukeErr := ws.Nuke()
			if nukeErr != nil {
				s.logger.Warn("cannot remove workspace", "dir", dir, "err", nukeErr)
			}
		}

		return addErr
	}

	s.logger.Debug("created workspace", "dir", dir, "kind", ws.Kind())
	o.Printf("Created %q\n", name)

	return nil
}
