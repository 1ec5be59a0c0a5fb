package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/config"
	"github.com/calvinalkan/bead/internal/translation"
	"github.com/calvinalkan/bead/internal/workspace"
)

var (
	errNoBoxes       = errors.New(`no boxes defined, add one with "bead box add <name> <dir>"`)
	errAmbiguousBox  = errors.New("several boxes defined and no default_box configured, name one")
	errWrongArgCount = errors.New("wrong number of arguments")
)

// session is the per-invocation state shared by commands.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
}

// abs resolves path against the effective working directory.
func (s *session) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(s.cfg.EffectiveCwd, path)
}

// registry loads the box registry.
func (s *session) registry() (*box.Registry, error) {
	reg := box.NewRegistry(s.cfg.EnvPath(), s.logger)

	err := reg.Load()
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// translations opens the name to kind table. Callers close it.
func (s *session) translations(ctx context.Context) (*translation.Table, error) {
	return translation.Open(ctx, s.cfg.TranslationsPath())
}

// workspace finds the workspace enclosing the working directory.
func (s *session) workspace() (*workspace.Workspace, error) {
	return workspace.Find(s.cfg.EffectiveCwd)
}

// pickBox selects the box called name, or the configured default box, or
// the only box there is.
func (s *session) pickBox(reg *box.Registry, name string) (box.Box, error) {
	if name == "" {
		name = s.cfg.DefaultBox
	}

	if name != "" {
		b, ok := reg.Get(name)
		if !ok {
			return box.Box{}, fmt.Errorf("%w: %s", box.ErrUnknownBox, name)
		}

		return b, nil
	}

	boxes := reg.All()

	switch len(boxes) {
	case 0:
		return box.Box{}, errNoBoxes
	case 1:
		return boxes[0], nil
	default:
		return box.Box{}, errAmbiguousBox
	}
}

// displayName is how a kind is shown: its known names, or the kind itself.
func displayName(ctx context.Context, table *translation.Table, kind string) (string, bool, error) {
	names, err := table.Names(ctx, kind)
	if err != nil {
		return "", false, err
	}

	if len(names) == 0 {
		return kind, false, nil
	}

	return strings.Join(names, ", "), true, nil
}
