package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/bead/internal/box"
	"github.com/calvinalkan/bead/internal/weaver"

	flag "github.com/spf13/pflag"
)

const (
	beadsTableSuffix  = ".beads.csv"
	inputsTableSuffix = ".inputs.csv"
)

type webOptions struct {
	boxes      []string
	loadCSV    string
	saveCSV    string
	restrictTo []string
	allEdges   bool
	output     string
}

// WebCmd returns the web command.
func WebCmd(s *session) *Command {
	flags := flag.NewFlagSet("web", flag.ContinueOnError)

	var opts webOptions

	flags.StringArrayVar(&opts.boxes, "box", nil, "Read beads from this box only (repeatable)")
	flags.StringVar(&opts.loadCSV, "load-csv", "", "Read beads from `prefix`.beads.csv and .inputs.csv instead of boxes")
	flags.StringVar(&opts.saveCSV, "save-csv", "", "Also write the beads read to `prefix`.beads.csv and .inputs.csv")
	flags.StringSliceVar(&opts.restrictTo, "restrict-to", nil, "Only show what depends on these bead names or content ids")
	flags.BoolVar(&opts.allEdges, "all-edges", false, "Also show edges with one end outside the restricted view")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the graph to `file` instead of stdout")

	return &Command{
		Flags: flags,
		Usage: "web [flags]",
		Short: "Show how beads depend on each other",
		Long: `Classify every known bead as up to date, out of date, superseded or
phantom (referenced but never stored) and print the result as a digraph.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: web takes no arguments", errWrongArgCount)
			}

			return execWeb(ctx, o, s, opts)
		},
	}
}

func execWeb(ctx context.Context, o *IO, s *session, opts webOptions) error {
	var (
		beads []weaver.Bead
		err   error
	)

	if opts.loadCSV != "" {
		beads, err = loadBeadTables(s.abs(opts.loadCSV))
	} else {
		beads, err = scanRegistry(ctx, s, opts.boxes)
	}

	if err != nil {
		return err
	}

	if opts.saveCSV != "" {
		err = saveBeadTables(s.abs(opts.saveCSV), beads)
		if err != nil {
			return err
		}
	}

	w := weaver.New(beads)

	if len(opts.restrictTo) > 0 {
		w.RestrictTo(restrictionRoots(o, w, opts.restrictTo))
	}

	s.logger.Debug("weaved", "beads", len(beads), "nodes", len(w.Nodes()), "scope", len(w.Scope()))

	dot := w.Render(opts.allEdges)

	if opts.output == "" {
		o.Printf("%s", dot)

		return nil
	}

	err = atomic.WriteFile(s.abs(opts.output), bytes.NewReader([]byte(dot)))
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	return nil
}

// scanRegistry reads every bead of the named boxes (all boxes when names is
// empty), one goroutine per box. The result is in registry order.
func scanRegistry(ctx context.Context, s *session, names []string) ([]weaver.Bead, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return scanBoxes(ctx, reg.All())
	}

	boxes := make([]box.Box, 0, len(names))

	for _, name := range names {
		b, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", box.ErrUnknownBox, name)
		}

		boxes = append(boxes, b)
	}

	return scanBoxes(ctx, boxes)
}

func scanBoxes(ctx context.Context, boxes []box.Box) ([]weaver.Bead, error) {
	perBox := make([][]weaver.Bead, len(boxes))

	g, ctx := errgroup.WithContext(ctx)

	for i, b := range boxes {
		g.Go(func() error {
			for a := range b.All() {
				err := ctx.Err()
				if err != nil {
					return err
				}

				perBox[i] = append(perBox[i], weaver.Bead{
					Name:       a.Name(),
					Kind:       a.Kind(),
					ContentID:  a.ContentID,
					FreezeTime: a.FreezeTime(),
					Inputs:     a.Inputs(),
				})
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, fmt.Errorf("scan boxes: %w", err)
	}

	return slices.Concat(perBox...), nil
}

// restrictionRoots maps each item to a content id, or to every bead with
// that name.
func restrictionRoots(o *IO, w *weaver.Weaver, items []string) []string {
	var roots []string

	for _, item := range items {
		if _, ok := w.Node(item); ok {
			roots = append(roots, item)

			continue
		}

		found := false

		for _, n := range w.Nodes() {
			if n.Name == item {
				roots = append(roots, n.ContentID)
				found = true
			}
		}

		if !found {
			o.Warn(fmt.Sprintf("--restrict-to %q matches no bead", item), "use a bead name or content id")
		}
	}

	return roots
}

func loadBeadTables(prefix string) ([]weaver.Bead, error) {
	beadsFile, err := os.Open(prefix + beadsTableSuffix)
	if err != nil {
		return nil, fmt.Errorf("load beads: %w", err)
	}

	defer func() { _ = beadsFile.Close() }()

	inputsFile, err := os.Open(prefix + inputsTableSuffix)
	if err != nil {
		return nil, fmt.Errorf("load beads: %w", err)
	}

	defer func() { _ = inputsFile.Close() }()

	return weaver.ReadBeads(beadsFile, inputsFile)
}

func saveBeadTables(prefix string, beads []weaver.Bead) error {
	var beadsBuf, inputsBuf bytes.Buffer

	err := weaver.WriteBeads(beads, &beadsBuf, &inputsBuf)
	if err != nil {
		return fmt.Errorf("save beads: %w", err)
	}

	for path, buf := range map[string]*bytes.Buffer{
		prefix + beadsTableSuffix:  &beadsBuf,
		prefix + inputsTableSuffix: &inputsBuf,
	} {
		err = atomic.WriteFile(path, buf)
		if err != nil {
			return fmt.Errorf("save beads: %w", err)
		}
	}

	return nil
}
