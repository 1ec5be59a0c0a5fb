package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "bead" in help.
	// Includes the command name and arguments/flags.
	// Examples: "develop <spec> [dir]", "status [-v]", "box add <name> <dir>"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	// Unused when Subcommands is set.
	Exec func(ctx context.Context, o *IO, args []string) error

	// Subcommands turns the command into a group ("bead input add ...").
	// Subcommand Usage strings start with the group name.
	Subcommands []*Command
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "bead <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: bead", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if len(c.Subcommands) > 0 {
		o.Println()
		o.Println("Commands:")

		for _, sub := range c.Subcommands {
			o.Println(sub.HelpLine())
		}
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if len(c.Subcommands) > 0 {
		return c.runGroup(ctx, o, args)
	}

	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return 0
}

func (c *Command) runGroup(ctx context.Context, o *IO, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		c.PrintHelp(o)
		return 0
	}

	for _, sub := range c.Subcommands {
		if subName(sub) == args[0] {
			return sub.Run(ctx, o, args[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", c.Name(), args[0])
	o.ErrPrintln()
	c.PrintHelp(o)

	return 1
}

// subName is the second word of a subcommand's Usage.
func subName(c *Command) string {
	fields := strings.Fields(c.Usage)
	if len(fields) < 2 {
		return ""
	}

	return fields[1]
}
