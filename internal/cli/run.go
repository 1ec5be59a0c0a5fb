package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/calvinalkan/bead/internal/config"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. The first signal received on it cancels the context
// handed to the running command.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("bead", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{})
	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfigDir := globalFlags.String("config-dir", "", "Keep config, boxes and translations in `dir`")
	flagVerbose := globalFlags.BoolP("verbose", "v", false, "Log details to stderr")

	if len(args) > 1 {
		err := globalFlags.Parse(args[1:])
		if err != nil {
			fprintln(errOut, "error:", err)
			fprintln(errOut)
			printGlobalFlags(errOut, globalFlags)

			return 1
		}
	}

	if globalFlags.Changed("cwd") && *flagCwd == "" {
		fprintln(errOut, "error: --cwd cannot be empty")
		fprintln(errOut)
		printGlobalFlags(errOut, globalFlags)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:   *flagCwd,
		ConfigDirOverride: *flagConfigDir,
		Env:               env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level := cfg.Level()
	if *flagVerbose {
		level = slog.LevelDebug
	}

	s := &session{
		cfg:    &cfg,
		logger: slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})),
	}

	commands := []*Command{
		NewCmd(s),
		DevelopCmd(s),
		SaveCmd(s),
		StatusCmd(s),
		NukeCmd(s),
		WebCmd(s),
		InputCmd(s),
		BoxCmd(s),
		PrintConfigCmd(s),
		VersionCmd(),
	}

	rest := globalFlags.Args()
	if *flagHelp || len(rest) == 0 {
		printUsage(out, globalFlags, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case sig := <-sigCh:
				s.logger.Debug("interrupted", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(out, errOut)
	code := cmd.Run(ctx, o, rest[1:])

	return max(code, o.Finish())
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printGlobalFlags(w io.Writer, flags *flag.FlagSet) {
	fprintln(w, "Global flags:")

	var buf strings.Builder
	flags.SetOutput(&buf)
	flags.PrintDefaults()
	flags.SetOutput(&strings.Builder{})

	_, _ = fmt.Fprint(w, buf.String())
}

func printUsage(w io.Writer, flags *flag.FlagSet, commands []*Command) {
	_, _ = fmt.Fprint(w, `bead - frozen, content-addressed data packages

Usage: bead [global flags] <command> [args]
`+"\n")
	printGlobalFlags(w, flags)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "bead <command> --help" for details.`)
}
