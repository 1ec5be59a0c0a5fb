package cli

import (
	"context"
	"runtime/debug"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration, the files derived from it and where it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, s)
		},
	}
}

func execPrintConfig(io *IO, s *session) error {
	cfg := s.cfg

	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("config_dir=" + cfg.ConfigDir)
	io.Println("log_level=" + cfg.LogLevel)

	if cfg.DefaultBox != "" {
		io.Println("default_box=" + cfg.DefaultBox)
	}

	io.Println("box_registry=" + cfg.EnvPath())
	io.Println("translations=" + cfg.TranslationsPath())

	io.Println("")
	io.Println("# sources")
	io.Println("config_dir_from=" + cfg.Sources.ConfigDir)

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}

// VersionCmd returns the version command.
func VersionCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("version", flag.ContinueOnError),
		Usage: "version",
		Short: "Show program version",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			version := "(devel)"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}

			io.Println("bead version", version)

			return nil
		},
	}
}
