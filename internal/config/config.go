// Package config resolves bead's configuration: where its state lives and how
// chatty it is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

var (
	ErrConfigInvalid = errors.New("invalid config")
	ErrNoConfigDir   = errors.New("cannot determine config directory: set HOME, XDG_CONFIG_HOME or BEAD_CONFIG_DIR")
)

const (
	// ConfigFileName is the config file inside the config directory.
	ConfigFileName = "config.json"
	// ProjectFileName is the optional per-directory config file.
	ProjectFileName = ".bead.json"

	envFileName          = "env.json"
	translationsFileName = "translations.sqlite"

	// EnvConfigDir overrides the config directory.
	EnvConfigDir = "BEAD_CONFIG_DIR"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config holds the effective configuration.
type Config struct {
	LogLevel   string `json:"log_level,omitempty"`
	DefaultBox string `json:"default_box,omitempty"`

	// Resolved (not serialized)
	EffectiveCwd string  `json:"-"`
	ConfigDir    string  `json:"-"`
	Sources      Sources `json:"-"`
}

// Sources tracks where the configuration came from.
type Sources struct {
	ConfigDir string // "flag", "env", "xdg" or "home"
	Global    string // path of the loaded config.json, empty if none
	Project   string // path of the loaded .bead.json, empty if none
}

// Default returns the configuration before any file is read.
func Default() Config {
	return Config{LogLevel: "warn"}
}

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	WorkDirOverride   string            // -C/--cwd; if empty, os.Getwd() is used
	ConfigDirOverride string            // --config-dir
	Env               map[string]string // environment variables
}

// Load resolves the configuration. Precedence, highest last:
//
//  1. defaults
//  2. config.json in the config directory
//  3. .bead.json in the working directory
//
// The config directory itself comes from --config-dir, then $BEAD_CONFIG_DIR,
// then $XDG_CONFIG_HOME/bead, then ~/.config/bead.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()
	cfg.EffectiveCwd = workDir

	cfg.ConfigDir, cfg.Sources.ConfigDir = configDir(input)
	if cfg.ConfigDir == "" {
		return Config{}, ErrNoConfigDir
	}

	if !filepath.IsAbs(cfg.ConfigDir) {
		cfg.ConfigDir = filepath.Join(workDir, cfg.ConfigDir)
	}

	for _, layer := range []struct {
		path   string
		source *string
	}{
		{filepath.Join(cfg.ConfigDir, ConfigFileName), &cfg.Sources.Global},
		{filepath.Join(workDir, ProjectFileName), &cfg.Sources.Project},
	} {
		fileCfg, loaded, loadErr := loadFile(layer.path)
		if loadErr != nil {
			return Config{}, loadErr
		}

		if loaded {
			*layer.source = layer.path
			cfg = merge(cfg, fileCfg)
		}
	}

	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return Config{}, fmt.Errorf("%w: log_level %q is not one of debug, info, warn, error", ErrConfigInvalid, cfg.LogLevel)
	}

	return cfg, nil
}

func configDir(input LoadInput) (string, string) {
	if input.ConfigDirOverride != "" {
		return input.ConfigDirOverride, "flag"
	}

	if dir := input.Env[EnvConfigDir]; dir != "" {
		return dir, "env"
	}

	if xdg := input.Env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "bead"), "xdg"
	}

	if home := input.Env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "bead"), "home"
	}

	return "", ""
}

// loadFile reads a JSONC config file. A missing file is not an error.
func loadFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: invalid JSONC: %w", ErrConfigInvalid, path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: invalid JSON: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func merge(base, overlay Config) Config {
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.DefaultBox != "" {
		base.DefaultBox = overlay.DefaultBox
	}

	return base
}

// Level is the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	return logLevels[c.LogLevel]
}

// EnvPath is the box registry file.
func (c Config) EnvPath() string {
	return filepath.Join(c.ConfigDir, envFileName)
}

// TranslationsPath is the name to kind table.
func (c Config) TranslationsPath() string {
	return filepath.Join(c.ConfigDir, translationsFileName)
}
