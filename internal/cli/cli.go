// Package cli implements the svgit command-line interface.
//
// The commands are:
//   - serve: run the HTTP conversion service
//   - convert: convert a local image to SVG
//   - presets: list the tracing presets
//   - check: report whether the external tools are installed
//   - cache: manage the conversion cache
//   - history: list recent conversions from the history store
//
// All commands accept --config for a TOML file and --verbose (-v) for
// debug logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nicholaspatten/svgit/pkg/buildinfo"
	"github.com/nicholaspatten/svgit/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "svgit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "svgit converts raster images to SVG",
		Long:         `svgit converts PNG, JPEG, GIF and WebP images to SVG by running ImageMagick, potrace and vtracer. It runs as an HTTP service or converts local files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if c.verbose {
			c.SetLogLevel(LogDebug)
		}
		return nil
	}

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config and the environment. --verbose wins over the
// configured log level.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if !c.verbose {
		c.SetLogLevel(cfg.Level())
	}
	c.Logger.SetFormatter(cfg.Formatter())
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/svgit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resolveCacheDir returns the configured cache directory or the XDG default.
func resolveCacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cacheDir()
}
