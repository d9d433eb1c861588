package cli

import (
	"github.com/spf13/cobra"

	"github.com/nicholaspatten/svgit/internal/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		printCfg   bool
		skipChecks bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		Long: `Run the HTTP conversion service.

POST a multipart form with an "image" field to /vectorize (or
/api/vectorize) and receive image/svg+xml. GET /check-binaries reports
whether ImageMagick, potrace and vtracer are installed.`,
		Example: `  svgit serve
  svgit serve --addr :3000
  PORT=3000 SVGIT_CACHE=file svgit serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if printCfg {
				c.Logger.Info("effective configuration\n" + cfg.String())
			}

			ctx := cmd.Context()
			probe := probeTools(cfg, c.Logger)
			if !skipChecks {
				if rep := probe(ctx); !rep.Ready() {
					for _, t := range rep.Tools {
						if !t.Found {
							c.Logger.Warn("tool not found", "tool", t.Name, "err", t.Error)
						}
					}
				}
			}

			runner, err := c.newRunner(ctx, cfg, runnerOptions{})
			if err != nil {
				return err
			}
			defer runner.Close()
			installLogHooks(c.Logger)

			c.Logger.Info("starting",
				"cache", cfg.Cache.Backend,
				"history", cfg.History.Backend,
				"max_upload", cfg.Upload.MaxBytes)

			srv := api.New(runner, probe, api.Options{
				MaxBytes:    cfg.Upload.MaxBytes,
				AllowOrigin: cfg.Server.AllowOrigin,
				Logger:      c.Logger,
			})
			return srv.Serve(ctx, cfg.Server.Addr,
				cfg.Server.ReadTimeout.Duration,
				cfg.Server.WriteTimeout.Duration,
				cfg.Server.ShutdownTimeout.Duration)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config and PORT)")
	cmd.Flags().BoolVar(&printCfg, "print-config", false, "log the effective configuration at startup")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "do not probe the external tools at startup")

	return cmd
}
