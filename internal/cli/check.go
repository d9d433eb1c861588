package cli

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicholaspatten/svgit/pkg/toolexec"
)

// errToolsMissing makes check exit non-zero when a required tool is absent.
var errToolsMissing = errors.New("required tools are missing")

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether ImageMagick, potrace and vtracer are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(cmd.Context(), "Probing tools...")
			spinner.Start()
			rep := probeTools(cfg, c.Logger)(cmd.Context())
			spinner.Stop()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				printReport(rep)
			}
			if !rep.Ready() {
				return errToolsMissing
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(rep *toolexec.Report) {
	printKeyValue("platform", rep.Platform+"/"+rep.Arch)
	printKeyValue("go", rep.GoVersion)
	for _, t := range rep.Tools {
		if t.Found {
			printSuccess("%s %s", StyleValue.Render(t.Name), StyleDim.Render(t.Version))
			printDetail("%s", t.Path)
			continue
		}
		printError("%s %s", StyleValue.Render(t.Name), StyleError.Render("not found"))
		if t.Error != "" {
			printDetail("%s", t.Error)
		}
	}
	if !rep.Ready() {
		printNextStep("Point svgit at the tools", "SVGIT_MAGICK=/path/to/magick svgit check")
	}
}
