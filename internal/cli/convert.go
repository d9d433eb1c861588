package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/pipeline"
	"github.com/nicholaspatten/svgit/pkg/settings"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// convertFlags holds the per-field overrides. Empty means not set, which
// matches how a multipart form omits a field.
type convertFlags struct {
	output    string
	pick      bool
	noCache   bool
	refresh   bool
	stdout    bool
	fields    settings.Fields
	showStats bool
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert <image>",
		Short: "Convert a local image to SVG",
		Long: `Convert a PNG, JPEG, GIF or WebP file to SVG.

The same pipeline as the HTTP service runs: the upload is validated,
preprocessed with ImageMagick and traced with potrace (binary and
grayscale color modes) or vtracer (color).`,
		Example: `  svgit convert logo.png
  svgit convert photo.jpg --preset photo -o photo.svg
  svgit convert sketch.png --color-mode binary --stdout > sketch.svg
  svgit convert logo.png --pick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (default: input name with .svg)")
	flags.BoolVar(&f.stdout, "stdout", false, "write the SVG to stdout")
	flags.BoolVar(&f.pick, "pick", false, "choose a preset interactively")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the conversion cache")
	flags.BoolVar(&f.refresh, "refresh", false, "ignore cached results and convert again")
	flags.BoolVar(&f.showStats, "stats", false, "print per-stage timings")

	flags.StringVarP(&f.fields.Preset, "preset", "p", "", "preset name (see 'svgit presets')")
	flags.StringVar(&f.fields.Mode, "mode", "", "curve fitting: spline, polygon or pixel")
	flags.StringVar(&f.fields.ColorMode, "color-mode", "", "color, grayscale or binary")
	flags.StringVar(&f.fields.ColorPrecision, "color-precision", "", "significant bits per channel, clamped to 1-8")
	flags.StringVar(&f.fields.CornerThreshold, "corner-threshold", "", "minimum corner angle in degrees (0-180)")
	flags.StringVar(&f.fields.SpliceThreshold, "splice-threshold", "", "minimum splice angle in degrees (0-180)")
	flags.StringVar(&f.fields.FilterSpeckle, "filter-speckle", "", "discard patches smaller than this many pixels")
	flags.StringVar(&f.fields.PathPrecision, "path-precision", "", "decimal places in path coordinates")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return settings.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, input string, f convertFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if f.pick {
		name, err := pickPreset(f.fields.Preset)
		if err != nil {
			return err
		}
		if name == "" {
			printInfo("No preset selected")
			return nil
		}
		f.fields.Preset = name
	}

	s, err := settings.Resolve(f.fields)
	if err != nil {
		return err
	}

	up, err := readLocalUpload(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, runnerOptions{noCache: f.noCache, noHistory: true})
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Converting %s with %s...", filepath.Base(input), s.Engine()))
	spinner.Start()
	res, err := runner.Execute(ctx, pipeline.Request{Upload: up, Settings: s, Refresh: f.refresh})
	if err != nil {
		spinner.StopWithError(apperr.UserMessage(err))
		if d := apperr.Details(err); d != "" {
			printDetail("%s", firstLines(d, 5))
		}
		return err
	}
	spinner.Stop()

	if f.stdout {
		_, err := os.Stdout.WriteString(res.SVG)
		return err
	}

	out := f.output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}
	if err := os.WriteFile(out, []byte(res.SVG), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Converted %s", filepath.Base(input))
	printFile(out)
	printResultStats(res)
	for _, w := range res.Warnings {
		printWarning("%s", w)
	}
	if f.showStats {
		printStageTimings(res.Stats)
	}
	c.Logger.Debug("convert", "preset", s.Preset, "engine", res.Engine, "elapsed", prog.elapsed())
	return nil
}

// readLocalUpload loads path as if it had been uploaded. The declared type
// comes from the extension, falling back to the file header.
func readLocalUpload(path string) (upload.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return upload.Upload{}, apperr.New(apperr.ErrCodeMissingFile, "No file provided").WithDetails(err.Error())
		}
		return upload.Upload{}, apperr.Wrap(apperr.ErrCodeIO, err, "Failed to read %s", path)
	}
	mt := upload.TypeFromFilename(path)
	if mt == "" {
		if format := upload.Sniff(data); format != "" {
			mt = "image/" + format
		}
	}
	return upload.Upload{
		Present:  true,
		Filename: filepath.Base(path),
		MIMEType: mt,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n  ")
}
