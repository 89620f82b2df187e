package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/disruptiq/depscan/internal/config"
	"github.com/disruptiq/depscan/pkg/nvd"
	"github.com/disruptiq/depscan/pkg/report"
	"github.com/disruptiq/depscan/pkg/sbom"
	"github.com/disruptiq/depscan/pkg/scan"
)

var (
	version = "dev" // semantic version (e.g. "v1.2.3")
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version. Called by
// the main package with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// scanOpts holds the command-line flags for the scan.
type scanOpts struct {
	output     string // report path (overrides config)
	format     string // "json" or "summary"
	sbomOutput string // SBOM path (overrides config)
	configPath string // explicit config file
	verbose    bool
	quiet      bool
	noColor    bool
	checkCVEs  bool
	noSBOM     bool
}

// Execute runs the depscan CLI. The context carries cancellation from
// signal handling in main.
func Execute(ctx context.Context) error {
	opts := &scanOpts{}

	root := &cobra.Command{
		Use:          "depscan <path>",
		Short:        "depscan maps the dependency surface of a repository",
		Long:         `depscan walks a repository, normalizes every package manifest it recognizes into canonical dependency records, and emits a scan report plus a CycloneDX SBOM. With --check-cves it also queries the NVD for known vulnerabilities.`,
		Args:         cobra.ExactArgs(1),
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			if opts.quiet {
				level = charmlog.ErrorLevel
			}
			if opts.noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("depscan %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	flags := root.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "report output path")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: json or summary")
	flags.StringVar(&opts.sbomOutput, "sbom-output", "", "SBOM output path")
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	flags.BoolVar(&opts.checkCVEs, "check-cves", false, "query the NVD for known vulnerabilities")
	flags.BoolVar(&opts.noSBOM, "no-sbom", false, "skip SBOM generation")

	persistent := root.PersistentFlags()
	persistent.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	persistent.BoolVarP(&opts.quiet, "quiet", "q", false, "log errors only")
	persistent.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	return root.ExecuteContext(ctx)
}

// run executes one scan. Errors returned from here are fatal: an invalid
// scan root, a failed save, or cancellation. Everything recoverable has
// already been contained and logged further down the stack.
func (o *scanOpts) run(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = o.output
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = o.format
	}
	if cmd.Flags().Changed("sbom-output") {
		cfg.SBOMOutput = o.sbomOutput
	}

	prog := newProgress(logger)
	scanner := scan.New(path,
		scan.WithLogger(logger),
		scan.WithIgnorePatterns(cfg.IgnorePaths),
	)
	result, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Scanned %d manifests, %d dependencies", len(result.Manifests), len(result.Records)))

	var findings []nvd.Finding
	if o.checkCVEs {
		clientOpts := []nvd.ClientOption{}
		if cfg.NVDAPIKey != "" {
			clientOpts = append(clientOpts, nvd.WithAPIKey(cfg.NVDAPIKey))
		}
		session := nvd.NewSession(nvd.NewClient(clientOpts...), nvd.WithSessionLogger(logger))

		enrichProg := newProgress(logger)
		findings, err = session.Enrich(ctx, result.Records)
		if err != nil {
			return err
		}
		enrichProg.done(fmt.Sprintf("Checked %d dependencies against the NVD", len(result.Records)))
	}

	rep := report.Build(path, result.CommitHash, len(result.Manifests), result.Records, findings)
	if err := report.Save(rep, cfg.Output); err != nil {
		return err
	}
	logger.Infof("Report written to %s", cfg.Output)

	if !o.noSBOM {
		if err := sbom.Save(sbom.Build(version, result.Records), cfg.SBOMOutput); err != nil {
			return err
		}
		logger.Infof("SBOM written to %s", cfg.SBOMOutput)
	}

	if cfg.Format == "summary" && !o.quiet {
		printSummary(cmd.OutOrStdout(), rep)
	}
	return nil
}
