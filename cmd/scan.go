package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/user/dockscan/pkg/advisor"
	"github.com/user/dockscan/pkg/config"
	"github.com/user/dockscan/pkg/engine"
	"github.com/user/dockscan/pkg/logger"
	"github.com/user/dockscan/pkg/report"
	"github.com/user/dockscan/pkg/wrappers"
)

type scanCmd struct {
	root *rootOptions

	dockerfile    string
	compose       string
	runtime       bool
	allContainers bool
	json          bool
	remediation   bool
	explain       bool
	noColor       bool
}

func newScanCmd(root *rootOptions) *cobra.Command {
	sc := &scanCmd{root: root}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a Dockerfile, a Compose file and/or running containers",
		Example: `  dockscan scan --dockerfile ./Dockerfile
  dockscan scan --compose docker-compose.yml --runtime --json`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	cmd.Flags().StringVar(&sc.dockerfile, "dockerfile", "", "Path to Dockerfile to scan")
	cmd.Flags().StringVar(&sc.compose, "compose", "", "Path to docker-compose file to scan")
	cmd.Flags().BoolVar(&sc.runtime, "runtime", false, "Scan running containers")
	cmd.Flags().BoolVar(&sc.allContainers, "all-containers", false, "Include stopped containers in the runtime scan")
	cmd.Flags().BoolVar(&sc.json, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&sc.remediation, "remediation", false, "Print remediation guidance for each check")
	cmd.Flags().BoolVar(&sc.explain, "explain", false, "Ask the configured AI provider for a remediation plan")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (sc *scanCmd) scanners(cfg *config.Config) []wrappers.Scanner {
	var scanners []wrappers.Scanner
	if sc.dockerfile != "" {
		scanners = append(scanners, &wrappers.DockerfileScanner{Path: sc.dockerfile})
	}
	if sc.compose != "" {
		scanners = append(scanners, &wrappers.ComposeScanner{Path: sc.compose})
	}
	if sc.runtime {
		scanners = append(scanners, &wrappers.RuntimeScanner{Source: sc.root.containerSource(cfg, sc.allContainers)})
	}
	return scanners
}

func (sc *scanCmd) run(cmd *cobra.Command, args []string) error {
	if sc.dockerfile == "" && sc.compose == "" && !sc.runtime {
		return errors.New("specify at least one scan type (--dockerfile, --compose, --runtime)")
	}
	if sc.explain && sc.json {
		return errors.New("--explain cannot be combined with --json")
	}

	cfg, err := sc.root.loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := !sc.noColor && !color.NoColor && out == os.Stdout
	reporter := report.NewReporter(out, colorize)

	if !sc.json {
		if err := reporter.Banner(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	rep, err := wrappers.ScanAll(ctx, sc.scanners(cfg), cfg.Reference(), func(msg string) {
		logger.Debugf("%s", msg)
	})
	if err != nil {
		return err
	}
	findings := rep.Findings()

	if sc.json {
		if err := reporter.JSON(findings); err != nil {
			return err
		}
	} else {
		if err := reporter.Table(findings); err != nil {
			return err
		}
		if sc.remediation {
			if err := sc.printRemediations(reporter, cfg, findings); err != nil {
				return err
			}
		}
		if sc.explain {
			sc.printAdvice(ctx, reporter, cfg, findings)
		}
	}

	if rep.HasFindings() {
		return ErrFindingsReported
	}
	return nil
}

func (sc *scanCmd) printRemediations(reporter *report.Reporter, cfg *config.Config, findings []engine.Finding) error {
	remediations, err := loadRemediations(cfg)
	if err != nil {
		return err
	}
	return reporter.Remediations(findings, remediations)
}

// printAdvice is best effort: failures are logged and never affect the
// findings or the exit status.
func (sc *scanCmd) printAdvice(ctx context.Context, reporter *report.Reporter, cfg *config.Config, findings []engine.Finding) {
	if len(findings) == 0 {
		return
	}
	log := logger.Component("advisor")

	name := cfg.Advisor.Provider
	provider, err := sc.root.newProvider(ctx, name, cfg.GetAPIKey(name), cfg.Advisor.Model)
	if err != nil {
		log.Warn().Err(err).Msg("advisor unavailable, run 'dockscan config set-key'")
		return
	}
	defer provider.Close()

	a, err := advisor.New(provider)
	if err != nil {
		log.Warn().Err(err).Msg("advisor unavailable")
		return
	}

	log.Info().Str("provider", name).Str("model", cfg.Advisor.Model).Msg("requesting remediation plan")
	text, err := a.Explain(ctx, findings)
	if err != nil {
		log.Warn().Err(err).Msg("advisor request failed")
		return
	}
	if err := reporter.Narrative("Advisor", text); err != nil {
		log.Warn().Err(err).Msg("failed to print advice")
	}
}
