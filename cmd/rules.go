package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/dockscan/pkg/config"
	"github.com/user/dockscan/pkg/engine"
	"github.com/user/dockscan/pkg/wrappers"
)

type rulesCmd struct {
	root         *rootOptions
	surface      string
	jsonOutput   bool
	remediations bool
}

func newRulesCmd(root *rootOptions) *cobra.Command {
	rc := &rulesCmd{root: root}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the built-in checks",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}
	cmd.Flags().StringVar(&rc.surface, "surface", "", "Only list rules for one surface ("+surfaceNames()+")")
	cmd.Flags().BoolVar(&rc.jsonOutput, "json", false, "Output rules as JSON")
	cmd.Flags().BoolVar(&rc.remediations, "remediations", false, "List the checks that have a remediation template")
	return cmd
}

func (rc *rulesCmd) run(cmd *cobra.Command, args []string) error {
	if rc.remediations {
		return rc.listRemediations(cmd)
	}

	catalog := wrappers.Catalog()
	rules := catalog.All()
	if rc.surface != "" {
		var ok bool
		if rules, ok = catalog.Rules(engine.Surface(rc.surface)); !ok {
			return fmt.Errorf("unknown surface %q (valid: %s)", rc.surface, surfaceNames())
		}
	}

	out := cmd.OutOrStdout()
	if rc.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}

	for i, r := range rules {
		if i == 0 || rules[i-1].Surface != r.Surface {
			if i > 0 {
				fmt.Fprintln(out)
			}
			n, _ := catalog.Rules(r.Surface)
			fmt.Fprintf(out, "%s (%d rules)\n", r.Surface, len(n))
		}
		fmt.Fprintf(out, "  %-20s %s\n", r.ID, r.Description)
	}
	return nil
}

func (rc *rulesCmd) listRemediations(cmd *cobra.Command) error {
	cfg, err := rc.root.loadConfig()
	if err != nil {
		return err
	}
	remediations, err := loadRemediations(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, check := range remediations.ListTemplates() {
		r, _ := remediations.Lookup(check)
		fmt.Fprintf(out, "%-32s %s\n", check, r.Risk)
	}
	return nil
}

// loadRemediations returns the built-in templates overlaid with the
// configured remediation_dir.
func loadRemediations(cfg *config.Config) (*engine.RemediationEngine, error) {
	remediations := engine.NewRemediationEngine()
	if err := remediations.LoadDefaults(); err != nil {
		return nil, err
	}
	if cfg.RemediationDir != "" {
		if err := remediations.LoadDir(cfg.RemediationDir); err != nil {
			return nil, fmt.Errorf("loading remediations from %s: %w", cfg.RemediationDir, err)
		}
	}
	return remediations, nil
}

func surfaceNames() string {
	names := make([]string, 0, 3)
	for _, s := range engine.AllSurfaces() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
