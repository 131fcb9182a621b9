package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/dockscan/pkg/config"
)

type initCmd struct {
	root        *rootOptions
	force       bool
	interactive bool
}

func newInitCmd(root *rootOptions) *cobra.Command {
	ic := &initCmd{root: root}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default reference data",
		Args:  cobra.NoArgs,
		RunE:  ic.run,
	}
	cmd.Flags().BoolVarP(&ic.force, "force", "f", false, "Overwrite an existing config file")
	cmd.Flags().BoolVarP(&ic.interactive, "interactive", "i", false, "Prompt for Docker host and advisor settings")
	return cmd
}

func (ic *initCmd) run(cmd *cobra.Command, args []string) error {
	path, err := ic.root.configFile()
	if err != nil {
		return err
	}
	if fileExists(path) && !ic.force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	out := cmd.OutOrStdout()
	if ic.interactive {
		if err := ic.prompt(cmd, cfg); err != nil {
			return err
		}
	}

	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration written to %s\n", path)
	return nil
}

func (ic *initCmd) prompt(cmd *cobra.Command, cfg *config.Config) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	ask := func(question string) string {
		fmt.Fprint(out, question)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Fprintln(out, "dockscan setup")
	fmt.Fprintln(out, "--------------")

	// 1. Docker host
	host := ask("Docker host (empty for DOCKER_HOST or the local socket) > ")
	cfg.Docker.Host = host

	// 2. Advisor key
	apiKey := ask("Gemini API key for --explain (empty to skip) > ")
	if apiKey == "" {
		return scanner.Err()
	}
	cfg.Advisor.Provider = "gemini"
	cfg.SetAPIKey("gemini", apiKey)

	// 3. Model
	fmt.Fprintln(out, "Validating key and fetching available models...")
	ctx := cmd.Context()
	p, err := ic.root.newProvider(ctx, cfg.Advisor.Provider, apiKey, "")
	if err != nil {
		return fmt.Errorf("initializing provider: %w", err)
	}
	defer p.Close()

	models, err := p.ListModels(ctx)
	if err == nil && len(models) == 0 {
		err = errors.New("provider returned no models")
	}
	if err != nil {
		fmt.Fprintf(out, "Warning: could not fetch models: %v\n", err)
		if m := ask("Model name > "); m != "" {
			cfg.Advisor.Model = m
		}
		return scanner.Err()
	}

	for i, m := range models {
		fmt.Fprintf(out, "%d. %s\n", i+1, m)
	}
	cfg.Advisor.Model = pickModel(models, ask("Select Model (number) > "), out)
	return scanner.Err()
}

func pickModel(models []string, choice string, out io.Writer) string {
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(models) {
		fmt.Fprintln(out, "Invalid selection. Using first available model.")
		return models[0]
	}
	return models[idx-1]
}
