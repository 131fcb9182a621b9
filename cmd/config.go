package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/dockscan/pkg/advisor"
	"github.com/user/dockscan/pkg/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration (reference data, Docker host, advisor keys)",
	}

	cmd.AddCommand(newInitCmd(root))
	cmd.AddCommand(newShowCmd(root))
	cmd.AddCommand(newSetKeyCmd(root))
	cmd.AddCommand(newSetModelCmd(root))
	cmd.AddCommand(newListModelsCmd(root))
	return cmd
}

func newShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			masked := *cfg
			masked.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
			for name, p := range cfg.Providers {
				masked.Providers[name] = config.ProviderConfig{APIKey: maskKey(p.APIKey)}
			}

			data, err := yaml.Marshal(&masked)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func newSetKeyCmd(root *rootOptions) *cobra.Command {
	var provider, key string
	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Manually set API key for a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" || key == "" {
				return errors.New("--provider and --key are required")
			}

			path, cfg, err := root.loadConfigFile()
			if err != nil {
				return err
			}
			cfg.SetAPIKey(strings.ToLower(provider), key)

			if err := config.SaveConfig(path, cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key saved for provider: %s\n", provider)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider (gemini)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "API Key")
	return cmd
}

func newSetModelCmd(root *rootOptions) *cobra.Command {
	var provider, model string
	cmd := &cobra.Command{
		Use:   "set-model",
		Short: "Manually set the active provider and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(provider)
			if provider != "" && !slices.Contains(advisor.Providers, provider) {
				return fmt.Errorf("unknown provider %q (valid: %s)", provider, strings.Join(advisor.Providers, ", "))
			}

			path, cfg, err := root.loadConfigFile()
			if err != nil {
				return err
			}

			if provider != "" {
				cfg.Advisor.Provider = provider
			}
			if model != "" {
				cfg.Advisor.Model = model
			}

			if err := config.SaveConfig(path, cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active configuration updated: Provider=%s, Model=%s\n",
				cfg.Advisor.Provider, cfg.Advisor.Model)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider ("+strings.Join(advisor.Providers, ", ")+")")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name")
	return cmd
}

func newListModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List available models from the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			name := cfg.Advisor.Provider
			ctx := cmd.Context()
			p, err := root.newProvider(ctx, name, cfg.GetAPIKey(name), cfg.Advisor.Model)
			if err != nil {
				return fmt.Errorf("initializing provider: %w", err)
			}
			defer p.Close()

			models, err := p.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("fetching models: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Available Models (%s):\n", name)
			for _, m := range models {
				mark := " "
				if m == cfg.Advisor.Model {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, m)
			}
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
