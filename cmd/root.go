package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/user/dockscan/pkg/advisor"
	"github.com/user/dockscan/pkg/checks/runtime"
	"github.com/user/dockscan/pkg/config"
	"github.com/user/dockscan/pkg/logger"
	"github.com/user/dockscan/pkg/wrappers"
)

// ErrFindingsReported makes the process exit with status 1 after a
// successful scan that found misconfigurations. It is never printed.
var ErrFindingsReported = errors.New("misconfigurations found")

type rootOptions struct {
	configPath string
	debug      bool

	// overridden in tests
	containerSource func(cfg *config.Config, all bool) runtime.ContainerSource
	newProvider     func(ctx context.Context, name, apiKey, model string) (advisor.Provider, error)
}

func defaultRootOptions() *rootOptions {
	return &rootOptions{
		containerSource: func(cfg *config.Config, all bool) runtime.ContainerSource {
			return wrappers.NewDockerSource(cfg.Docker.Host, cfg.Docker.RequestTimeout(), all)
		},
		newProvider: advisor.NewProvider,
	}
}

// loadConfig reads the configuration and applies its log level. --debug wins.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	if o.debug {
		logger.SetDebug(true)
	}
	return cfg, nil
}

// loadConfigFile resolves the config path and reads the file as stored,
// without DOCKSCAN_* overrides, for commands that save it back.
func (o *rootOptions) loadConfigFile() (string, *config.Config, error) {
	path, err := o.configFile()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	return path, cfg, nil
}

// configFile returns the --config path or the default location.
func (o *rootOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.GetConfigPath()
}

// NewRootCmd builds the dockscan command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultRootOptions())
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dockscan",
		Short: "Docker & container misconfiguration scanner",
		Long: `dockscan inspects Dockerfiles, Compose files and running containers
for insecure settings and reports each problem with a HIGH, MEDIUM or LOW
severity. It exits with status 1 when anything is found.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetDebug(opts.debug)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.dockscan/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newRulesCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return run(ctx, NewRootCmd(), os.Stderr)
}

func run(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrFindingsReported) {
		return 1
	}

	var parseErr *wrappers.ParseError
	if errors.As(err, &parseErr) {
		fmt.Fprintf(stderr, "Error parsing compose file: %v\n", parseErr)
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
