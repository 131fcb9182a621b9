package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/user/dockscan/pkg/engine"
)

const (
	envPrefix      = "DOCKSCAN"
	defaultTimeout = 10 * time.Second
)

// DefaultSensitivePorts are remote administration, database and Docker API ports.
var DefaultSensitivePorts = []int{
	21, 22, 23, 25, 135, 139, 445, 1433, 1521, 2375, 2376,
	3306, 3389, 5432, 5900, 6379, 9200, 11211, 27017,
}

// DefaultSensitivePaths are host paths that must not be mounted into containers.
var DefaultSensitivePaths = []string{
	"/", "/etc", "/root", "/var/run/docker.sock", "/var/run",
	"/proc", "/sys", "/boot", "/dev", "/var/lib/docker",
}

type ProviderConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

type DockerConfig struct {
	Host    string `yaml:"host" mapstructure:"host"`       // empty means DOCKER_HOST / default socket
	Timeout string `yaml:"timeout" mapstructure:"timeout"` // Go duration, e.g. "10s"
}

// RequestTimeout returns the configured timeout, falling back to 10s when unset or invalid.
func (d DockerConfig) RequestTimeout() time.Duration {
	t, err := time.ParseDuration(d.Timeout)
	if err != nil || t <= 0 {
		return defaultTimeout
	}
	return t
}

type AdvisorConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

type Config struct {
	SensitivePorts []int                     `yaml:"sensitive_ports" mapstructure:"sensitive_ports"`
	SensitivePaths []string                  `yaml:"sensitive_paths" mapstructure:"sensitive_paths"`
	RemediationDir string                    `yaml:"remediation_dir,omitempty" mapstructure:"remediation_dir"`
	LogLevel       string                    `yaml:"log_level" mapstructure:"log_level"`
	Docker         DockerConfig              `yaml:"docker" mapstructure:"docker"`
	Advisor        AdvisorConfig             `yaml:"advisor" mapstructure:"advisor"`
	Providers      map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SensitivePorts: append([]int(nil), DefaultSensitivePorts...),
		SensitivePaths: append([]string(nil), DefaultSensitivePaths...),
		LogLevel:       "info",
		Docker:         DockerConfig{Timeout: defaultTimeout.String()},
		Advisor:        AdvisorConfig{Provider: "gemini", Model: "gemini-1.5-flash"},
		Providers:      make(map[string]ProviderConfig),
	}
}

// GetConfigPath returns ~/.dockscan/config.yaml
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dockscan", "config.yaml"), nil
}

// LoadConfig reads the configuration at path (the default path when empty).
// A missing file yields the defaults; DOCKSCAN_* variables override both.
func LoadConfig(path string) (*Config, error) {
	return load(path, true)
}

// LoadConfigFile is LoadConfig without the DOCKSCAN_* overrides. Commands
// that write the configuration back start from it so the environment of
// one invocation is not persisted.
func LoadConfigFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v, Default())
	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("sensitive_ports", d.SensitivePorts)
	v.SetDefault("sensitive_paths", d.SensitivePaths)
	v.SetDefault("remediation_dir", d.RemediationDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("docker.host", d.Docker.Host)
	v.SetDefault("docker.timeout", d.Docker.Timeout)
	v.SetDefault("advisor.provider", d.Advisor.Provider)
	v.SetDefault("advisor.model", d.Advisor.Model)
}

// SaveConfig writes cfg as YAML to path, creating the directory if needed.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600, the file may hold API keys
	return os.WriteFile(path, data, 0600)
}

// Validate rejects reference data that could never match.
func (c *Config) Validate() error {
	for _, p := range c.SensitivePorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("sensitive_ports: %d is not a valid port", p)
		}
	}
	for _, p := range c.SensitivePaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("sensitive_paths: %q is not an absolute path", p)
		}
	}
	return nil
}

// Reference builds the check reference data from the configuration.
func (c *Config) Reference() *engine.Reference {
	return engine.NewReference(c.SensitivePorts, c.SensitivePaths)
}

func (c *Config) SetAPIKey(provider, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

// GetAPIKey returns the stored key, falling back to GOOGLE_API_KEY for gemini.
func (c *Config) GetAPIKey(provider string) string {
	if key := c.Providers[provider].APIKey; key != "" {
		return key
	}
	if provider == "gemini" {
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
