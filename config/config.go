// Package config loads the optional YAML configuration file. Every tuning
// constant of the discovery engine is exposed here; command-line flags take
// precedence over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML string parsing ("30s", "2m").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Registry struct {
		RPCAddr         string   `yaml:"rpcAddr"`
		ContractAddress string   `yaml:"contractAddress"`
		CacheTTL        Duration `yaml:"cacheTTL"`
	} `yaml:"registry"`

	Probe struct {
		BaseURL      string   `yaml:"baseURL"`
		InfoTimeout  Duration `yaml:"infoTimeout"`
		StateTimeout Duration `yaml:"stateTimeout"`
	} `yaml:"probe"`

	Discovery struct {
		OverFetchMultiplier int `yaml:"overFetchMultiplier"`
		OverFetchCap        int `yaml:"overFetchCap"`
	} `yaml:"discovery"`

	Attestation struct {
		VerifierURL string   `yaml:"verifierURL"`
		Timeout     Duration `yaml:"timeout"`
	} `yaml:"attestation"`

	Server struct {
		ListenAddr  string `yaml:"listenAddr"`
		MetricsAddr string `yaml:"metricsAddr"`
	} `yaml:"server"`
}

// Default returns the configuration defaults applied before any file or
// flag overrides.
func Default() Config {
	var cfg Config
	cfg.Registry.RPCAddr = "http://127.0.0.1:8545"
	cfg.Registry.CacheTTL = Duration(60 * time.Second)
	cfg.Probe.InfoTimeout = Duration(2 * time.Second)
	cfg.Probe.StateTimeout = Duration(1 * time.Second)
	cfg.Discovery.OverFetchMultiplier = 3
	cfg.Discovery.OverFetchCap = 30
	cfg.Attestation.Timeout = Duration(10 * time.Second)
	cfg.Server.ListenAddr = "127.0.0.1:8080"
	cfg.Server.MetricsAddr = "127.0.0.1:8090"
	return cfg
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Discovery.OverFetchMultiplier < 1 {
		return Config{}, fmt.Errorf("discovery.overFetchMultiplier must be at least 1")
	}
	if cfg.Discovery.OverFetchCap < 1 {
		return Config{}, fmt.Errorf("discovery.overFetchCap must be at least 1")
	}

	return cfg, nil
}
