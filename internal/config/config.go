// Package config loads the daemon configuration: built-in defaults, then an
// optional YAML file, then SEQD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultRPCAddr = "127.0.0.1:9917"

type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Sequence SequenceConfig `yaml:"sequence"`
	RPC      RPCConfig      `yaml:"rpc"`
}

type NodeConfig struct {
	URL            string        `yaml:"url" env:"SEQD_NODE_URL"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"SEQD_NODE_REQUEST_TIMEOUT"`
	FetchAttempts  uint          `yaml:"fetchAttempts" env:"SEQD_NODE_FETCH_ATTEMPTS"`
	FetchRPS       float64       `yaml:"fetchRPS" env:"SEQD_NODE_FETCH_RPS"`
	FetchBurst     int           `yaml:"fetchBurst" env:"SEQD_NODE_FETCH_BURST"`
}

type SequenceConfig struct {
	MaxInFlight  uint64        `yaml:"maxInFlight" env:"SEQD_SEQUENCE_MAX_IN_FLIGHT"`
	PollInterval time.Duration `yaml:"pollInterval" env:"SEQD_SEQUENCE_POLL_INTERVAL"`
	MaxWait      time.Duration `yaml:"maxWait" env:"SEQD_SEQUENCE_MAX_WAIT"`
}

type RPCConfig struct {
	Addr           string  `yaml:"addr" env:"SEQD_RPC_ADDR"`
	Token          string  `yaml:"token" env:"SEQD_RPC_TOKEN"`
	RateLimitRPS   float64 `yaml:"rateLimitRPS" env:"SEQD_RPC_RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst" env:"SEQD_RPC_RATE_LIMIT_BURST"`
}

func Default() Config {
	return Config{
		Node: NodeConfig{
			RequestTimeout: 5 * time.Second,
			FetchAttempts:  3,
			FetchRPS:       10,
			FetchBurst:     20,
		},
		Sequence: SequenceConfig{
			MaxInFlight:  32,
			PollInterval: 500 * time.Millisecond,
			MaxWait:      30 * time.Second,
		},
		RPC: RPCConfig{
			Addr:           DefaultRPCAddr,
			RateLimitRPS:   30,
			RateLimitBurst: 60,
		},
	}
}

// Load reads configPath when given, otherwise tries the conventional
// locations. A missing file is not an error; defaults plus env apply.
func Load(configPath string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	candidates := make([]string, 0, 2)
	if strings.TrimSpace(configPath) != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/config.yaml",
			"config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		merge(&cfg, parsed)
		break
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Sequence.MaxWait < 3*cfg.Sequence.PollInterval {
		logger.Warn("sequence.maxWait is close to pollInterval; reinitializations may thrash",
			"component", "config",
			"poll_interval", cfg.Sequence.PollInterval,
			"max_wait", cfg.Sequence.MaxWait)
	}
	return cfg, nil
}

func merge(dst *Config, src Config) {
	if src.Node.URL != "" {
		dst.Node.URL = src.Node.URL
	}
	if src.Node.RequestTimeout != 0 {
		dst.Node.RequestTimeout = src.Node.RequestTimeout
	}
	if src.Node.FetchAttempts != 0 {
		dst.Node.FetchAttempts = src.Node.FetchAttempts
	}
	if src.Node.FetchRPS != 0 {
		dst.Node.FetchRPS = src.Node.FetchRPS
	}
	if src.Node.FetchBurst != 0 {
		dst.Node.FetchBurst = src.Node.FetchBurst
	}
	if src.Sequence.MaxInFlight != 0 {
		dst.Sequence.MaxInFlight = src.Sequence.MaxInFlight
	}
	if src.Sequence.PollInterval != 0 {
		dst.Sequence.PollInterval = src.Sequence.PollInterval
	}
	if src.Sequence.MaxWait != 0 {
		dst.Sequence.MaxWait = src.Sequence.MaxWait
	}
	if src.RPC.Addr != "" {
		dst.RPC.Addr = src.RPC.Addr
	}
	if src.RPC.Token != "" {
		dst.RPC.Token = src.RPC.Token
	}
	if src.RPC.RateLimitRPS != 0 {
		dst.RPC.RateLimitRPS = src.RPC.RateLimitRPS
	}
	if src.RPC.RateLimitBurst != 0 {
		dst.RPC.RateLimitBurst = src.RPC.RateLimitBurst
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Node.URL) == "" {
		return errors.New("node.url is required")
	}
	if c.Sequence.MaxInFlight == 0 {
		return errors.New("sequence.maxInFlight must be positive")
	}
	if c.Sequence.PollInterval <= 0 {
		return errors.New("sequence.pollInterval must be positive")
	}
	if c.Sequence.MaxWait <= 0 {
		return errors.New("sequence.maxWait must be positive")
	}
	if strings.TrimSpace(c.RPC.Addr) == "" {
		return errors.New("rpc.addr is required")
	}
	return nil
}
