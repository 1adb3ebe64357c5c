package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"justfriends/crypto"
)

// Config is the node configuration.
type Config struct {
	RPCAddress  string `toml:"RPCAddress" yaml:"rpcAddress"`
	DataDir     string `toml:"DataDir" yaml:"dataDir"`
	Environment string `toml:"Environment" yaml:"environment"`
	LogLevel    string `toml:"LogLevel" yaml:"logLevel"`
	// LogFile additionally writes logs to a rotated file when set.
	LogFile string `toml:"LogFile" yaml:"logFile"`
	// EventIndex is the DSN of the event history store. Empty selects
	// <DataDir>/events.sqlite and "none" disables indexing.
	EventIndex string `toml:"EventIndex" yaml:"eventIndex"`

	RPCReadTimeout  int `toml:"RPCReadTimeout" yaml:"rpcReadTimeout"`
	RPCWriteTimeout int `toml:"RPCWriteTimeout" yaml:"rpcWriteTimeout"`
	RPCIdleTimeout  int `toml:"RPCIdleTimeout" yaml:"rpcIdleTimeout"`
	// RPCRatePerSecond and RPCBurst limit requests per caller identity.
	RPCRatePerSecond float64 `toml:"RPCRatePerSecond" yaml:"rpcRatePerSecond"`
	RPCBurst         int     `toml:"RPCBurst" yaml:"rpcBurst"`
	// RPCAllowedOrigins lists host patterns allowed to open the event
	// stream from another origin, such as "app.example.com" or "*.example.com".
	RPCAllowedOrigins []string `toml:"RPCAllowedOrigins" yaml:"rpcAllowedOrigins"`

	Market    Market       `toml:"market" yaml:"market"`
	Telemetry Telemetry    `toml:"telemetry" yaml:"telemetry"`
	Auth      Auth         `toml:"auth" yaml:"auth"`
	Genesis   []Allocation `toml:"genesis" yaml:"genesis"`
}

const (
	defaultRPCAddress  = ":8545"
	defaultDataDir     = "./justfriends-data"
	defaultRPCTimeout  = 15
	defaultRPCIdle     = 60
	defaultRatePerSec  = 20
	defaultRPCBurst    = 40
	defaultEnvironment = "local"
	defaultLogLevel    = "info"
	eventIndexFile     = "events.sqlite"
	eventIndexDisabled = "none"
	yamlExtension      = ".yaml"
	yamlShortExtension = ".yml"
)

// Load loads the configuration from the given path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == yamlExtension || ext == yamlShortExtension
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{Market: DefaultMarket()}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = defaultEnvironment
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RPCReadTimeout <= 0 {
		c.RPCReadTimeout = defaultRPCTimeout
	}
	if c.RPCWriteTimeout <= 0 {
		c.RPCWriteTimeout = defaultRPCTimeout
	}
	if c.RPCIdleTimeout <= 0 {
		c.RPCIdleTimeout = defaultRPCIdle
	}
	if c.RPCRatePerSecond <= 0 {
		c.RPCRatePerSecond = defaultRatePerSec
	}
	if c.RPCBurst <= 0 {
		c.RPCBurst = defaultRPCBurst
	}
	if c.Genesis == nil {
		c.Genesis = []Allocation{}
	}
	c.Market.applyDefaults()
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := c.Market.Params(); err != nil {
		return err
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}
	if _, err := c.Auth.Secret(); err != nil {
		return err
	}
	return nil
}

// EventIndexDSN returns the resolved event index DSN, or "" when indexing is
// disabled.
func (c *Config) EventIndexDSN() string {
	dsn := strings.TrimSpace(c.EventIndex)
	switch {
	case strings.EqualFold(dsn, eventIndexDisabled):
		return ""
	case dsn == "":
		return filepath.Join(c.DataDir, eventIndexFile)
	default:
		return dsn
	}
}

// ResolveIdentity parses a configured identity string.
func ResolveIdentity(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseIdentity(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: %s: %w", field, err)
	}
	return addr, nil
}
