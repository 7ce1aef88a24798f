package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	NetworkName          string    `toml:"NetworkName" yaml:"networkName"`
	Env                  string    `toml:"Env" yaml:"env"`
	DataDir              string    `toml:"DataDir" yaml:"dataDir"`
	Backend              string    `toml:"Backend" yaml:"backend"`
	DatabaseURL          string    `toml:"DatabaseURL" yaml:"databaseURL"`
	RPCAddress           string    `toml:"RPCAddress" yaml:"rpcAddress"`
	RPCReadHeaderTimeout int       `toml:"RPCReadHeaderTimeout" yaml:"rpcReadHeaderTimeout"`
	RPCReadTimeout       int       `toml:"RPCReadTimeout" yaml:"rpcReadTimeout"`
	RPCWriteTimeout      int       `toml:"RPCWriteTimeout" yaml:"rpcWriteTimeout"`
	RPCIdleTimeout       int       `toml:"RPCIdleTimeout" yaml:"rpcIdleTimeout"`
	Auth                 Auth      `toml:"auth" yaml:"auth"`
	RateLimit            RateLimit `toml:"rate_limit" yaml:"rateLimit"`
	Log                  Log       `toml:"log" yaml:"log"`
	Telemetry            Telemetry `toml:"telemetry" yaml:"telemetry"`
	Genesis              Genesis   `toml:"genesis" yaml:"genesis"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Files ending in .yaml or .yml are decoded as YAML; every
// other extension is read as TOML.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "tierstake-local"
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if cfg.RPCReadHeaderTimeout <= 0 {
		cfg.RPCReadHeaderTimeout = 5
	}
	if cfg.RPCReadTimeout <= 0 {
		cfg.RPCReadTimeout = 15
	}
	if cfg.RPCWriteTimeout <= 0 {
		cfg.RPCWriteTimeout = 15
	}
	if cfg.RPCIdleTimeout <= 0 {
		cfg.RPCIdleTimeout = 120
	}
	if cfg.Auth.ClockSkewSecs <= 0 {
		cfg.Auth.ClockSkewSecs = 120
	}
	if cfg.RateLimit.RequestsPerMinute > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
}

// ResolveHMACSecret returns the inline secret or, when HMACSecretEnv is set,
// the value of that environment variable.
func (a Auth) ResolveHMACSecret() string {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// createDefault creates and saves a default configuration file with a freshly
// generated token secret.
func createDefault(path string) (*Config, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	cfg := &Config{
		NetworkName: "tierstake-local",
		Env:         "dev",
		DataDir:     "./tierstake-data",
		Backend:     BackendLevelDB,
		RPCAddress:  ":8080",
		Auth: Auth{
			Enabled:    true,
			HMACSecret: hex.EncodeToString(secret),
			Issuer:     "tierstake",
			Audience:   "stakingd",
		},
		RateLimit: RateLimit{RequestsPerMinute: 600, Burst: 60},
		Log:       Log{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
	cfg.applyDefaults()

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
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
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
