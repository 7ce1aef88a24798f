package config

import (
	"fmt"
	"strings"
)

// MinHMACSecretLength is the shortest token secret accepted when auth is on.
var MinHMACSecretLength = 32

// Validate rejects inconsistent settings.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Backend {
	case BackendLevelDB, BackendSQLite:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("backend %s: DataDir required", cfg.Backend)
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return fmt.Errorf("backend postgres: DatabaseURL required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.Auth.Enabled && len(cfg.Auth.ResolveHMACSecret()) < MinHMACSecretLength {
		return fmt.Errorf("auth: HMAC secret must be at least %d characters", MinHMACSecretLength)
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must be non-negative")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must be non-negative")
	}
	if (cfg.Telemetry.Traces || cfg.Telemetry.Metrics) && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
	}
	if _, err := cfg.Genesis.Parse(); err != nil {
		return err
	}
	return nil
}
