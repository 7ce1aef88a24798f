package config

// Storage backends accepted by the daemon.
const (
	BackendLevelDB  = "leveldb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Auth configures bearer-token verification on the RPC surface. The token's
// subject claim carries the caller's bech32 address.
type Auth struct {
	Enabled       bool   `toml:"Enabled" yaml:"enabled"`
	HMACSecret    string `toml:"HMACSecret" yaml:"hmacSecret"`
	HMACSecretEnv string `toml:"HMACSecretEnv" yaml:"hmacSecretEnv"`
	Issuer        string `toml:"Issuer" yaml:"issuer"`
	Audience      string `toml:"Audience" yaml:"audience"`
	ClockSkewSecs int    `toml:"ClockSkewSeconds" yaml:"clockSkewSeconds"`
}

// RateLimit bounds request throughput per caller.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute" yaml:"requestsPerMinute"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// Log selects an optional rotating file sink in addition to stdout.
type Log struct {
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `toml:"Compress" yaml:"compress"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Headers  string `toml:"Headers" yaml:"headers"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	Traces   bool   `toml:"Traces" yaml:"traces"`
	Metrics  bool   `toml:"Metrics" yaml:"metrics"`
}

// Allocation is a genesis token credit applied before the node serves traffic.
type Allocation struct {
	Address string `toml:"Address" yaml:"address"`
	Amount  uint64 `toml:"Amount" yaml:"amount"`
}

// Genesis seeds a fresh ledger. Allocations are credited once; a marker in
// the store keeps restarts from minting again.
type Genesis struct {
	Mint        string       `toml:"Mint" yaml:"mint"`
	Allocations []Allocation `toml:"Allocations" yaml:"allocations"`
}
