// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OracleConfig holds settings for the judgment-producing oracle.
type OracleConfig struct {
	// Provider selects the oracle implementation (default "anthropic").
	Provider string `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the length of each oracle response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Timeout bounds every oracle call (default 60s). A timeout is treated
	// like any other oracle failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures (default 1).
	// Malformed output is never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxInFlight is the size of the in-flight window shared by every
	// oracle call in the process (default 4).
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`
}

// CacheBackend selects the cache store implementation.
type CacheBackend string

const (
	CacheFiles  CacheBackend = "files"
	CacheSQLite CacheBackend = "sqlite"
	CacheMemory CacheBackend = "memory"
)

// CacheConfig holds settings for the memoization cache.
type CacheConfig struct {
	// Dir is the cache directory (default ".kernel-press/cache").
	Dir string `json:"dir" yaml:"dir"`

	// Backend selects files, sqlite, or memory (default files).
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// Bypass forces recomputation and overwrites existing entries.
	Bypass bool `json:"bypass" yaml:"bypass"`
}

// ConsensusConfig holds settings for the Consensus Engine and Stability Gate.
type ConsensusConfig struct {
	// Runs is the number of independent extractions (default 3).
	Runs int `json:"runs" yaml:"runs"`

	// Threshold is the fraction of runs a cluster must appear in (default 0.5).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// StabilityThreshold is the minimum mean Jaccard agreement (default 0.7).
	StabilityThreshold float64 `json:"stability_threshold" yaml:"stability_threshold"`
}

// CondenseConfig holds settings for the Condense Orchestrator.
type CondenseConfig struct {
	Consensus ConsensusConfig `json:"consensus" yaml:"consensus"`

	// Pipeline is a pipeline spec string, e.g. "req:kernels+telegraphic | dedupe".
	Pipeline string `json:"pipeline" yaml:"pipeline"`

	// VerifyMode is none, verify, or restore (default verify).
	VerifyMode VerifyMode `json:"verify_mode" yaml:"verify_mode"`

	// Attempts is the number of independent press+verify attempts (default 1).
	Attempts int `json:"attempts" yaml:"attempts"`

	// NoStyleFilter skips the final hedge-word post-filter and its
	// strip-hedges pass.
	NoStyleFilter bool `json:"no_style_filter" yaml:"no_style_filter"`
}

// Config groups all settings for a kernel-press process.
type Config struct {
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Condense CondenseConfig `json:"condense" yaml:"condense"`
}

// Defaults applied when a setting is zero.
const (
	DefaultProvider           = "anthropic"
	DefaultModel              = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens          = 4096
	DefaultOracleTimeout      = 60 * time.Second
	DefaultMaxRetries         = 1
	DefaultMaxInFlight        = 4
	DefaultCacheDir           = ".kernel-press/cache"
	DefaultRuns               = 3
	DefaultThreshold          = 0.5
	DefaultStabilityThreshold = 0.7
	DefaultPipeline           = "req:kernels+telegraphic"
)

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c OracleConfig) WithDefaults() OracleConfig {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultOracleTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = DefaultMaxInFlight
	}
	return c
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.Dir == "" {
		c.Dir = DefaultCacheDir
	}
	if c.Backend == "" {
		c.Backend = CacheFiles
	}
	return c
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c ConsensusConfig) WithDefaults() ConsensusConfig {
	if c.Runs <= 0 {
		c.Runs = DefaultRuns
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = DefaultStabilityThreshold
	}
	return c
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c CondenseConfig) WithDefaults() CondenseConfig {
	c.Consensus = c.Consensus.WithDefaults()
	if c.Pipeline == "" {
		c.Pipeline = DefaultPipeline
	}
	if c.VerifyMode == "" {
		c.VerifyMode = VerifyCheck
	}
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	return c
}
