// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/internal/secrets"
	"github.com/pdiddy/kernel-press/pkg/types"
)

func setDefaults() {
	viper.SetDefault("oracle.provider", types.DefaultProvider)
	viper.SetDefault("oracle.model", types.DefaultModel)
	viper.SetDefault("oracle.max_tokens", types.DefaultMaxTokens)
	viper.SetDefault("oracle.timeout", types.DefaultOracleTimeout)
	viper.SetDefault("oracle.max_retries", types.DefaultMaxRetries)
	viper.SetDefault("oracle.max_in_flight", types.DefaultMaxInFlight)
	viper.SetDefault("cache.dir", types.DefaultCacheDir)
	viper.SetDefault("cache.backend", string(types.CacheFiles))
	viper.SetDefault("condense.pipeline", types.DefaultPipeline)
	viper.SetDefault("condense.verify_mode", string(types.VerifyCheck))
	viper.SetDefault("condense.attempts", 1)
	viper.SetDefault("condense.consensus.runs", types.DefaultRuns)
	viper.SetDefault("condense.consensus.threshold", types.DefaultThreshold)
	viper.SetDefault("condense.consensus.stability_threshold", types.DefaultStabilityThreshold)
}

// loadConfig reads the merged viper settings (flags, env, config file,
// defaults) into a Config.
func loadConfig() types.Config {
	return types.Config{
		Oracle: types.OracleConfig{
			Provider:    viper.GetString("oracle.provider"),
			Model:       viper.GetString("oracle.model"),
			APIKey:      viper.GetString("oracle.api_key"),
			MaxTokens:   viper.GetInt("oracle.max_tokens"),
			Timeout:     viper.GetDuration("oracle.timeout"),
			MaxRetries:  viper.GetInt("oracle.max_retries"),
			MaxInFlight: viper.GetInt("oracle.max_in_flight"),
		},
		Cache: types.CacheConfig{
			Dir:     viper.GetString("cache.dir"),
			Backend: types.CacheBackend(viper.GetString("cache.backend")),
			Bypass:  viper.GetBool("cache.bypass"),
		},
		Condense: types.CondenseConfig{
			Consensus: types.ConsensusConfig{
				Runs:               viper.GetInt("condense.consensus.runs"),
				Threshold:          viper.GetFloat64("condense.consensus.threshold"),
				StabilityThreshold: viper.GetFloat64("condense.consensus.stability_threshold"),
			},
			Pipeline:      viper.GetString("condense.pipeline"),
			VerifyMode:    types.VerifyMode(viper.GetString("condense.verify_mode")),
			Attempts:      viper.GetInt("condense.attempts"),
			NoStyleFilter: viper.GetBool("condense.no_style_filter"),
		},
	}
}

// addConsensusFlags registers the consensus flags shared by condense and
// consensus.
func addConsensusFlags(cmd *cobra.Command) {
	cmd.Flags().Int("runs", 0, "independent extraction runs (default 3)")
	cmd.Flags().Float64("threshold", 0, "fraction of runs a kernel must appear in (default 0.5)")
	cmd.Flags().Float64("stability-threshold", 0, "minimum mean Jaccard agreement between runs (default 0.7)")
	cmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
}

// applyConsensusFlags overrides cfg with the consensus flags set on cmd.
func applyConsensusFlags(cmd *cobra.Command, cfg *types.ConsensusConfig) {
	if cmd.Flags().Changed("runs") {
		cfg.Runs, _ = cmd.Flags().GetInt("runs")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	if cmd.Flags().Changed("stability-threshold") {
		cfg.StabilityThreshold, _ = cmd.Flags().GetFloat64("stability-threshold")
	}
}

// runtime holds the process-wide oracle and cache.
type runtime struct {
	oracle oracle.Oracle
	store  cache.Store
	cache  *cache.Facade
}

// openRuntime builds the guarded oracle and opens the cache. The API key
// falls back to .secrets/ and then the environment.
func openRuntime(cfg types.Config) (*runtime, error) {
	if cfg.Oracle.APIKey == "" {
		key, err := secrets.AnthropicKey(secrets.DefaultDir, logger)
		if err != nil {
			return nil, err
		}
		cfg.Oracle.APIKey = key
	}
	o, err := oracle.Open(cfg.Oracle, logger)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return &runtime{oracle: o, store: store, cache: cache.NewFacade(store, logger)}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// readDocument reads path, or standard input when path is empty or "-".
func readDocument(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// loadKernels decodes a YAML list of kernels, or any document with a
// top-level kernels list such as the output of consensus --format yaml.
func loadKernels(data []byte) ([]types.ConceptKernel, error) {
	var list []types.ConceptKernel
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Kernels []types.ConceptKernel `yaml:"kernels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.NewInputError(types.ErrCodeInvalidOption, "parsing kernels file: %v", err)
	}
	return doc.Kernels, nil
}
