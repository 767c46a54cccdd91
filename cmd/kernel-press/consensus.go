// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/kernel-press/internal/cluster"
	"github.com/pdiddy/kernel-press/internal/consensus"
	"github.com/pdiddy/kernel-press/internal/extract"
	"github.com/pdiddy/kernel-press/internal/report"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus [file]",
	Short: "Extract the concept kernels independent runs agree on",
	Long: `Consensus extracts the document's concept kernels several times, clusters
the kernels of all runs by meaning and keeps the clusters a sufficient
fraction of runs contributed to. It reports the pairwise agreement between
runs and fails when that agreement is below the stability threshold.

The YAML output can be passed to "kernel-press verify --kernels".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConsensus,
}

func init() {
	addConsensusFlags(consensusCmd)
	rootCmd.AddCommand(consensusCmd)
}

func runConsensus(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}
	cfg := loadConfig()
	cc := cfg.Condense.Consensus
	applyConsensusFlags(cmd, &cc)

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	content, err := readDocument(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	engine := consensus.New(
		extract.New(rt.oracle, rt.cache, logger),
		cluster.New(rt.oracle, rt.cache, logger),
		logger,
	)
	result, err := engine.Run(cmd.Context(), content, consensus.Params{
		Runs:      cc.Runs,
		Threshold: cc.Threshold,
		Bypass:    cfg.Cache.Bypass,
	})
	if err != nil {
		return err
	}
	if err := report.Consensus(cmd.OutOrStdout(), format, result); err != nil {
		return err
	}
	return consensus.Gate(result.Stability, cc.StabilityThreshold)
}
