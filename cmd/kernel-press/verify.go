// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kernel-press/internal/report"
	"github.com/pdiddy/kernel-press/internal/verify"
	"github.com/pdiddy/kernel-press/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify --kernels FILE [candidate]",
	Short: "Check which kernels a candidate text still expresses",
	Long: `Verify asks the oracle, for every kernel in the kernels file, whether a
careful reader of the candidate text could still recover it. The kernels
file is a YAML list of {id, concept, category} or the YAML output of the
consensus command. The candidate is read from standard input when no file
is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringP("kernels", "k", "", "YAML kernels file (required)")
	verifyCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	_ = verifyCmd.MarkFlagRequired("kernels")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(stringFlag(cmd, "kernels"))
	if err != nil {
		return fmt.Errorf("reading kernels file: %w", err)
	}
	kernels, err := loadKernels(data)
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	candidate, err := readDocument(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg := loadConfig()
	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	v := verify.New(rt.oracle, rt.cache, logger)
	rep, err := v.Verify(cmd.Context(), kernels, candidate, verify.Options{Bypass: cfg.Cache.Bypass})
	if err != nil {
		return err
	}
	return writeRetention(cmd, format, rep)
}

func writeRetention(cmd *cobra.Command, format report.Format, rep types.RetentionReport) error {
	w := cmd.OutOrStdout()
	switch format {
	case report.FormatJSON:
		return report.JSON(w, rep)
	case report.FormatYAML:
		return report.YAML(w, rep)
	default:
		return report.Retention(w, rep)
	}
}
