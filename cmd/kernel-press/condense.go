// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kernel-press/internal/condense"
	"github.com/pdiddy/kernel-press/internal/press"
	"github.com/pdiddy/kernel-press/internal/report"
	"github.com/pdiddy/kernel-press/pkg/types"
)

var condenseCmd = &cobra.Command{
	Use:   "condense [files...]",
	Short: "Compress a document and verify its consensus kernels survive",
	Long: `Condense establishes the document's consensus kernels, stops if the
extraction runs disagree, compresses the document through the pipeline and
reports which kernels the compressed text still carries.

With no file, or "-", the document is read from standard input and the
report is written to standard output. With several files, --out-dir is
required: each compressed text is written there under its source name and a
progress line is printed per file.

Pipelines are "|"-separated passes of "+"-joined directives, for example
"req:kernels+telegraphic | dedupe". Mechanisms: ` + fmt.Sprint(press.DefaultRegistry().Names()) + `.`,
	RunE: runCondense,
}

func init() {
	addCondenseFlags(condenseCmd)
	rootCmd.AddCommand(condenseCmd)
}

func addCondenseFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("pipeline", "p", "", "pipeline spec (default \""+types.DefaultPipeline+"\")")
	cmd.Flags().String("pipeline-file", "", "YAML file holding the pipeline as a list of passes")
	cmd.Flags().String("verify", "", "verify mode: none, verify or restore (default verify)")
	cmd.Flags().Int("attempts", 0, "independent compression attempts (default 1)")
	cmd.Flags().Bool("no-style-filter", false, "skip the hedge-word post-filter")
	cmd.Flags().String("out-dir", "", "directory for compressed texts when condensing several files")
	addConsensusFlags(cmd)
}

// condenseConfig merges the condense flags over the configured settings.
func condenseConfig(cmd *cobra.Command, cfg types.CondenseConfig) (types.CondenseConfig, error) {
	applyConsensusFlags(cmd, &cfg.Consensus)
	if cmd.Flags().Changed("pipeline") {
		cfg.Pipeline, _ = cmd.Flags().GetString("pipeline")
	}
	if path, _ := cmd.Flags().GetString("pipeline-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading pipeline file: %w", err)
		}
		passes, err := press.ParseYAML(data)
		if err != nil {
			return cfg, err
		}
		cfg.Pipeline = press.Format(passes)
	}
	if cmd.Flags().Changed("verify") {
		mode, _ := cmd.Flags().GetString("verify")
		cfg.VerifyMode = types.VerifyMode(mode)
	}
	if cmd.Flags().Changed("attempts") {
		cfg.Attempts, _ = cmd.Flags().GetInt("attempts")
	}
	if cmd.Flags().Changed("no-style-filter") {
		cfg.NoStyleFilter, _ = cmd.Flags().GetBool("no-style-filter")
	}
	return cfg, nil
}

func runCondense(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out-dir")
	if len(args) > 1 && outDir == "" {
		return types.NewInputError(types.ErrCodeInvalidOption, "--out-dir is required when condensing %d files", len(args))
	}

	cfg := loadConfig()
	cc, err := condenseConfig(cmd, cfg.Condense)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	orch := condense.New(condense.Deps{Oracle: rt.oracle, Cache: rt.cache, Logger: logger})
	opts := condense.Options{CondenseConfig: cc, Bypass: cfg.Cache.Bypass}

	if len(args) <= 1 {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		content, err := readDocument(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err := orch.Condense(cmd.Context(), content, opts)
		if err != nil {
			return err
		}
		if outDir != "" {
			if err := writeCompressed(outDir, path, result.CompressedText); err != nil {
				return err
			}
		}
		return report.Condense(cmd.OutOrStdout(), format, result)
	}

	failed := condenseAll(cmd, orch, opts, args, outDir, cmd.ErrOrStderr())
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

// condenseAll condenses each file in turn, writing progress to w. Failures
// are reported and skipped. It returns the number of failed files.
func condenseAll(cmd *cobra.Command, orch *condense.Orchestrator, opts condense.Options, paths []string, outDir string, w io.Writer) int {
	failed := 0
	for i, path := range paths {
		fmt.Fprintf(w, "[%d/%d] %s: ", i+1, len(paths), path)

		content, err := readDocument(path, cmd.InOrStdin())
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			failed++
			continue
		}
		result, err := orch.Condense(cmd.Context(), content, opts)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			failed++
			continue
		}
		if err := writeCompressed(outDir, path, result.CompressedText); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%d -> %d tokens (%.2f), %d/%d kernels retained\n",
			result.Tokens.Before, result.Tokens.After, result.Tokens.Ratio,
			len(result.Kernels.Retained), result.Kernels.Before)
	}
	return failed
}

// writeCompressed writes text to dir under the base name of source.
func writeCompressed(dir, source, text string) error {
	name := filepath.Base(source)
	if source == "" || source == "-" {
		name = "stdin.txt"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func stringFlag(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}
