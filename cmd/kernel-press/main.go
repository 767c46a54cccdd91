// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kernel-press CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is installed by the root command before any subcommand runs.
var logger = slog.Default()

// rootCmd is the base command for the kernel-press CLI.
var rootCmd = &cobra.Command{
	Use:   "kernel-press",
	Short: "Compress documents while proving their key ideas survive",
	Long: `kernel-press compresses text and checks that the ideas which matter are
still there afterwards.

It first extracts the document's concept kernels several times and keeps the
ones independent runs agree on. It refuses to go further when the runs do not
agree well enough. It then applies a pipeline of compression passes, asks the
oracle which kernels the compressed text still carries and, on request,
restores the ones that were lost.

Every oracle judgment is cached on disk, keyed by its inputs, so repeated
runs over the same document are free and reproducible.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./kernel-press.yaml or ~/.config/kernel-press/kernel-press.yaml)")
	flags.BoolP("verbose", "v", false, "log every oracle call and cache lookup")
	flags.String("model", "", "oracle model identifier")
	flags.Int("max-in-flight", 0, "maximum concurrent oracle calls")
	flags.String("cache-dir", "", "cache directory")
	flags.String("cache-backend", "", "cache backend: files, sqlite or memory")
	flags.Bool("no-cache", false, "ignore cached judgments and overwrite them")

	_ = viper.BindPFlag("oracle.model", flags.Lookup("model"))
	_ = viper.BindPFlag("oracle.max_in_flight", flags.Lookup("max-in-flight"))
	_ = viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("cache.backend", flags.Lookup("cache-backend"))
	_ = viper.BindPFlag("cache.bypass", flags.Lookup("no-cache"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kernel-press")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kernel-press"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("KERNEL_PRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// exitCode maps an error to the process status: 2 for input and stability
// failures, 1 for everything else.
func exitCode(err error) int {
	var se *types.StabilityError
	switch {
	case errors.As(err, &se):
		fmt.Fprintf(os.Stderr, "stability: mean %.4f, min %.4f, max %.4f, comparisons %d, threshold %.4f\n",
			se.MeanJaccard, se.Stability.MinJaccard, se.Stability.MaxJaccard, se.Stability.Comparisons, se.Threshold)
		return 2
	case types.IsInputError(err):
		return 2
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}
