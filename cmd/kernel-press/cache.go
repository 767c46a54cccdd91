// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kernel-press/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the oracle judgment cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the cache location and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig().Cache.WithDefaults()
		store, err := cache.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Len()
		if err != nil {
			return fmt.Errorf("counting cache entries: %w", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "backend: %s\n", cfg.Backend)
		fmt.Fprintf(w, "dir:     %s\n", cfg.Dir)
		fmt.Fprintf(w, "entries: %d\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached judgment",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(loadConfig().Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Len()
		if err != nil {
			return fmt.Errorf("counting cache entries: %w", err)
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
