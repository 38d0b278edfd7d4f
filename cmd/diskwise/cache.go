package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/diskwise-ai/diskwise/pkg/cache"
	"github.com/diskwise-ai/diskwise/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis result cache",
	}

	openCache := func() (*cache.Manager, error) {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return nil, err
		}
		return cache.New(cfg.Cache)
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			s := m.Stats()
			fmt.Printf("Entries:       %d\n", s.Entries)
			fmt.Printf("Size:          %s\n", formatBytes(s.SizeBytes))
			fmt.Printf("Hits:          %d\n", s.Hits)
			fmt.Printf("Misses:        %d\n", s.Misses)
			fmt.Printf("Evictions:     %d\n", s.Evictions)
			fmt.Printf("Invalidations: %d\n", s.Invalidations)
			fmt.Printf("Hit rate:      %.1f%%\n", s.HitRate*100)
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache contents by age",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			info := m.Info()
			fmt.Printf("Directory: %s\n", info.Directory)
			fmt.Printf("Entries:   %d (%s)\n", info.Entries, formatBytes(info.SizeBytes))
			buckets := make([]string, 0, len(info.EntriesByAge))
			for b := range info.EntriesByAge {
				buckets = append(buckets, b)
			}
			sort.Strings(buckets)
			for _, b := range buckets {
				fmt.Printf("  %-6s %d\n", b, info.EntriesByAge[b])
			}
			return nil
		},
	}

	var path string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Invalidate cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			var n int
			if path != "" {
				n = m.InvalidateFile(path)
				fmt.Printf("Invalidated %d entries containing %s.\n", n, path)
			} else {
				n = m.InvalidateAll()
				fmt.Printf("Cleared %d cache entries.\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().StringVar(&path, "path", "", "only invalidate entries containing this file path")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep expired entries and enforce capacity limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			n := m.Cleanup(true)
			fmt.Printf("Removed %d entries.\n", n)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to diskwise config file")
	cmd.AddCommand(statsCmd, infoCmd, clearCmd, cleanupCmd)
	return cmd
}
