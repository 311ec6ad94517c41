package main

import (
	"context"
	"fmt"

	"github.com/arman/vod-catalog/internal/idcache"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the identity cache",
	Long: `The identity cache speeds up repeated resolutions. It is advisory only:
clearing it never loses catalog data, the next ingestion just resolves
against the database again.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show identity cache counters",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE:  runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCacheStrict() (*idcache.Cache, error) {
	cache, err := idcache.Open(viper.GetString("cache.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open identity cache: %w", err)
	}
	return cache, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	cache, err := openCacheStrict()
	if err != nil {
		return err
	}
	defer cache.Close()

	entries, hits, err := cache.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Cache: %s\n\n", cache.Path())
	fmt.Printf("  Entries:    %d\n", entries)
	fmt.Printf("  Total hits: %d\n", hits)
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	cache, err := openCacheStrict()
	if err != nil {
		return err
	}
	defer cache.Close()

	removed, err := cache.Prune(context.Background())
	if err != nil {
		return err
	}
	util.SuccessLog("Pruned %d expired entries", removed)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	cache, err := openCacheStrict()
	if err != nil {
		return err
	}
	defer cache.Close()

	if err := cache.Clear(context.Background()); err != nil {
		return err
	}
	util.SuccessLog("Identity cache cleared")
	return nil
}
