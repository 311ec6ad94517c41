package main

import (
	"fmt"
	"os"

	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "vodcat",
		Short: "VOD catalog engine - resolve and deduplicate scraped listings",
		Long: `vodcat ingests catalog listings scraped from VOD platforms and resolves
each one to a canonical movie or series entity. The same title scraped
from several platforms ends up as one entity with multiple source
listings, deduplicated by external id, exact key, or fuzzy title match.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/example.yaml)")
	rootCmd.PersistentFlags().String("db", "vod-catalog.db", "catalog database file")
	rootCmd.PersistentFlags().String("cache-db", "vod-cache.db", "identity cache database file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("cache.db", rootCmd.PersistentFlags().Lookup("cache-db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("example")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("concurrency", 8)
	viper.SetDefault("cache.ttl", "2h")
	viper.SetDefault("candidates.bound", 100)
	viper.SetDefault("match.threshold", 0.85)
	viper.SetDefault("match.tie_margin", 0.05)
	viper.SetDefault("match.year_tolerance", 1)
	viper.SetDefault("run.interval", "1h")
	viper.SetDefault("serve.addr", ":8080")

	// Read in environment variables that match
	viper.SetEnvPrefix("VODCAT")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
