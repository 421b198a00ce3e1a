package main

import (
	"fmt"
	"os"

	"github.com/cuemby/failover/pkg/config"
	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "failover",
	Short: "Failover - DNS failover for CDN edge nodes",
	Long: `Failover keeps the CNAME records of a domain pointed at healthy CDN
edge nodes.

On a cron schedule it lists the domain's records, picks the ones that point
at CDN edge nodes, probes each node over HTTPS with a set of canary
hostnames and enables or disables the record to match the node's health.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Failover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error), overrides the config file")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig reads the configuration named by --config and initializes
// logging from it. Logs go to stderr so command output stays clean.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	levelFlag, _ := cmd.Flags().GetString("log-level")
	jsonFlag, _ := cmd.Flags().GetBool("log-json")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	levelName := cfg.Log.Level
	if levelFlag != "" {
		levelName = levelFlag
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      level,
		JSONOutput: cfg.Log.JSON || jsonFlag,
		Output:     os.Stderr,
	})
	metrics.SetVersion(Version)

	log.Logger.Info().
		Str("config", path).
		Fields(cfg.LogSummary()).
		Msg("Configuration loaded")

	return cfg, nil
}
