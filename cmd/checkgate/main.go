package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	logLevel   string
	logFormat  string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "checkgate",
	Short: "Wait for the other check runs on a commit before continuing",
	Long: `Checkgate polls the check runs of a commit and blocks until they have all
finished. It exits 0 when every run passed (or there was nothing to wait on)
and 1 when a run failed, the wait budget ran out or the API could not be read.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console or json)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: nearest .checkgate.yml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
