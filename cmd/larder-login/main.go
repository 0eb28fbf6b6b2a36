package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
)

var (
	configFiles []string
	logLevel    string

	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "larder-login",
	Short: "Capture an Amazon session and hand it to the larder server",
	Long: `larder-login opens a browser for a human Amazon login, reads the resulting
session cookies and delivers them to the larder server (or writes them locally).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = common.LoadFromFiles(configFiles...)
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		logger = common.NewQuietLogger(logLevel)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("larder-login version %s\n", common.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(captureCmd, pushCmd, migrateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
