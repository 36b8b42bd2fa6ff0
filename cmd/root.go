// Package cmd defines the scim-console command line interface.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "scim-console",
	Short: "Administrative console for SCIM 2.0 identity servers.",
	Long: `scim-console serves a browser-based admin console for SCIM 2.0 servers:
CRUD for Users, Groups, Roles, and Entitlements, capability discovery via
/ServiceProviderConfig, /ResourceTypes and /Schemas, and a live
request/response log for debugging provisioning integrations.`,
}

// ExecuteContext executes the root command with the given context.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scim-console.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug level logging.")

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("scim-console")
	}

	viper.SetEnvPrefix("SCIMCONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("allowed_targets", "allowed_targets.json")
	viper.SetDefault("log_capacity", 10)

	if err := viper.ReadInConfig(); err == nil {
		slog.Info("Using config file", "file", viper.ConfigFileUsed())
	}
}
