// Package cmd assembles the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aquatrace/aquatrace-go/cmd/catalog"
	"github.com/aquatrace/aquatrace-go/cmd/serve"
	"github.com/aquatrace/aquatrace-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aquatrace",
		Short: "AquaTrace marine species identification service",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		catalog.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the web server")
	rootCmd.PersistentFlags().Float64VarP(&settings.Identify.Threshold, "threshold", "t", viper.GetFloat64("identify.threshold"), "Confidence threshold below which the fallback identifier engages, value between 0.0 and 1.0")
	rootCmd.PersistentFlags().StringVar(&settings.Identify.UploadPath, "uploadpath", viper.GetString("identify.uploadpath"), "Directory for stored upload images")
	rootCmd.PersistentFlags().StringVar(&settings.Species.CatalogPath, "catalog", viper.GetString("species.catalogpath"), "Path to a species catalog file, empty for the embedded catalog")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
