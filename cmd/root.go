// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rmoura/notara-go/cmd/categorize"
	"github.com/rmoura/notara-go/cmd/process"
	"github.com/rmoura/notara-go/cmd/serve"
	"github.com/rmoura/notara-go/cmd/status"
	"github.com/rmoura/notara-go/cmd/summary"
	"github.com/rmoura/notara-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "notara",
		Short:   "Notara note service CLI",
		Version: version,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, version),
		process.Command(settings),
		summary.Command(settings),
		categorize.Command(settings),
		status.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that apply to every subcommand.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}
