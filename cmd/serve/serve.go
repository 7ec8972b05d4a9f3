// Package serve implements the HTTP API server command.
package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/service"
)

// Command creates the serve command.
func Command(settings *conf.Settings, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Start the Notara API, serving notes, categories, AI processing and the WhatsApp webhook.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.Serve(settings, version)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Server.Host, "host", viper.GetString("server.host"), "Address to listen on")
	cmd.Flags().StringVar(&settings.Server.Port, "port", viper.GetString("server.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}
