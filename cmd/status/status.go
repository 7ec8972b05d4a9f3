// Package status implements the queue status command.
package status

import (
	"github.com/spf13/cobra"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/service"
)

// Command creates the status command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show note counts per processing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.Status(settings)
		},
	}
}
