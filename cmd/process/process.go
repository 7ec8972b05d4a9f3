// Package process implements the pending note batch command.
package process

import (
	"github.com/spf13/cobra"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/service"
)

// Command creates the process command.
func Command(settings *conf.Settings) *cobra.Command {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process pending notes through the AI pipeline",
		Long:  "Run analysis, external search and task extraction over queued notes. Without --user the whole backlog is processed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.ProcessPending(cmd.Context(), settings, userID, limit)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Only process notes belonging to this user ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum notes to process, 0 for no limit")

	return cmd
}
