// Package categorize implements the batch categorization command.
package categorize

import (
	"github.com/spf13/cobra"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/service"
)

// Command creates the categorize command.
func Command(settings *conf.Settings) *cobra.Command {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize a user's uncategorized notes",
		Long:  "Ask the model to assign categories to notes that have none, creating new categories where suggested.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.CategorizeBatch(cmd.Context(), settings, userID, limit)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID whose notes to categorize")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum notes to categorize in one batch")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
