// Package summary implements the daily summary command.
package summary

import (
	"github.com/spf13/cobra"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/service"
)

// Command creates the summary command.
func Command(settings *conf.Settings) *cobra.Command {
	var userID string
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate a user's daily note summary",
		Long:  "Summarize one day of notes and deliver the result over the configured channels.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.DailySummary(cmd.Context(), settings, userID, date)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to summarize notes for")
	cmd.Flags().StringVar(&date, "date", "", "Day to summarize as YYYY-MM-DD, today when omitted")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
