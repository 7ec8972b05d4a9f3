// Package notification delivers daily summaries to operator-configured push
// services (Telegram, Discord, email and anything else shoutrrr routes).
// Delivery is best effort and never blocks the pipeline.
package notification

import (
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/errors"
)

const sendTimeout = 10 * time.Second

// Notifier pushes messages via a shoutrrr service router.
type Notifier struct {
	enabled bool
	urls    []string
	sender  *router.ServiceRouter
}

// New builds a notifier from settings. A disabled notifier is valid and all
// its sends are no-ops.
func New(settings *conf.Settings) (*Notifier, error) {
	n := &Notifier{
		enabled: settings.Notification.Enabled,
		urls:    slices.Clone(settings.Notification.URLs),
	}
	if !n.enabled {
		return n, nil
	}
	if len(n.urls) == 0 {
		return nil, errors.Newf("notification enabled but no URLs configured").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(n.urls...)
	if err != nil {
		// do not echo the URLs back, they can carry tokens
		return nil, errors.Newf("invalid notification URL configuration").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

// Enabled reports whether the notifier will actually send anything.
func (n *Notifier) Enabled() bool {
	return n.enabled && n.sender != nil
}

// Push sends one message to every configured service. The first underlying
// error is returned, sanitized of URLs.
func (n *Notifier) Push(title, message string) error {
	if !n.Enabled() {
		return nil
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	errs := n.sender.Send(message, &params)
	for _, e := range errs {
		if e != nil {
			return errors.Newf("push delivery failed: %v", e).
				Component("notification").
				Category(errors.CategoryMessaging).
				Build()
		}
	}
	return nil
}

// PushDailySummary formats and sends a daily summary notification.
func (n *Notifier) PushDailySummary(date string, noteCount int, summary *chatgpt.DailySummary) error {
	if !n.Enabled() || summary == nil {
		return nil
	}
	return n.Push(fmt.Sprintf("Resumo do dia %s", date), formatDailySummary(noteCount, summary))
}

func formatDailySummary(noteCount int, summary *chatgpt.DailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d anotações registradas.\n\n", noteCount)
	if summary.OverallSummary != "" {
		b.WriteString(summary.OverallSummary)
		b.WriteString("\n")
	}
	if len(summary.MainThemes) > 0 {
		fmt.Fprintf(&b, "\nTemas: %s\n", strings.Join(summary.MainThemes, ", "))
	}
	for _, task := range summary.TasksIdentified {
		fmt.Fprintf(&b, "- %s", task.Task)
		if task.Deadline != "" {
			fmt.Fprintf(&b, " (até %s)", task.Deadline)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
