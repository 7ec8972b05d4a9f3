package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
)

func TestNewDisabled(t *testing.T) {
	n, err := New(&conf.Settings{})
	require.NoError(t, err)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Push("título", "mensagem"))
}

func TestNewEnabledWithoutURLs(t *testing.T) {
	settings := &conf.Settings{}
	settings.Notification.Enabled = true

	_, err := New(settings)
	assert.Error(t, err)
}

func TestNewInvalidURL(t *testing.T) {
	settings := &conf.Settings{}
	settings.Notification.Enabled = true
	settings.Notification.URLs = []string{"not-a-shoutrrr-url"}

	_, err := New(settings)
	assert.Error(t, err)
}

func TestFormatDailySummary(t *testing.T) {
	summary := &chatgpt.DailySummary{
		OverallSummary: "Dia focado em planejamento.",
		MainThemes:     []string{"trabalho", "finanças"},
		TasksIdentified: []chatgpt.TaskItem{
			{Task: "Enviar relatório", Deadline: "2026-09-02"},
			{Task: "Ligar para o banco"},
		},
	}

	text := formatDailySummary(3, summary)
	assert.Contains(t, text, "3 anotações registradas.")
	assert.Contains(t, text, "Dia focado em planejamento.")
	assert.Contains(t, text, "Temas: trabalho, finanças")
	assert.Contains(t, text, "- Enviar relatório (até 2026-09-02)")
	assert.Contains(t, text, "- Ligar para o banco")
}
