package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rmoura/notara-go/internal/chatgpt"
)

const welcomeMessage = `🤖 Olá! Sou seu assistente de anotações com IA.

Para começar a usar, você precisa se cadastrar no nosso app primeiro.

📱 Baixe o app: [LINK_DO_APP]
🌐 Acesse via web: [LINK_WEB]

Após o cadastro, vincule este número nas configurações para começar a enviar suas anotações!`

func confirmationMessage(noteID string) string {
	short := noteID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf(`✅ Anotação recebida e salva!

🆔 ID: %s...
⏰ Processamento IA iniciado

Você receberá insights organizados em breve no app.`, short)
}

func priorityEmoji(priority string) string {
	switch priority {
	case "alta":
		return "🔴"
	case "baixa":
		return "🟢"
	default:
		return "🟡"
	}
}

// SendDailySummary pushes a formatted daily summary to a user. The send is
// skipped for users without a linked number or WhatsApp opt-in.
func (s *Service) SendDailySummary(ctx context.Context, userID string, summary *chatgpt.DailySummary) bool {
	user, err := s.store.GetUser(userID)
	if err != nil || user.PhoneNumber == nil || !user.WhatsAppOptIn {
		return false
	}

	var sb strings.Builder
	sb.WriteString("📊 *Resumo do seu dia*\n\n")
	sb.WriteString("🎯 *Principais temas:*\n")
	sb.WriteString(strings.Join(summary.MainThemes, ", "))
	sb.WriteString("\n\n✅ *Tarefas identificadas:*\n")

	for i, task := range summary.TasksIdentified {
		if i == 3 {
			fmt.Fprintf(&sb, "... e mais %d tarefas\n", len(summary.TasksIdentified)-3)
			break
		}
		fmt.Fprintf(&sb, "%s %s\n", priorityEmoji(task.Priority), task.Task)
	}

	sb.WriteString("\n💡 *Insights principais:*\n")
	for i, insight := range summary.KeyInsights {
		if i == 2 {
			break
		}
		fmt.Fprintf(&sb, "• %s\n", insight)
	}
	sb.WriteString("\n📱 Veja mais detalhes no app!")

	if err := s.SendText(ctx, *user.PhoneNumber, sb.String()); err != nil {
		logger.Warn("Failed to send daily summary", "user_id", userID, "error", err)
		return false
	}
	return true
}

// SendInsights pushes a note's analysis results to a user. The send is
// skipped for users without a linked number or WhatsApp opt-in.
func (s *Service) SendInsights(ctx context.Context, userID string, analysis *chatgpt.NoteAnalysis) bool {
	user, err := s.store.GetUser(userID)
	if err != nil || user.PhoneNumber == nil || !user.WhatsAppOptIn {
		return false
	}

	category := analysis.CategorySuggestion
	if category == "" {
		category = "Não definida"
	}

	var sb strings.Builder
	sb.WriteString("🤖 *Insights da sua anotação*\n\n")
	fmt.Fprintf(&sb, "📂 *Categoria:* %s\n\n", category)
	fmt.Fprintf(&sb, "📝 *Resumo:* %s\n\n", analysis.Summary)
	fmt.Fprintf(&sb, "🏷️ *Tags:* %s\n\n", strings.Join(analysis.Tags, ", "))
	sb.WriteString("✅ *Ações sugeridas:*\n")

	for i, action := range analysis.ActionItems {
		if i == 2 {
			break
		}
		fmt.Fprintf(&sb, "%s %s\n", priorityEmoji(action.Priority), action.Action)
	}
	sb.WriteString("\n📱 Veja análise completa no app!")

	if err := s.SendText(ctx, *user.PhoneNumber, sb.String()); err != nil {
		logger.Warn("Failed to send insights", "user_id", userID, "error", err)
		return false
	}
	return true
}

// SendReminder pushes a reminder text to a user.
func (s *Service) SendReminder(ctx context.Context, userID, reminderText string) bool {
	user, err := s.store.GetUser(userID)
	if err != nil || user.PhoneNumber == nil || !user.WhatsAppOptIn {
		return false
	}

	message := fmt.Sprintf(`⏰ *Lembrete*

%s

📱 Gerencie seus lembretes no app!`, reminderText)

	if err := s.SendText(ctx, *user.PhoneNumber, message); err != nil {
		logger.Warn("Failed to send reminder", "user_id", userID, "error", err)
		return false
	}
	return true
}
