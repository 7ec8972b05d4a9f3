package chatgpt

import "strings"

// Prompts are in Portuguese because the product targets Brazilian users
// and the model answers in the language of its instructions.

const analysisBasePrompt = `Você é um assistente especializado em análise e organização de anotações pessoais.

Analise a anotação fornecida e retorne insights úteis em formato JSON.
`

const analysisSchemaPrompt = `
Retorne um JSON com esta estrutura:
{
    "category_suggestion": "categoria sugerida",
    "tags": ["tag1", "tag2", "tag3"],
    "summary": "resumo em 1-2 frases",
    "key_points": ["ponto1", "ponto2"],
    "action_items": [
        {
            "action": "ação sugerida",
            "priority": "alta|média|baixa"
        }
    ],
    "related_topics": ["tópico1", "tópico2"],
    "sentiment": "positivo|neutro|negativo",
    "confidence_score": 0.85
}`

const categorizationPrompt = `Você é um assistente especializado em organização de informações.

Analise as anotações abaixo e sugira a melhor categoria para cada uma.
Prefira usar categorias existentes quando apropriado, mas pode sugerir novas se necessário.

Retorne um JSON com esta estrutura:
{
    "categorizations": [
        {
            "note_index": 1,
            "suggested_category": "nome_da_categoria",
            "confidence": 0.85,
            "reason": "explicação breve"
        }
    ],
    "new_categories": [
        {
            "name": "nova_categoria",
            "description": "descrição da categoria",
            "suggested_icon": "📝"
        }
    ]
}`

const dailySummaryPrompt = `Você é um assistente especializado em criar resumos organizados.

Analise as anotações do dia e crie um resumo estruturado que inclua:
1. Principais temas abordados
2. Tarefas e compromissos identificados
3. Insights e ideias importantes
4. Sugestões de ações para os próximos dias

Retorne um JSON com esta estrutura:
{
    "summary": {
        "main_themes": ["tema1", "tema2"],
        "tasks_identified": [
            {
                "task": "descrição da tarefa",
                "priority": "alta|média|baixa",
                "suggested_deadline": "YYYY-MM-DD ou null"
            }
        ],
        "key_insights": ["insight1", "insight2"],
        "action_suggestions": ["sugestão1", "sugestão2"],
        "overall_summary": "resumo geral do dia em 2-3 frases"
    }
}`

const taskExtractionPrompt = `Você é um assistente especializado em identificar tarefas e prazos.

Analise o texto e identifique:
1. Tarefas explícitas ou implícitas
2. Datas e prazos mencionados
3. Prioridades sugeridas

Retorne um JSON com esta estrutura:
{
    "tasks": [
        {
            "task": "descrição da tarefa",
            "deadline": "YYYY-MM-DD ou null",
            "priority": "alta|média|baixa",
            "confidence": 0.85
        }
    ],
    "dates_mentioned": [
        {
            "date": "YYYY-MM-DD",
            "context": "contexto da data mencionada"
        }
    ]
}`

// buildAnalysisPrompt customizes the analysis system prompt from user
// preferences. Unknown preference values fall back to the base prompt.
func buildAnalysisPrompt(prefs map[string]any) string {
	var sb strings.Builder
	sb.WriteString(analysisBasePrompt)

	if prefs != nil {
		if areas := preferenceStrings(prefs, "focus_areas"); len(areas) > 0 {
			sb.WriteString("\nFoque especialmente em: " + strings.Join(areas, ", ") + "\n")
		}
		switch prefs["organization_style"] {
		case "detailed":
			sb.WriteString("Forneça análises detalhadas e abrangentes.\n")
		case "concise":
			sb.WriteString("Mantenha as análises concisas e diretas.\n")
		}
	}

	sb.WriteString(analysisSchemaPrompt)
	return sb.String()
}

// preferenceStrings reads a string list preference that may have been
// decoded from JSON as []any.
func preferenceStrings(prefs map[string]any, key string) []string {
	switch value := prefs[key].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
