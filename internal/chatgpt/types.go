// Package chatgpt provides a client for the OpenAI chat completions API,
// used for note analysis, categorization, task extraction and daily summaries.
package chatgpt

import "time"

// Config holds configuration for the ChatGPT client
type Config struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
	RateLimitMS int           `json:"rate_limit_ms"` // Milliseconds between requests
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		MaxTokens:   1000,
		Timeout:     30 * time.Second,
		RateLimitMS: 500,
	}
}

// Usage reports the token consumption and estimated cost of one API call.
type Usage struct {
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
}

// ActionItem is a suggested follow-up action from a note analysis.
type ActionItem struct {
	Action   string `json:"action"`
	Priority string `json:"priority"` // alta, média or baixa
}

// NoteAnalysis is the structured result of analyzing a single note.
type NoteAnalysis struct {
	CategorySuggestion string       `json:"category_suggestion"`
	Tags               []string     `json:"tags"`
	Summary            string       `json:"summary"`
	KeyPoints          []string     `json:"key_points"`
	ActionItems        []ActionItem `json:"action_items"`
	RelatedTopics      []string     `json:"related_topics"`
	Sentiment          string       `json:"sentiment"` // positivo, neutro or negativo
	ConfidenceScore    float64      `json:"confidence_score"`
}

// NoteRef is the minimal note view fed into batch categorization.
type NoteRef struct {
	ID      string
	Content string
}

// Categorization is the suggested category for one note in a batch,
// NoteIndex is 1-based and refers to the order the notes were submitted.
type Categorization struct {
	NoteIndex         int     `json:"note_index"`
	SuggestedCategory string  `json:"suggested_category"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason"`
}

// NewCategory is a category the model proposes creating.
type NewCategory struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SuggestedIcon string `json:"suggested_icon"`
}

// CategorizationResult holds the batch categorization output.
type CategorizationResult struct {
	Categorizations []Categorization `json:"categorizations"`
	NewCategories   []NewCategory    `json:"new_categories"`
}

// TaskItem is a task extracted from note content.
type TaskItem struct {
	Task       string  `json:"task"`
	Deadline   string  `json:"deadline"` // YYYY-MM-DD or empty
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

// DateMention is a date the model spotted in the text.
type DateMention struct {
	Date    string `json:"date"`
	Context string `json:"context"`
}

// TaskExtraction holds the task extraction output.
type TaskExtraction struct {
	Tasks          []TaskItem    `json:"tasks"`
	DatesMentioned []DateMention `json:"dates_mentioned"`
}

// DailySummary is the structured summary of one day's notes.
type DailySummary struct {
	MainThemes        []string   `json:"main_themes"`
	TasksIdentified   []TaskItem `json:"tasks_identified"`
	KeyInsights       []string   `json:"key_insights"`
	ActionSuggestions []string   `json:"action_suggestions"`
	OverallSummary    string     `json:"overall_summary"`
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}
