package api

import (
	"time"

	"github.com/rmoura/notara-go/internal/datastore"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                 string         `json:"id"`
	Email              string         `json:"email"`
	Name               string         `json:"name"`
	PhoneNumber        *string        `json:"phone_number"`
	SubscriptionStatus string         `json:"subscription_status"`
	Preferences        map[string]any `json:"preferences"`
	TrialUsed          bool           `json:"trial_used"`
	WhatsAppOptIn      bool           `json:"whatsapp_opt_in"`
	IsActive           bool           `json:"is_active"`
	EmailVerified      bool           `json:"email_verified"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func userResponse(user *datastore.User) UserResponse {
	return UserResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		PhoneNumber:        user.PhoneNumber,
		SubscriptionStatus: user.SubscriptionStatus,
		Preferences:        user.GetPreferences(),
		TrialUsed:          user.TrialUsed,
		WhatsAppOptIn:      user.WhatsAppOptIn,
		IsActive:           user.IsActive,
		EmailVerified:      user.EmailVerified,
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}
}

// NoteResponse is the public view of a note. Content is omitted when the
// caller asked for a listing without bodies.
type NoteResponse struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Content           string            `json:"content,omitempty"`
	Source            string            `json:"source"`
	Category          *string           `json:"category"`
	Tags              []string          `json:"tags"`
	Status            string            `json:"status"`
	AIProcessedAt     *time.Time        `json:"ai_processed_at"`
	DeadlineSuggested *time.Time        `json:"deadline_suggested"`
	RelatedNotes      []string          `json:"related_notes"`
	Metadata          map[string]any    `json:"metadata"`
	Title             string            `json:"title"`
	Preview           string            `json:"preview"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Insights          []InsightResponse `json:"insights,omitempty"`
}

func noteResponse(note *datastore.Note, includeContent bool) NoteResponse {
	resp := NoteResponse{
		ID:                note.ID,
		UserID:            note.UserID,
		Source:            note.Source,
		Category:          note.Category,
		Tags:              note.GetTags(),
		Status:            note.Status,
		AIProcessedAt:     note.AIProcessedAt,
		DeadlineSuggested: note.DeadlineSuggested,
		RelatedNotes:      note.GetRelatedNotes(),
		Metadata:          note.GetMetadata(),
		Title:             note.Title(),
		Preview:           note.Preview(),
		CreatedAt:         note.CreatedAt,
		UpdatedAt:         note.UpdatedAt,
	}
	if includeContent {
		resp.Content = note.Content
	}
	for i := range note.Insights {
		resp.Insights = append(resp.Insights, insightResponse(&note.Insights[i]))
	}
	return resp
}

// InsightResponse is the public view of an insight.
type InsightResponse struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	NoteID          string         `json:"note_id"`
	InsightType     string         `json:"insight_type"`
	Content         string         `json:"content"`
	ConfidenceScore float64        `json:"confidence_score"`
	IsDismissed     bool           `json:"is_dismissed"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
}

func insightResponse(insight *datastore.Insight) InsightResponse {
	return InsightResponse{
		ID:              insight.ID,
		UserID:          insight.UserID,
		NoteID:          insight.NoteID,
		InsightType:     insight.InsightType,
		Content:         insight.Content,
		ConfidenceScore: insight.ConfidenceScore,
		IsDismissed:     insight.IsDismissed,
		Metadata:        insight.GetMetadata(),
		CreatedAt:       insight.CreatedAt,
	}
}

// CategoryResponse is the public view of a category, optionally with the
// resolved hierarchy attached.
type CategoryResponse struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	Name              string             `json:"name"`
	ParentID          *string            `json:"parent_id"`
	Color             string             `json:"color"`
	Icon              string             `json:"icon"`
	SortOrder         int                `json:"sort_order"`
	Description       string             `json:"description"`
	IsSystemGenerated bool               `json:"is_system_generated"`
	CreatedAt         time.Time          `json:"created_at"`
	FullPath          string             `json:"full_path,omitempty"`
	NoteCount         int64              `json:"note_count,omitempty"`
	Subcategories     []CategoryResponse `json:"subcategories,omitempty"`
}

func categoryResponse(category *datastore.Category) CategoryResponse {
	return CategoryResponse{
		ID:                category.ID,
		UserID:            category.UserID,
		Name:              category.Name,
		ParentID:          category.ParentID,
		Color:             category.Color,
		Icon:              category.Icon,
		SortOrder:         category.SortOrder,
		Description:       category.Description,
		IsSystemGenerated: category.IsSystemGenerated,
		CreatedAt:         category.CreatedAt,
	}
}

// categoryTree assembles the per-user hierarchy from the flat list: roots
// ordered as stored, children nested under their parents.
func categoryTree(categories []datastore.Category) []CategoryResponse {
	children := make(map[string][]datastore.Category)
	var roots []datastore.Category
	for i := range categories {
		if categories[i].ParentID == nil {
			roots = append(roots, categories[i])
			continue
		}
		children[*categories[i].ParentID] = append(children[*categories[i].ParentID], categories[i])
	}

	var build func(category *datastore.Category) CategoryResponse
	build = func(category *datastore.Category) CategoryResponse {
		resp := categoryResponse(category)
		for i := range children[category.ID] {
			resp.Subcategories = append(resp.Subcategories, build(&children[category.ID][i]))
		}
		return resp
	}

	tree := make([]CategoryResponse, 0, len(roots))
	for i := range roots {
		tree = append(tree, build(&roots[i]))
	}
	return tree
}
