// model.go this code defines the data model for the application
package datastore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription tiers.
const (
	SubscriptionFree         = "free"
	SubscriptionPremium      = "premium"
	SubscriptionPremiumTrial = "premium_trial"
)

// Note sources.
const (
	SourceApp      = "app"
	SourceWhatsApp = "whatsapp"
	SourceWeb      = "web"
	SourceTest     = "test"
)

// Note processing statuses. The pipeline drives pending -> processing ->
// processed|failed; a settled note can be claimed again by a new run.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// API types recorded in the usage ledger.
const (
	APITypeChatGPT    = "chatgpt"
	APITypePerplexity = "perplexity"
)

// User represents an account that owns notes, categories, sessions and usage records.
type User struct {
	ID                 string  `gorm:"type:varchar(36);primaryKey"`
	Email              string  `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"`
	PhoneNumber        *string `gorm:"type:varchar(20);uniqueIndex"`
	Name               string  `gorm:"type:varchar(100)"`
	SubscriptionStatus string  `gorm:"type:varchar(20);not null;default:free"`
	Preferences        string  `gorm:"type:text;not null;default:'{}'"`
	TrialUsed          bool    `gorm:"not null;default:false"`
	WhatsAppOptIn      bool    `gorm:"not null;default:false"`
	IsActive           bool    `gorm:"not null;default:true"`
	EmailVerified      bool    `gorm:"not null;default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Notes      []Note     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Categories []Category `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Sessions   []Session  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	UsageLogs  []UsageLog `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsPremium reports whether the user has an active paid or trial subscription.
func (u *User) IsPremium() bool {
	return u.SubscriptionStatus == SubscriptionPremium || u.SubscriptionStatus == SubscriptionPremiumTrial
}

// GetPreferences returns the preference bag as a map. Malformed JSON yields an empty map.
func (u *User) GetPreferences() map[string]any {
	var prefs map[string]any
	if err := json.Unmarshal([]byte(u.Preferences), &prefs); err != nil {
		return map[string]any{}
	}
	return prefs
}

// SetPreferences serializes the preference bag.
func (u *User) SetPreferences(prefs map[string]any) {
	data, err := json.Marshal(prefs)
	if err != nil {
		u.Preferences = "{}"
		return
	}
	u.Preferences = string(data)
}

// Session is an opaque login token record. Tokens are stored hashed.
type Session struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	UserID       string `gorm:"type:varchar(36);index;not null"`
	TokenHash    string `gorm:"type:varchar(255);index;not null"`
	ExpiresAt    time.Time
	LastAccessed time.Time
	DeviceInfo   string `gorm:"type:text;not null;default:'{}'"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Category is a per-user named node in a forest. The parent chain must never
// contain a cycle; ReparentCategory enforces this.
type Category struct {
	ID                string  `gorm:"type:varchar(36);primaryKey"`
	UserID            string  `gorm:"type:varchar(36);index;not null"`
	Name              string  `gorm:"type:varchar(100);index;not null"`
	ParentID          *string `gorm:"type:varchar(36)"`
	Color             string  `gorm:"type:varchar(7);not null;default:'#6366f1'"`
	Icon              string  `gorm:"type:varchar(50);not null;default:'📝'"`
	SortOrder         int     `gorm:"not null;default:0"`
	Description       string  `gorm:"type:text"`
	IsSystemGenerated bool    `gorm:"not null;default:false"`
	CreatedAt         time.Time
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Note is a free-text record. Category is a denormalized category name, not a
// foreign key: renaming a category cascades a bulk update across notes.
type Note struct {
	ID                string     `gorm:"type:varchar(36);primaryKey"`
	UserID            string     `gorm:"type:varchar(36);index;not null"`
	Content           string     `gorm:"type:text;not null"`
	Source            string     `gorm:"type:varchar(20);not null;default:app"`
	Category          *string    `gorm:"type:varchar(100);index"`
	Tags              string     `gorm:"type:text;not null;default:'[]'"`
	Status            string     `gorm:"type:varchar(20);not null;default:pending"`
	AIProcessedAt     *time.Time `gorm:"column:ai_processed_at"`
	DeadlineSuggested *time.Time
	RelatedNotes      string    `gorm:"type:text;not null;default:'[]'"`
	Metadata          string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time

	Insights   []Insight   `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	MediaFiles []MediaFile `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Tags == "" {
		n.Tags = "[]"
	}
	if n.RelatedNotes == "" {
		n.RelatedNotes = "[]"
	}
	if n.Metadata == "" {
		n.Metadata = "{}"
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.Source == "" {
		n.Source = SourceApp
	}
	return nil
}

// GetTags returns the tag list. Malformed JSON yields an empty list.
func (n *Note) GetTags() []string {
	var tags []string
	if err := json.Unmarshal([]byte(n.Tags), &tags); err != nil {
		return []string{}
	}
	return tags
}

// SetTags replaces the tag list wholesale.
func (n *Note) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		n.Tags = "[]"
		return
	}
	n.Tags = string(data)
}

// GetRelatedNotes returns the related note id list.
func (n *Note) GetRelatedNotes() []string {
	var ids []string
	if err := json.Unmarshal([]byte(n.RelatedNotes), &ids); err != nil {
		return []string{}
	}
	return ids
}

// SetRelatedNotes replaces the related note id list.
func (n *Note) SetRelatedNotes(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		n.RelatedNotes = "[]"
		return
	}
	n.RelatedNotes = string(data)
}

// GetMetadata returns the metadata bag.
func (n *Note) GetMetadata() map[string]any {
	var meta map[string]any
	if err := json.Unmarshal([]byte(n.Metadata), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}

// SetMetadata serializes the metadata bag.
func (n *Note) SetMetadata(meta map[string]any) {
	data, err := json.Marshal(meta)
	if err != nil {
		n.Metadata = "{}"
		return
	}
	n.Metadata = string(data)
}

// UpdateMetadata sets a single key in the metadata bag.
func (n *Note) UpdateMetadata(key string, value any) {
	meta := n.GetMetadata()
	meta[key] = value
	n.SetMetadata(meta)
}

// Title derives a short title from the content, truncated at a word boundary.
func (n *Note) Title() string {
	return truncateAtWord(n.Content, 50)
}

// Preview derives a content preview, truncated at a word boundary.
func (n *Note) Preview() string {
	return truncateAtWord(n.Content, 150)
}

func truncateAtWord(content string, maxLength int) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return ""
	}
	if len(clean) <= maxLength {
		return clean
	}
	truncated := clean[:maxLength]
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}

// Insight is a typed, confidence-scored annotation attached to a note.
// The type is an open-ended string; well-known values below.
type Insight struct {
	ID              string  `gorm:"type:varchar(36);primaryKey"`
	UserID          string  `gorm:"type:varchar(36);index;not null"`
	NoteID          string  `gorm:"type:varchar(36);index;not null"`
	InsightType     string  `gorm:"type:varchar(50);not null"`
	Content         string  `gorm:"type:text;not null"`
	ConfidenceScore float64 `gorm:"not null;default:0"`
	IsDismissed     bool    `gorm:"not null;default:false"`
	Metadata        string  `gorm:"type:text;not null;default:'{}'"`
	CreatedAt       time.Time
}

// Well-known insight types.
const (
	InsightSummary      = "summary"
	InsightAction       = "action"
	InsightConnection   = "connection"
	InsightTask         = "task"
	InsightExternalInfo = "external_info"
)

func (i *Insight) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Metadata == "" {
		i.Metadata = "{}"
	}
	return nil
}

// GetMetadata returns the insight metadata bag.
func (i *Insight) GetMetadata() map[string]any {
	var meta map[string]any
	if err := json.Unmarshal([]byte(i.Metadata), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}

// SetMetadata serializes the insight metadata bag.
func (i *Insight) SetMetadata(meta map[string]any) {
	data, err := json.Marshal(meta)
	if err != nil {
		i.Metadata = "{}"
		return
	}
	i.Metadata = string(data)
}

// UsageLog is one append-only record of an external API call.
type UsageLog struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	UserID     string    `gorm:"type:varchar(36);index;not null"`
	APIType    string    `gorm:"type:varchar(50);not null"`
	Endpoint   string    `gorm:"type:varchar(100)"`
	TokensUsed int       `gorm:"not null;default:0"`
	Cost       float64   `gorm:"not null;default:0"`
	Metadata   string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt  time.Time `gorm:"index"`
}

func (l *UsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Metadata == "" {
		l.Metadata = "{}"
	}
	return nil
}

// MediaFile stores attachment metadata for a note. Media content itself is
// not processed; ExtractedText is a placeholder for OCR/transcription output.
type MediaFile struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	NoteID        string `gorm:"type:varchar(36);index;not null"`
	FileName      string `gorm:"type:varchar(255);not null"`
	FileType      string `gorm:"type:varchar(50);not null"`
	FilePath      string `gorm:"type:varchar(500);not null"`
	FileSize      int64  `gorm:"not null"`
	MimeType      string `gorm:"type:varchar(100);not null"`
	ExtractedText string `gorm:"type:text"`
	Metadata      string `gorm:"type:text;not null;default:'{}'"`
	CreatedAt     time.Time
}

func (m *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Metadata == "" {
		m.Metadata = "{}"
	}
	return nil
}
