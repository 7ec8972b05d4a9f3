// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"time"

	"github.com/rmoura/notara-go/internal/conf"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// interface for database operations.
type Interface interface {
	Open() error
	Close() error

	// users
	CreateUser(user *User) error
	GetUser(id string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByPhone(phone string) (User, error)
	UpdateUser(user *User) error
	DeleteUser(id string) error

	// sessions
	CreateSession(session *Session) error
	GetSessionByTokenHash(hash string) (Session, error)
	GetActiveSessions(userID string) ([]Session, error)
	DeactivateSession(id string) error

	// notes
	CreateNote(note *Note) error
	GetNote(id string) (Note, error)
	UpdateNote(note *Note) error
	DeleteNote(id string) error
	SearchNotes(filter NoteFilter) ([]Note, int64, error)
	GetNotesForDay(userID string, start, end time.Time) ([]Note, error)
	GetUncategorizedNotes(userID string, limit int) ([]Note, error)
	GetPendingNotes(userID string, limit int) ([]Note, error)
	GetOtherNotes(userID, excludeNoteID string, limit int) ([]Note, error)
	MarkNoteProcessing(id string) error
	MarkNoteProcessed(id string) error
	MarkNoteFailed(id, reason string) error
	CountNotesByStatus(userID string) (map[string]int64, error)
	CountNotesInCategory(userID, categoryName string) (int64, error)
	DetachNotesFromCategory(userID, categoryName string) error

	// categories
	CreateCategory(category *Category) error
	GetCategory(id string) (Category, error)
	GetCategoryByName(userID, name string) (Category, error)
	FindOrCreateCategory(userID, name string) (Category, error)
	GetCategories(userID string) ([]Category, error)
	GetChildCategories(parentID string) ([]Category, error)
	UpdateCategory(category *Category) error
	ReparentCategory(id string, newParentID *string) error
	RenameCategory(id, newName string) error
	DeleteCategory(id string, force bool) error
	CreateDefaultCategories(userID string) ([]Category, error)
	CategoryAncestors(id string) ([]Category, error)
	CategoryDescendants(id string) ([]Category, error)
	CategoryPath(id string) (string, error)
	CountCategoryNotes(id string, includeSubcategories bool) (int64, error)

	// insights
	CreateInsight(insight *Insight) error
	GetInsight(id string) (Insight, error)
	GetNoteInsights(noteID string, includeDismissed bool) ([]Insight, error)
	DismissInsight(id string) error
	CountInsights(userID string) (int64, error)

	// usage ledger
	LogUsage(entry *UsageLog) error
	DailyUsage(userID, apiType string, dayStart, dayEnd time.Time) (int64, error)
	UsageTotals(userID string) (UsageTotals, error)

	// media
	CreateMediaFile(media *MediaFile) error
	GetNoteMediaFiles(noteID string) ([]MediaFile, error)
}

// NoteFilter describes a paginated note listing query.
type NoteFilter struct {
	UserID   string
	Category string   // exact category name match
	Tags     []string // each tag must appear in the serialized tag list
	Search   string   // content substring
	Sort     string   // "created_at" or "updated_at"
	Order    string   // "asc" or "desc"
	Limit    int
	Offset   int
}

// HasMore reports whether another page exists after this filter's window.
func (f *NoteFilter) HasMore(total int64) bool {
	return int64(f.Offset+f.Limit) < total
}

// UsageTotals aggregates the usage ledger for stats endpoints.
type UsageTotals struct {
	TotalCalls  int64
	TotalTokens int64
	TotalCost   float64
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Database.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Database.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}
