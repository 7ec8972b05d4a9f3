package datastore

import (
	"fmt"
	"strings"
	"time"

	"github.com/rmoura/notara-go/internal/errors"
	"gorm.io/gorm"
)

// CreateUser inserts a new user record.
func (ds *DataStore) CreateUser(user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return errors.Newf("user email is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	var count int64
	if err := ds.DB.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user email: %w", err)
	}
	if count > 0 {
		return errors.Newf("email already registered: %s", user.Email).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("email", user.Email).
			Build()
	}

	if err := ds.DB.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (ds *DataStore) GetUser(id string) (User, error) {
	return ds.findUser("id = ?", id)
}

// GetUserByEmail retrieves a user by email, case insensitive.
func (ds *DataStore) GetUserByEmail(email string) (User, error) {
	return ds.findUser("email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByPhone retrieves a user by WhatsApp phone number.
func (ds *DataStore) GetUserByPhone(phone string) (User, error) {
	return ds.findUser("phone_number = ?", phone)
}

func (ds *DataStore) findUser(query string, arg any) (User, error) {
	var user User
	if err := ds.DB.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, errors.Newf("user not found").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser saves all mutable fields of an existing user.
func (ds *DataStore) UpdateUser(user *User) error {
	result := ds.DB.Model(&User{}).Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").Updates(user)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("user not found").
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// DeleteUser removes a user and all dependent records.
func (ds *DataStore) DeleteUser(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var noteIDs []string
		if err := tx.Model(&Note{}).Where("user_id = ?", id).Pluck("id", &noteIDs).Error; err != nil {
			return fmt.Errorf("failed to list user notes: %w", err)
		}
		if len(noteIDs) > 0 {
			if err := tx.Where("note_id IN ?", noteIDs).Delete(&Insight{}).Error; err != nil {
				return fmt.Errorf("failed to delete user insights: %w", err)
			}
			if err := tx.Where("note_id IN ?", noteIDs).Delete(&MediaFile{}).Error; err != nil {
				return fmt.Errorf("failed to delete user media: %w", err)
			}
		}
		for _, model := range []any{&Note{}, &Category{}, &Session{}, &UsageLog{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete user records: %w", err)
			}
		}
		result := tx.Where("id = ?", id).Delete(&User{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.Newf("user not found").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil
	})
}

// CreateSession stores a new login session.
func (ds *DataStore) CreateSession(session *Session) error {
	if session.TokenHash == "" {
		return errors.Newf("session token hash is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ds.DB.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSessionByTokenHash returns the active session matching a token hash
// and touches its last access time.
func (ds *DataStore) GetSessionByTokenHash(hash string) (Session, error) {
	var session Session
	err := ds.DB.Where("token_hash = ? AND is_active = ?", hash, true).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, errors.Newf("session not found").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	if err := ds.DB.Model(&Session{}).Where("id = ?", session.ID).
		Update("last_accessed", time.Now()).Error; err != nil {
		GetLogger().Warn("Failed to touch session", "session_id", session.ID, "error", err)
	}
	return session, nil
}

// GetActiveSessions lists a user's active sessions, newest first.
func (ds *DataStore) GetActiveSessions(userID string) ([]Session, error) {
	var sessions []Session
	err := ds.DB.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// DeactivateSession invalidates a session without deleting it.
func (ds *DataStore) DeactivateSession(id string) error {
	result := ds.DB.Model(&Session{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("session not found").
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}
