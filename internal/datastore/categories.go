package datastore

import (
	"fmt"
	"strings"

	"github.com/rmoura/notara-go/internal/errors"
	"gorm.io/gorm"
)

// defaultCategory describes one of the categories seeded for a new user.
type defaultCategory struct {
	Name        string
	Icon        string
	Color       string
	Description string
}

// defaultCategories are seeded on signup, sort order follows slice order.
var defaultCategories = []defaultCategory{
	{"Trabalho", "💼", "#3b82f6", "Anotações relacionadas ao trabalho e carreira"},
	{"Pessoal", "👤", "#10b981", "Anotações pessoais e vida privada"},
	{"Saúde", "🏥", "#ef4444", "Informações sobre saúde e bem-estar"},
	{"Finanças", "💰", "#f59e0b", "Controle financeiro e investimentos"},
	{"Estudos", "📚", "#8b5cf6", "Aprendizado e desenvolvimento pessoal"},
	{"Projetos", "🚀", "#06b6d4", "Projetos pessoais e profissionais"},
	{"Ideias", "💡", "#eab308", "Insights e ideias criativas"},
	{"Lembretes", "⏰", "#f97316", "Tarefas e compromissos importantes"},
}

// CreateCategory inserts a new category. Names are unique per user.
func (ds *DataStore) CreateCategory(category *Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return errors.Newf("category name is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	var count int64
	if err := ds.DB.Model(&Category{}).
		Where("user_id = ? AND name = ?", category.UserID, category.Name).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if count > 0 {
		return errors.Newf("category already exists: %s", category.Name).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("category_name", category.Name).
			Build()
	}

	if category.ParentID != nil {
		if _, err := ds.ownedCategory(*category.ParentID, category.UserID); err != nil {
			return err
		}
	}

	if err := ds.DB.Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by its ID.
func (ds *DataStore) GetCategory(id string) (Category, error) {
	var category Category
	if err := ds.DB.Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Category{}, errors.Newf("category not found: %s", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("category_id", id).
				Build()
		}
		return Category{}, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return category, nil
}

// GetCategoryByName retrieves a user's category by its exact name.
func (ds *DataStore) GetCategoryByName(userID, name string) (Category, error) {
	var category Category
	err := ds.DB.Where("user_id = ? AND name = ?", userID, name).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Category{}, errors.Newf("category not found: %s", name).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("category_name", name).
				Build()
		}
		return Category{}, fmt.Errorf("failed to get category %s: %w", name, err)
	}
	return category, nil
}

// FindOrCreateCategory returns the user's category with the given name,
// creating a system generated one if it does not exist yet. Concurrent
// callers may race the existence check, the second insert then loses on
// the lookup retry.
func (ds *DataStore) FindOrCreateCategory(userID, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.Newf("category name is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	category, err := ds.GetCategoryByName(userID, name)
	if err == nil {
		return category, nil
	}
	if !errors.HasCategory(err, errors.CategoryNotFound) {
		return Category{}, err
	}

	category = Category{
		UserID:            userID,
		Name:              name,
		IsSystemGenerated: true,
	}
	if err := ds.DB.Create(&category).Error; err != nil {
		// another writer may have created it in the meantime
		if existing, lookupErr := ds.GetCategoryByName(userID, name); lookupErr == nil {
			return existing, nil
		}
		return Category{}, fmt.Errorf("failed to create category %s: %w", name, err)
	}
	return category, nil
}

// GetCategories returns all of a user's categories ordered by sort order
// and then name.
func (ds *DataStore) GetCategories(userID string) ([]Category, error) {
	var categories []Category
	err := ds.DB.Where("user_id = ?", userID).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetChildCategories returns the direct children of a category.
func (ds *DataStore) GetChildCategories(parentID string) ([]Category, error) {
	var categories []Category
	err := ds.DB.Where("parent_id = ?", parentID).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get child categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory saves color, icon, description and sort order changes.
// Renames and reparenting go through RenameCategory and ReparentCategory.
func (ds *DataStore) UpdateCategory(category *Category) error {
	result := ds.DB.Model(&Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"color":       category.Color,
			"icon":        category.Icon,
			"description": category.Description,
			"sort_order":  category.SortOrder,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("category not found: %s", category.ID).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("category_id", category.ID).
			Build()
	}
	return nil
}

// ReparentCategory moves a category under a new parent, or to the root when
// newParentID is nil. The move is validated against the current tree before
// anything is written, a rejected move leaves the hierarchy untouched.
func (ds *DataStore) ReparentCategory(id string, newParentID *string) error {
	category, err := ds.GetCategory(id)
	if err != nil {
		return err
	}

	if newParentID != nil {
		if *newParentID == id {
			return errors.Newf("category cannot be its own parent").
				Component("datastore").
				Category(errors.CategoryValidation).
				Context("category_id", id).
				Build()
		}
		parent, err := ds.ownedCategory(*newParentID, category.UserID)
		if err != nil {
			return err
		}

		// walking up from the candidate parent must never reach the moved node
		index, err := ds.categoryIndex(category.UserID)
		if err != nil {
			return err
		}
		for cursor := &parent; cursor != nil; {
			if cursor.ID == id {
				return errors.Newf("move would create a cycle in the category hierarchy").
					Component("datastore").
					Category(errors.CategoryValidation).
					Context("category_id", id).
					Context("new_parent_id", *newParentID).
					Build()
			}
			if cursor.ParentID == nil {
				break
			}
			next, ok := index[*cursor.ParentID]
			if !ok {
				break
			}
			cursor = &next
		}
	}

	err = ds.DB.Model(&Category{}).Where("id = ?", id).Update("parent_id", newParentID).Error
	if err != nil {
		return fmt.Errorf("failed to reparent category: %w", err)
	}
	return nil
}

// RenameCategory renames a category and rewrites the denormalized category
// name on every affected note in the same transaction.
func (ds *DataStore) RenameCategory(id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.Newf("category name is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	category, err := ds.GetCategory(id)
	if err != nil {
		return err
	}
	if category.Name == newName {
		return nil
	}

	var count int64
	err = ds.DB.Model(&Category{}).
		Where("user_id = ? AND name = ? AND id <> ?", category.UserID, newName, id).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if count > 0 {
		return errors.Newf("category name already in use: %s", newName).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("category_name", newName).
			Build()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Category{}).Where("id = ?", id).Update("name", newName).Error; err != nil {
			return fmt.Errorf("failed to rename category: %w", err)
		}
		return renameNoteCategory(tx, category.UserID, category.Name, newName)
	})
}

// DeleteCategory removes a category. Categories with subcategories cannot be
// deleted. Categories holding notes are only deleted with force, which
// detaches those notes first.
func (ds *DataStore) DeleteCategory(id string, force bool) error {
	category, err := ds.GetCategory(id)
	if err != nil {
		return err
	}

	children, err := ds.GetChildCategories(id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errors.Newf("category has %d subcategories, move or delete them first", len(children)).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("category_id", id).
			Build()
	}

	noteCount, err := ds.CountNotesInCategory(category.UserID, category.Name)
	if err != nil {
		return err
	}
	if noteCount > 0 && !force {
		return errors.Newf("category holds %d notes, use force to detach them", noteCount).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("category_id", id).
			Context("note_count", noteCount).
			Build()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if noteCount > 0 {
			err := tx.Model(&Note{}).
				Where("user_id = ? AND category = ?", category.UserID, category.Name).
				Update("category", nil).Error
			if err != nil {
				return fmt.Errorf("failed to detach notes: %w", err)
			}
		}
		if err := tx.Where("id = ?", id).Delete(&Category{}).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

// CreateDefaultCategories seeds a new user's category set. Existing names
// are left alone so the call is safe to repeat.
func (ds *DataStore) CreateDefaultCategories(userID string) ([]Category, error) {
	existing, err := ds.GetCategories(userID)
	if err != nil {
		return nil, err
	}
	existingNames := make(map[string]bool, len(existing))
	for i := range existing {
		existingNames[existing[i].Name] = true
	}

	var created []Category
	for i, def := range defaultCategories {
		if existingNames[def.Name] {
			continue
		}
		category := Category{
			UserID:            userID,
			Name:              def.Name,
			Icon:              def.Icon,
			Color:             def.Color,
			Description:       def.Description,
			SortOrder:         i,
			IsSystemGenerated: true,
		}
		if err := ds.DB.Create(&category).Error; err != nil {
			return created, fmt.Errorf("failed to create default category %s: %w", def.Name, err)
		}
		created = append(created, category)
	}
	return created, nil
}

// CategoryAncestors returns the chain from the direct parent up to the root.
func (ds *DataStore) CategoryAncestors(id string) ([]Category, error) {
	category, err := ds.GetCategory(id)
	if err != nil {
		return nil, err
	}
	index, err := ds.categoryIndex(category.UserID)
	if err != nil {
		return nil, err
	}

	var ancestors []Category
	seen := map[string]bool{id: true}
	for category.ParentID != nil {
		parent, ok := index[*category.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		ancestors = append(ancestors, parent)
		category = parent
	}
	return ancestors, nil
}

// CategoryDescendants returns every category below the given one.
func (ds *DataStore) CategoryDescendants(id string) ([]Category, error) {
	category, err := ds.GetCategory(id)
	if err != nil {
		return nil, err
	}
	all, err := ds.GetCategories(category.UserID)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]Category)
	for i := range all {
		if all[i].ParentID != nil {
			children[*all[i].ParentID] = append(children[*all[i].ParentID], all[i])
		}
	}

	var descendants []Category
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			descendants = append(descendants, child)
			queue = append(queue, child.ID)
		}
	}
	return descendants, nil
}

// CategoryPath returns the full "Parent > Child" path of a category.
func (ds *DataStore) CategoryPath(id string) (string, error) {
	category, err := ds.GetCategory(id)
	if err != nil {
		return "", err
	}
	ancestors, err := ds.CategoryAncestors(id)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		parts = append(parts, ancestors[i].Name)
	}
	parts = append(parts, category.Name)
	return strings.Join(parts, " > "), nil
}

// CountCategoryNotes counts the notes attached to a category, optionally
// including every descendant category.
func (ds *DataStore) CountCategoryNotes(id string, includeSubcategories bool) (int64, error) {
	category, err := ds.GetCategory(id)
	if err != nil {
		return 0, err
	}

	names := []string{category.Name}
	if includeSubcategories {
		descendants, err := ds.CategoryDescendants(id)
		if err != nil {
			return 0, err
		}
		for i := range descendants {
			names = append(names, descendants[i].Name)
		}
	}

	var count int64
	err = ds.DB.Model(&Note{}).
		Where("user_id = ? AND category IN ?", category.UserID, names).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count category notes: %w", err)
	}
	return count, nil
}

// categoryIndex loads a user's categories into a map keyed by ID for
// ancestor walks.
func (ds *DataStore) categoryIndex(userID string) (map[string]Category, error) {
	all, err := ds.GetCategories(userID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]Category, len(all))
	for i := range all {
		index[all[i].ID] = all[i]
	}
	return index, nil
}

// ownedCategory fetches a category and checks it belongs to the given user.
func (ds *DataStore) ownedCategory(id, userID string) (Category, error) {
	category, err := ds.GetCategory(id)
	if err != nil {
		return Category{}, err
	}
	if category.UserID != userID {
		return Category{}, errors.Newf("category not found: %s", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("category_id", id).
			Build()
	}
	return category, nil
}
