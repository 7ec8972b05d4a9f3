package datastore

import (
	"testing"

	"github.com/rmoura/notara-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTestCategory(t *testing.T, ds *DataStore, userID, name string, parentID *string) Category {
	t.Helper()

	category := Category{UserID: userID, Name: name, ParentID: parentID}
	require.NoError(t, ds.CreateCategory(&category))
	return category
}

func TestCreateCategory(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	t.Run("applies defaults", func(t *testing.T) {
		category := seedTestCategory(t, ds, user.ID, "Viagens", nil)
		got, err := ds.GetCategory(category.ID)
		require.NoError(t, err)
		assert.Equal(t, "#6366f1", got.Color)
		assert.Equal(t, "📝", got.Icon)
		assert.False(t, got.IsSystemGenerated)
	})

	t.Run("rejects duplicate name for same user", func(t *testing.T) {
		seedTestCategory(t, ds, user.ID, "Receitas", nil)
		err := ds.CreateCategory(&Category{UserID: user.ID, Name: "Receitas"})
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
	})

	t.Run("same name allowed for different users", func(t *testing.T) {
		other := seedTestUser(t, ds)
		require.NoError(t, ds.CreateCategory(&Category{UserID: other.ID, Name: "Receitas"}))
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		missing := "missing-parent"
		err := ds.CreateCategory(&Category{UserID: user.ID, Name: "Filha", ParentID: &missing})
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
	})
}

func TestFindOrCreateCategory(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	first, err := ds.FindOrCreateCategory(user.ID, "Jardinagem")
	require.NoError(t, err)
	assert.True(t, first.IsSystemGenerated)

	second, err := ds.FindOrCreateCategory(user.ID, "Jardinagem")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, ds.DB.Model(&Category{}).
		Where("user_id = ? AND name = ?", user.ID, "Jardinagem").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReparentCategory(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	root := seedTestCategory(t, ds, user.ID, "Raiz", nil)
	child := seedTestCategory(t, ds, user.ID, "Filha", &root.ID)
	grandchild := seedTestCategory(t, ds, user.ID, "Neta", &child.ID)

	t.Run("moves to a new parent", func(t *testing.T) {
		other := seedTestCategory(t, ds, user.ID, "Outra Raiz", nil)
		require.NoError(t, ds.ReparentCategory(grandchild.ID, &other.ID))

		got, err := ds.GetCategory(grandchild.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, other.ID, *got.ParentID)

		// restore for the remaining subtests
		require.NoError(t, ds.ReparentCategory(grandchild.ID, &child.ID))
	})

	t.Run("moves to root", func(t *testing.T) {
		extra := seedTestCategory(t, ds, user.ID, "Solta", &root.ID)
		require.NoError(t, ds.ReparentCategory(extra.ID, nil))

		got, err := ds.GetCategory(extra.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("rejects self parent", func(t *testing.T) {
		err := ds.ReparentCategory(root.ID, &root.ID)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})

	t.Run("rejects cycle and leaves tree untouched", func(t *testing.T) {
		err := ds.ReparentCategory(root.ID, &grandchild.ID)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

		got, err := ds.GetCategory(root.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})
}

func TestRenameCategoryCascadesToNotes(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	category := seedTestCategory(t, ds, user.ID, "Trabalho", nil)
	name := category.Name
	note := Note{UserID: user.ID, Content: "ata da reunião", Category: &name}
	require.NoError(t, ds.CreateNote(&note))

	require.NoError(t, ds.RenameCategory(category.ID, "Carreira"))

	got, err := ds.GetCategory(category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carreira", got.Name)

	updated, err := ds.GetNote(note.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Carreira", *updated.Category)
}

func TestRenameCategoryRejectsTakenName(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	first := seedTestCategory(t, ds, user.ID, "Primeira", nil)
	seedTestCategory(t, ds, user.ID, "Segunda", nil)

	err := ds.RenameCategory(first.ID, "Segunda")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
}

func TestDeleteCategory(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	t.Run("rejects when subcategories exist", func(t *testing.T) {
		parent := seedTestCategory(t, ds, user.ID, "Pai", nil)
		seedTestCategory(t, ds, user.ID, "Filho", &parent.ID)

		err := ds.DeleteCategory(parent.ID, false)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
	})

	t.Run("rejects when notes attached without force", func(t *testing.T) {
		category := seedTestCategory(t, ds, user.ID, "Com Notas", nil)
		name := category.Name
		require.NoError(t, ds.CreateNote(&Note{UserID: user.ID, Content: "nota presa", Category: &name}))

		err := ds.DeleteCategory(category.ID, false)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
	})

	t.Run("force detaches notes then deletes", func(t *testing.T) {
		category := seedTestCategory(t, ds, user.ID, "Descartável", nil)
		name := category.Name
		note := Note{UserID: user.ID, Content: "nota solta", Category: &name}
		require.NoError(t, ds.CreateNote(&note))

		require.NoError(t, ds.DeleteCategory(category.ID, true))

		_, err := ds.GetCategory(category.ID)
		assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

		updated, err := ds.GetNote(note.ID)
		require.NoError(t, err)
		assert.Nil(t, updated.Category)
	})
}

func TestCreateDefaultCategories(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	created, err := ds.CreateDefaultCategories(user.ID)
	require.NoError(t, err)
	assert.Len(t, created, 8)
	for _, c := range created {
		assert.True(t, c.IsSystemGenerated)
	}

	// repeat call creates nothing new
	again, err := ds.CreateDefaultCategories(user.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := ds.GetCategories(user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

func TestCategoryPathAndAncestors(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	root := seedTestCategory(t, ds, user.ID, "Projetos", nil)
	mid := seedTestCategory(t, ds, user.ID, "Casa", &root.ID)
	leaf := seedTestCategory(t, ds, user.ID, "Reforma", &mid.ID)

	path, err := ds.CategoryPath(leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Projetos > Casa > Reforma", path)

	ancestors, err := ds.CategoryAncestors(leaf.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, mid.ID, ancestors[0].ID)
	assert.Equal(t, root.ID, ancestors[1].ID)
}

func TestCountCategoryNotes(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	parent := seedTestCategory(t, ds, user.ID, "Estudos", nil)
	child := seedTestCategory(t, ds, user.ID, "Idiomas", &parent.ID)

	parentName := parent.Name
	childName := child.Name
	require.NoError(t, ds.CreateNote(&Note{UserID: user.ID, Content: "nota de estudos", Category: &parentName}))
	require.NoError(t, ds.CreateNote(&Note{UserID: user.ID, Content: "aula de alemão", Category: &childName}))

	direct, err := ds.CountCategoryNotes(parent.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), direct)

	withSubs, err := ds.CountCategoryNotes(parent.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), withSubs)
}
