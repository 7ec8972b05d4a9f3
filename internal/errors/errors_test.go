package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestErrorBuilder_Build(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("note not found")
	err := New(cause).
		Component("datastore").
		Category(CategoryNotFound).
		Context("note_id", "abc-123").
		Build()

	assert.Equal(t, "note not found", err.Error())
	assert.Equal(t, "datastore", err.Component)
	assert.Equal(t, CategoryNotFound, err.Category)
	assert.Equal(t, "abc-123", err.GetContext()["note_id"])
	assert.False(t, err.Timestamp.IsZero())
	assert.True(t, Is(err, cause))
}

func TestErrorBuilder_Defaults(t *testing.T) {
	t.Parallel()

	err := Newf("something %s", "broke").Build()

	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Nil(t, err.GetContext())
}

func TestHasCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		want     bool
	}{
		{
			name:     "matching category",
			err:      Newf("daily limit reached").Category(CategoryLimit).Build(),
			category: CategoryLimit,
			want:     true,
		},
		{
			name:     "non-matching category",
			err:      Newf("daily limit reached").Category(CategoryLimit).Build(),
			category: CategoryNotFound,
			want:     false,
		},
		{
			name:     "plain error",
			err:      stderrors.New("plain"),
			category: CategoryGeneric,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasCategory(tt.err, tt.category))
		})
	}
}

func TestEnhancedError_Is_MatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("quota reached").Category(CategoryLimit).Build()
	b := Newf("different message").Category(CategoryLimit).Build()

	assert.True(t, stderrors.Is(a, b))
}

func TestEnhancedError_ContextCopy(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Context("key", "value").Build()

	ctx := err.GetContext()
	require.NotNil(t, ctx)
	ctx["key"] = "mutated"

	assert.Equal(t, "value", err.GetContext()["key"])
}
