package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/k3a/html2text"
	"github.com/labstack/echo/v4"

	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
)

const (
	defaultNoteLimit = 20
	maxNoteLimit     = 100
)

func (c *Controller) initNoteRoutes() {
	notes := c.Group.Group("/notes", c.AuthMiddleware)
	notes.GET("", c.ListNotes)
	notes.POST("", c.CreateNote)
	notes.GET("/:id", c.GetNote)
	notes.PUT("/:id", c.UpdateNote)
	notes.DELETE("/:id", c.DeleteNote)
	notes.GET("/:id/insights", c.GetNoteInsights)

	insights := c.Group.Group("/insights", c.AuthMiddleware)
	insights.POST("/:id/dismiss", c.DismissInsight)
}

// ownedNote loads a note and checks it belongs to the authenticated user.
func (c *Controller) ownedNote(ctx echo.Context, id string) (datastore.Note, bool) {
	user := currentUser(ctx)
	note, err := c.DS.GetNote(id)
	if err != nil || note.UserID != user.ID {
		return datastore.Note{}, false
	}
	return note, true
}

// ListNotes returns a filtered, paginated page of the user's notes.
func (c *Controller) ListNotes(ctx echo.Context) error {
	user := currentUser(ctx)

	limit := queryInt(ctx, "limit", defaultNoteLimit)
	if limit < 1 {
		limit = defaultNoteLimit
	}
	if limit > maxNoteLimit {
		limit = maxNoteLimit
	}
	offset := queryInt(ctx, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	filter := datastore.NoteFilter{
		UserID:   user.ID,
		Category: ctx.QueryParam("category"),
		Search:   ctx.QueryParam("search"),
		Sort:     ctx.QueryParam("sort"),
		Order:    ctx.QueryParam("order"),
		Limit:    limit,
		Offset:   offset,
	}
	if tags := strings.TrimSpace(ctx.QueryParam("tags")); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	notes, total, err := c.DS.SearchNotes(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar anotações", http.StatusInternalServerError)
	}

	includeContent := queryBool(ctx, "include_content")
	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, noteResponse(&notes[i], includeContent))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notes": out,
		"pagination": map[string]any{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"has_more": filter.HasMore(total),
		},
	})
}

type createNoteRequest struct {
	Content  string         `json:"content"`
	Category string         `json:"category"`
	Tags     []string       `json:"tags"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

// CreateNote stores a new pending note. Web-sourced content is reduced to
// plain text before storage.
func (c *Controller) CreateNote(ctx echo.Context) error {
	user := currentUser(ctx)

	var req createNoteRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.HandleError(ctx, nil, "Conteúdo é obrigatório", http.StatusBadRequest)
	}

	content := strings.TrimSpace(req.Content)
	if req.Source == datastore.SourceWeb {
		content = strings.TrimSpace(html2text.HTML2Text(content))
		if content == "" {
			return c.HandleError(ctx, nil, "Conteúdo é obrigatório", http.StatusBadRequest)
		}
	}

	note := datastore.Note{
		UserID:  user.ID,
		Content: content,
	}
	if req.Source != "" {
		note.Source = req.Source
	}
	if req.Tags != nil {
		note.SetTags(req.Tags)
	}
	if req.Metadata != nil {
		note.SetMetadata(req.Metadata)
	}
	if name := strings.TrimSpace(req.Category); name != "" {
		category, err := c.DS.FindOrCreateCategory(user.ID, name)
		if err != nil {
			return c.HandleError(ctx, err, "Erro ao criar categoria", http.StatusInternalServerError)
		}
		note.Category = &category.Name
	}

	if err := c.DS.CreateNote(&note); err != nil {
		return c.HandleError(ctx, err, "Erro ao criar anotação", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message": "Anotação criada com sucesso",
		"note":    noteResponse(&note, true),
	})
}

// GetNote returns a single note with its full content.
func (c *Controller) GetNote(ctx echo.Context) error {
	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	if queryBool(ctx, "include_insights") {
		insights, err := c.DS.GetNoteInsights(note.ID, false)
		if err != nil {
			return c.HandleError(ctx, err, "Erro ao buscar insights", http.StatusInternalServerError)
		}
		note.Insights = insights
	}

	return ctx.JSON(http.StatusOK, map[string]any{"note": noteResponse(&note, true)})
}

type updateNoteRequest struct {
	Content  *string        `json:"content"`
	Category *string        `json:"category"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
}

// UpdateNote applies a partial update. Metadata keys are merged, not
// replaced wholesale.
func (c *Controller) UpdateNote(ctx echo.Context) error {
	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	var req updateNoteRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, nil, "Requisição inválida", http.StatusBadRequest)
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return c.HandleError(ctx, nil, "Conteúdo é obrigatório", http.StatusBadRequest)
		}
		note.Content = content
	}
	if req.Category != nil {
		if name := strings.TrimSpace(*req.Category); name == "" {
			note.Category = nil
		} else {
			category, err := c.DS.FindOrCreateCategory(note.UserID, name)
			if err != nil {
				return c.HandleError(ctx, err, "Erro ao criar categoria", http.StatusInternalServerError)
			}
			note.Category = &category.Name
		}
	}
	if req.Tags != nil {
		note.SetTags(req.Tags)
	}
	for key, value := range req.Metadata {
		note.UpdateMetadata(key, value)
	}

	if err := c.DS.UpdateNote(&note); err != nil {
		return c.HandleError(ctx, err, "Erro ao atualizar anotação", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Anotação atualizada com sucesso",
		"note":    noteResponse(&note, true),
	})
}

// DeleteNote removes a note and its insights.
func (c *Controller) DeleteNote(ctx echo.Context) error {
	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	if err := c.DS.DeleteNote(note.ID); err != nil {
		return c.HandleError(ctx, err, "Erro ao remover anotação", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"message": "Anotação removida com sucesso"})
}

// GetNoteInsights lists a note's insights, optionally including dismissed
// ones.
func (c *Controller) GetNoteInsights(ctx echo.Context) error {
	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	insights, err := c.DS.GetNoteInsights(note.ID, queryBool(ctx, "include_dismissed"))
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar insights", http.StatusInternalServerError)
	}

	out := make([]InsightResponse, 0, len(insights))
	for i := range insights {
		out = append(out, insightResponse(&insights[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"insights": out, "total": len(out)})
}

// DismissInsight marks an insight as dismissed.
func (c *Controller) DismissInsight(ctx echo.Context) error {
	user := currentUser(ctx)

	insight, err := c.DS.GetInsight(ctx.Param("id"))
	if err != nil || insight.UserID != user.ID {
		return c.HandleError(ctx, nil, "Insight não encontrado", http.StatusNotFound)
	}

	if err := c.DS.DismissInsight(insight.ID); err != nil {
		if errors.HasCategory(err, errors.CategoryNotFound) {
			return c.HandleError(ctx, nil, "Insight não encontrado", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Erro ao dispensar insight", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"message": "Insight dispensado"})
}

func queryInt(ctx echo.Context, name string, fallback int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryBool(ctx echo.Context, name string) bool {
	switch strings.ToLower(ctx.QueryParam(name)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
