package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
)

const maxCategorySuggestions = 20

// keywordCategories drives the offline suggestion heuristic: any of the
// listed keywords in an uncategorized note suggests the mapped category.
var keywordCategories = map[string][]string{
	"trabalho": {"trabalho", "reunião", "projeto", "cliente", "empresa", "escritório"},
	"saúde":    {"médico", "consulta", "remédio", "exercício", "dieta", "saúde"},
	"finanças": {"dinheiro", "conta", "pagamento", "investimento", "banco", "cartão"},
	"estudos":  {"curso", "livro", "aprender", "estudo", "prova", "universidade"},
	"pessoal":  {"família", "amigo", "casa", "pessoal", "relacionamento"},
	"ideias":   {"ideia", "insight", "criativo", "inovação", "brainstorm"},
}

func (c *Controller) initCategoryRoutes() {
	categories := c.Group.Group("/categories", c.AuthMiddleware)
	categories.GET("", c.ListCategories)
	categories.POST("", c.CreateCategory)
	categories.GET("/stats", c.CategoryStats)
	categories.GET("/suggestions", c.CategorySuggestions)
	categories.POST("/apply-suggestions", c.ApplyCategorySuggestions)
	categories.GET("/:id", c.GetCategory)
	categories.PUT("/:id", c.UpdateCategory)
	categories.DELETE("/:id", c.DeleteCategory)
	categories.POST("/:id/move", c.MoveCategory)
}

// categoryError maps datastore error categories onto HTTP status codes.
func (c *Controller) categoryError(ctx echo.Context, err error, fallback string) error {
	switch {
	case errors.HasCategory(err, errors.CategoryNotFound):
		return c.HandleError(ctx, nil, "Categoria não encontrada", http.StatusNotFound)
	case errors.HasCategory(err, errors.CategoryValidation):
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	case errors.HasCategory(err, errors.CategoryConflict):
		return c.HandleError(ctx, err, err.Error(), http.StatusConflict)
	}
	return c.HandleError(ctx, err, fallback, http.StatusInternalServerError)
}

func (c *Controller) ownedCategory(ctx echo.Context, id string) (datastore.Category, bool) {
	user := currentUser(ctx)
	category, err := c.DS.GetCategory(id)
	if err != nil || category.UserID != user.ID {
		return datastore.Category{}, false
	}
	return category, true
}

// ListCategories returns the user's categories, flat or as a nested tree.
func (c *Controller) ListCategories(ctx echo.Context) error {
	user := currentUser(ctx)

	categories, err := c.DS.GetCategories(user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar categorias", http.StatusInternalServerError)
	}

	if queryBool(ctx, "include_tree") {
		return ctx.JSON(http.StatusOK, map[string]any{
			"categories": categoryTree(categories),
			"total":      len(categories),
		})
	}

	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, categoryResponse(&categories[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"categories": out, "total": len(out)})
}

type createCategoryRequest struct {
	Name        string  `json:"name"`
	ParentID    *string `json:"parent_id"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
}

// CreateCategory adds a new category, optionally nested under a parent.
func (c *Controller) CreateCategory(ctx echo.Context) error {
	user := currentUser(ctx)

	var req createCategoryRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.HandleError(ctx, nil, "Nome da categoria é obrigatório", http.StatusBadRequest)
	}

	if req.ParentID != nil {
		parent, ok := c.ownedCategory(ctx, *req.ParentID)
		if !ok {
			return c.HandleError(ctx, nil, "Categoria pai não encontrada", http.StatusNotFound)
		}
		req.ParentID = &parent.ID
	}

	category := datastore.Category{
		UserID:      user.ID,
		Name:        strings.TrimSpace(req.Name),
		ParentID:    req.ParentID,
		Color:       req.Color,
		Icon:        req.Icon,
		Description: req.Description,
	}
	if err := c.DS.CreateCategory(&category); err != nil {
		return c.categoryError(ctx, err, "Erro ao criar categoria")
	}

	c.statsCache.Delete(statsCacheKey(user.ID))
	return ctx.JSON(http.StatusCreated, map[string]any{
		"message":  "Categoria criada com sucesso",
		"category": categoryResponse(&category),
	})
}

// GetCategory returns one category with its resolved path and note count.
func (c *Controller) GetCategory(ctx echo.Context) error {
	category, ok := c.ownedCategory(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Categoria não encontrada", http.StatusNotFound)
	}

	resp := categoryResponse(&category)
	if path, err := c.DS.CategoryPath(category.ID); err == nil {
		resp.FullPath = path
	}
	if count, err := c.DS.CountCategoryNotes(category.ID, queryBool(ctx, "include_subcategories")); err == nil {
		resp.NoteCount = count
	}
	return ctx.JSON(http.StatusOK, map[string]any{"category": resp})
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
}

// UpdateCategory applies a partial update. Renames cascade to the notes
// holding the old name.
func (c *Controller) UpdateCategory(ctx echo.Context) error {
	category, ok := c.ownedCategory(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Categoria não encontrada", http.StatusNotFound)
	}

	var req updateCategoryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, nil, "Requisição inválida", http.StatusBadRequest)
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != category.Name {
		if err := c.DS.RenameCategory(category.ID, *req.Name); err != nil {
			return c.categoryError(ctx, err, "Erro ao renomear categoria")
		}
		category.Name = strings.TrimSpace(*req.Name)
	}

	if req.Color != nil {
		category.Color = *req.Color
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if err := c.DS.UpdateCategory(&category); err != nil {
		return c.categoryError(ctx, err, "Erro ao atualizar categoria")
	}

	c.statsCache.Delete(statsCacheKey(category.UserID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":  "Categoria atualizada com sucesso",
		"category": categoryResponse(&category),
	})
}

// DeleteCategory removes a category. Notes still attached require force,
// which detaches them first.
func (c *Controller) DeleteCategory(ctx echo.Context) error {
	category, ok := c.ownedCategory(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Categoria não encontrada", http.StatusNotFound)
	}

	if err := c.DS.DeleteCategory(category.ID, queryBool(ctx, "force")); err != nil {
		return c.categoryError(ctx, err, "Erro ao remover categoria")
	}

	c.statsCache.Delete(statsCacheKey(category.UserID))
	return ctx.JSON(http.StatusOK, map[string]any{"message": "Categoria removida com sucesso"})
}

type moveCategoryRequest struct {
	ParentID *string `json:"parent_id"`
}

// MoveCategory reparents a category within the user's hierarchy.
func (c *Controller) MoveCategory(ctx echo.Context) error {
	category, ok := c.ownedCategory(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Categoria não encontrada", http.StatusNotFound)
	}

	var req moveCategoryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, nil, "Requisição inválida", http.StatusBadRequest)
	}

	if err := c.DS.ReparentCategory(category.ID, req.ParentID); err != nil {
		return c.categoryError(ctx, err, "Erro ao mover categoria")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"message": "Categoria movida com sucesso"})
}

func statsCacheKey(userID string) string {
	return "category-stats:" + userID
}

type categoryStat struct {
	Category  CategoryResponse `json:"category"`
	NoteCount int64            `json:"note_count"`
}

// CategoryStats returns per-category note counts, cached for a few minutes.
func (c *Controller) CategoryStats(ctx echo.Context) error {
	user := currentUser(ctx)

	if cached, found := c.statsCache.Get(statsCacheKey(user.ID)); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	categories, err := c.DS.GetCategories(user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar categorias", http.StatusInternalServerError)
	}

	stats := make([]categoryStat, 0, len(categories))
	var total int64
	for i := range categories {
		count, err := c.DS.CountNotesInCategory(user.ID, categories[i].Name)
		if err != nil {
			return c.HandleError(ctx, err, "Erro ao calcular estatísticas", http.StatusInternalServerError)
		}
		stats = append(stats, categoryStat{
			Category:  categoryResponse(&categories[i]),
			NoteCount: count,
		})
		total += count
	}

	payload := map[string]any{
		"stats":             stats,
		"total_categorized": total,
	}
	c.statsCache.SetDefault(statsCacheKey(user.ID), payload)
	return ctx.JSON(http.StatusOK, payload)
}

type categorySuggestion struct {
	NoteID     string  `json:"note_id"`
	NotePrev   string  `json:"note_preview"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// CategorySuggestions scans uncategorized notes for well-known keywords and
// proposes a category per match. No AI call is involved.
func (c *Controller) CategorySuggestions(ctx echo.Context) error {
	user := currentUser(ctx)

	notes, err := c.DS.GetUncategorizedNotes(user.ID, 50)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar anotações", http.StatusInternalServerError)
	}

	suggestions := make([]categorySuggestion, 0)
	for i := range notes {
		content := strings.ToLower(notes[i].Content)
		for category, keywords := range keywordCategories {
			for _, keyword := range keywords {
				if !strings.Contains(content, keyword) {
					continue
				}
				suggestions = append(suggestions, categorySuggestion{
					NoteID:     notes[i].ID,
					NotePrev:   notes[i].Preview(),
					Category:   category,
					Confidence: 0.7,
					Reason:     "Contém palavra-chave: " + keyword,
				})
				break
			}
			if len(suggestions) >= maxCategorySuggestions {
				break
			}
		}
		if len(suggestions) >= maxCategorySuggestions {
			break
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"total":       len(suggestions),
	})
}

type applySuggestionsRequest struct {
	Suggestions []struct {
		NoteID   string `json:"note_id"`
		Category string `json:"category"`
	} `json:"suggestions"`
}

// ApplyCategorySuggestions assigns suggested categories to their notes.
// Entries with missing fields or foreign notes are skipped, not failed.
func (c *Controller) ApplyCategorySuggestions(ctx echo.Context) error {
	user := currentUser(ctx)

	var req applySuggestionsRequest
	if err := ctx.Bind(&req); err != nil || len(req.Suggestions) == 0 {
		return c.HandleError(ctx, nil, "Nenhuma sugestão informada", http.StatusBadRequest)
	}

	applied := 0
	for _, suggestion := range req.Suggestions {
		if suggestion.NoteID == "" || strings.TrimSpace(suggestion.Category) == "" {
			continue
		}
		note, err := c.DS.GetNote(suggestion.NoteID)
		if err != nil || note.UserID != user.ID {
			continue
		}
		category, err := c.DS.FindOrCreateCategory(user.ID, suggestion.Category)
		if err != nil {
			continue
		}
		note.Category = &category.Name
		if err := c.DS.UpdateNote(&note); err != nil {
			continue
		}
		applied++
	}

	c.statsCache.Delete(statsCacheKey(user.ID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Sugestões aplicadas",
		"applied": applied,
		"total":   len(req.Suggestions),
	})
}
