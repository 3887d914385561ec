package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// MaxImportSize bounds an uploaded quote file.
const MaxImportSize = 10 << 20

// ImportFormField is the multipart field carrying an import file.
const ImportFormField = "file"

// Syncer runs a manual sync. *app.SyncPoller implements it.
type Syncer interface {
	SyncNow(ctx context.Context) (domain.MergeReport, error)
	Status() app.SyncStatus
}

// QuoteHandler serves the quote, category, sync and notification endpoints.
type QuoteHandler struct {
	service       *app.QuoteService
	syncer        Syncer
	notifications *app.NotificationFeed
}

// NewQuoteHandler creates a quote handler. A nil syncer makes POST /sync
// answer 503.
func NewQuoteHandler(service *app.QuoteService, syncer Syncer, notifications *app.NotificationFeed) *QuoteHandler {
	return &QuoteHandler{
		service:       service,
		syncer:        syncer,
		notifications: notifications,
	}
}

// ListQuotes handles GET /api/v1/quotes. Without a category the stored
// filter applies.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	category, err := h.categoryOrSelected(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	offset, err := req.Offset(category)
	if err != nil {
		dto.RespondWithValidationErrors(c, map[string]string{"cursor": err.Error()})
		return
	}

	quotes := h.service.List(category)

	c.JSON(http.StatusOK, dto.Paginate(dto.NewQuoteResponses(quotes), category, offset, req.GetLimit()))
}

// RandomQuote handles GET /api/v1/quotes/random.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	var req dto.RandomQuoteRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	quote, err := h.service.Random(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// AddQuote handles POST /api/v1/quotes.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	quote, err := h.service.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// ExportQuotes handles GET /api/v1/quotes/export.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": domain.ExportFileName}))
	c.Data(http.StatusOK, "application/json", data)
}

// ImportQuotes handles POST /api/v1/quotes/import. The file is either the
// raw request body or the multipart field "file".
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	report, err := h.service.Import(c.Request.Context(), data)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{
		Added:   report.Added,
		Skipped: report.Skipped,
		Total:   len(h.service.List(domain.CategoryAll)),
	})
}

func readImport(c *gin.Context) ([]byte, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportSize)
	c.Request.Body = body

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}

		if len(data) == 0 {
			return nil, errors.New("request body is empty")
		}

		return data, nil
	}

	header, err := c.FormFile(ImportFormField)
	if err != nil {
		return nil, fmt.Errorf("multipart field %q is required", ImportFormField)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImportSize))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return data, nil
}

// ListCategories handles GET /api/v1/categories.
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	selected, err := h.service.SelectedCategory(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.CategoryOptions(),
		Selected:   selected,
	})
}

// GetSelectedCategory handles GET /api/v1/categories/selected.
func (h *QuoteHandler) GetSelectedCategory(c *gin.Context) {
	h.respondSelected(c, "")
}

// SetSelectedCategory handles PUT /api/v1/categories/selected.
func (h *QuoteHandler) SetSelectedCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	category, err := h.service.SetFilter(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	h.respondSelected(c, category)
}

func (h *QuoteHandler) respondSelected(c *gin.Context, category string) {
	ctx := c.Request.Context()

	if category == "" {
		var err error

		category, err = h.service.SelectedCategory(ctx)
		if err != nil {
			dto.HandleError(c, err)
			return
		}
	}

	lastViewed, err := h.service.LastViewedCategory(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SelectedCategoryResponse{Category: category, LastViewed: lastViewed})
}

// Sync handles POST /api/v1/sync.
func (h *QuoteHandler) Sync(c *gin.Context) {
	if h.syncer == nil {
		dto.HandleError(c, domain.NewUnavailableError("sync", "sync is not configured"))
		return
	}

	report, err := h.syncer.SyncNow(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(report, h.syncer.Status()))
}

// ListNotifications handles GET /api/v1/notifications.
func (h *QuoteHandler) ListNotifications(c *gin.Context) {
	items := []app.Notification{}
	if h.notifications != nil {
		items = h.notifications.Active()
	}

	c.JSON(http.StatusOK, dto.NotificationsResponse{Items: items})
}

func (h *QuoteHandler) categoryOrSelected(ctx context.Context, category string) (string, error) {
	if category = strings.TrimSpace(category); category != "" {
		return category, nil
	}

	return h.service.SelectedCategory(ctx)
}

// RegisterQuoteRoutes registers the API routes on rg (normally /api/v1).
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", h.ImportQuotes)

	categories := rg.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.GET("/selected", h.GetSelectedCategory)
	categories.PUT("/selected", h.SetSelectedCategory)

	rg.POST("/sync", h.Sync)
	rg.GET("/notifications", h.ListNotifications)
}
