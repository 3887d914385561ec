package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// notificationPollInterval is how often the page refreshes notifications.
const notificationPollInterval = time.Second

// PageHandler renders the single-page UI.
type PageHandler struct {
	title         string
	service       *app.QuoteService
	notifications *app.NotificationFeed
}

// NewPageHandler creates the page handler.
func NewPageHandler(title string, service *app.QuoteService, notifications *app.NotificationFeed) *PageHandler {
	return &PageHandler{title: title, service: service, notifications: notifications}
}

type pageData struct {
	Title         string
	Quote         *domain.Quote
	Message       string
	Categories    []app.CategoryOption
	Selected      string
	Notifications []app.Notification
	PollMillis    int64
}

// Index handles GET /. It shows a random quote from ?category= or the
// stored filter, the category select, and active notifications.
func (h *PageHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()

	selected, err := h.service.SelectedCategory(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	category := c.Query("category")
	if category == "" {
		category = selected
	}

	data := pageData{
		Title:      h.title,
		Categories: h.service.CategoryOptions(),
		Selected:   category,
		PollMillis: notificationPollInterval.Milliseconds(),
	}

	if h.notifications != nil {
		data.Notifications = h.notifications.Active()
	}

	quote, err := h.service.Random(ctx, category)
	switch {
	case err == nil:
		data.Quote = &quote
	case domain.IsNotFound(err):
		_, resp := dto.MapDomainError(err)
		data.Message = resp.Error.Message
	default:
		dto.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "rendering page failed", slog.Any("error", err))
		dto.RespondWithCode(c, dto.ErrorCodeInternal, "an internal error occurred")

		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// RegisterPageRoutes registers GET /.
func (h *PageHandler) RegisterPageRoutes(engine *gin.Engine) {
	engine.GET("/", h.Index)
}
