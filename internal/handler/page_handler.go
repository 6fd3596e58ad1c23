package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/middleware"
	"github.com/stemsi/curricuforge/internal/model"
	"github.com/stemsi/curricuforge/internal/response"
	"github.com/stemsi/curricuforge/internal/service"
	"github.com/stemsi/curricuforge/internal/validator"
	"github.com/stemsi/curricuforge/internal/view"
)

// FormErrorKey holds a message about the whole form rather than one field.
const FormErrorKey = "form"

// StreamPath is where the page opens its state stream.
const StreamPath = "/ws/v1/forge/stream"

// ProgressSteps are the stages shown while a curriculum is being generated.
var ProgressSteps = []string{"Market Analysis", "Module Crafting", "Tech Stack Mapping"}

// PageData feeds index.tmpl.
type PageData struct {
	State      view.Snapshot
	Form       model.GenerationParams
	Options    model.FormOptions
	Errors     map[string]string
	Steps      []string
	StreamPath string
}

// PageHandler renders the forge as a server-side HTML page. Form posts
// redirect back to the page, which then shows whatever state they produced.
type PageHandler struct {
	forgeService *service.ForgeService
	log          zerolog.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(forgeService *service.ForgeService, log zerolog.Logger) *PageHandler {
	return &PageHandler{
		forgeService: forgeService,
		log:          log.With().Str("component", "page_handler").Logger(),
	}
}

// Index godoc
// GET /
// Renders the view for the session's current state.
func (h *PageHandler) Index(c *gin.Context) {
	snap, err := h.forgeService.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("Load state failed")
		c.String(http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
		return
	}
	h.render(c, http.StatusOK, snap, model.DefaultGenerationParams(), nil)
}

// Generate godoc
// POST /generate
// Submits the form. Invalid input re-renders the form with field errors.
func (h *PageHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.GetSessionID(c)

	var form model.GenerationParams
	if fields := validator.BindForm(c, &form); fields != nil {
		snap, err := h.forgeService.State(ctx, sessionID)
		if err != nil || snap.Status != view.StatusIdle {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		h.render(c, http.StatusBadRequest, snap, form, fields)
		return
	}

	if _, err := h.forgeService.Submit(ctx, sessionID, form); err != nil && !errors.Is(err, view.ErrInvalidTransition) {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Submit failed")
		c.String(http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Throttled renders the form with a notice when the submit limiter rejects
// a post. The visitor's input is kept.
func (h *PageHandler) Throttled(c *gin.Context) {
	snap, err := h.forgeService.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil || snap.Status != view.StatusIdle {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	var form model.GenerationParams
	_ = validator.BindForm(c, &form)
	h.render(c, http.StatusTooManyRequests, snap, form, map[string]string{
		FormErrorKey: response.GetMessage(response.ErrRateLimitExceeded),
	})
}

// Reset godoc
// POST /reset
// Leaves a finished curriculum or failure and returns to the form.
func (h *PageHandler) Reset(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if _, err := h.forgeService.Reset(c.Request.Context(), sessionID); err != nil && !errors.Is(err, view.ErrInvalidTransition) {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Reset failed")
		c.String(http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) render(c *gin.Context, status int, snap view.Snapshot, form model.GenerationParams, fields map[string]string) {
	c.HTML(status, "index.tmpl", PageData{
		State:      snap,
		Form:       form,
		Options:    h.forgeService.Options(),
		Errors:     fields,
		Steps:      ProgressSteps,
		StreamPath: StreamPath,
	})
}
