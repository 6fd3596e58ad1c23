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

// ForgeHandler exposes the forge state machine as a JSON API.
type ForgeHandler struct {
	forgeService *service.ForgeService
	log          zerolog.Logger
}

// NewForgeHandler creates a new ForgeHandler.
func NewForgeHandler(forgeService *service.ForgeService, log zerolog.Logger) *ForgeHandler {
	return &ForgeHandler{
		forgeService: forgeService,
		log:          log.With().Str("component", "forge_handler").Logger(),
	}
}

// GetOptions godoc
// GET /api/v1/forge/options
// Returns the selectable levels, optimization preferences and form defaults.
func (h *ForgeHandler) GetOptions(c *gin.Context) {
	response.Success(c, http.StatusOK, h.forgeService.Options())
}

// GetState godoc
// GET /api/v1/forge/state
// Returns the caller's current view state.
func (h *ForgeHandler) GetState(c *gin.Context) {
	snap, err := h.forgeService.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("Load state failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// Generate godoc
// POST /api/v1/forge/generate
// Submits generation parameters. Accepted only while Idle; the result
// arrives later through the state endpoint or the stream.
func (h *ForgeHandler) Generate(c *gin.Context) {
	var req model.GenerationParams
	if fields := validator.Bind(c, &req); fields != nil {
		code := response.ErrValidation
		if validator.IsMalformed(fields) {
			code = response.ErrInvalidPayload
		}
		response.FailWithFields(c, http.StatusBadRequest, code, fields)
		return
	}

	snap, err := h.forgeService.Submit(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.failTransition(c, snap, err)
		return
	}
	response.Success(c, http.StatusAccepted, snap)
}

// Reset godoc
// POST /api/v1/forge/reset
// Returns a Viewing or Error session to Idle.
func (h *ForgeHandler) Reset(c *gin.Context) {
	snap, err := h.forgeService.Reset(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.failTransition(c, snap, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

func (h *ForgeHandler) failTransition(c *gin.Context, snap view.Snapshot, err error) {
	if errors.Is(err, view.ErrInvalidTransition) {
		response.FailWithData(c, http.StatusConflict, response.ErrInvalidTransition, snap)
		return
	}
	h.log.Error().Err(err).Str("session_id", middleware.GetSessionID(c)).Msg("State transition failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
