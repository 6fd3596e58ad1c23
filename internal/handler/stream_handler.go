package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/middleware"
	"github.com/stemsi/curricuforge/internal/response"
	"github.com/stemsi/curricuforge/internal/service"
	ws "github.com/stemsi/curricuforge/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// StreamHandler pushes a session's view state over WebSocket.
type StreamHandler struct {
	forgeService *service.ForgeService
	log          zerolog.Logger
	upgrader     websocket.Upgrader
	pingPeriod   time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(forgeService *service.ForgeService, log zerolog.Logger, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		forgeService: forgeService,
		log:          log.With().Str("component", "stream_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
		pingPeriod:   ws.PingPeriod,
	}
}

// Stream godoc
// WS /ws/v1/forge/stream
// Sends the current state on connect, then every state change.
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.GetSessionID(c)

	// Subscribe before reading the current state so no change slips between.
	events, cancel, err := h.forgeService.Subscribe(ctx, sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("Subscribe failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID).Logger()
	wsLog.Debug().Msg("Stream connected")

	if !h.sendCurrent(conn, c, sessionID) {
		return
	}

	requests := make(chan ws.Action, 4)
	done := make(chan struct{})
	defer close(done)
	go h.readLoop(conn, requests, done, wsLog)

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	// Only this loop writes to conn.
	for {
		select {
		case snap, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteState(conn, snap); err != nil {
				wsLog.Debug().Err(err).Msg("Write state failed")
				return
			}
		case action, ok := <-requests:
			if !ok {
				return
			}
			switch action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionRefresh:
				if !h.sendCurrent(conn, c, sessionID) {
					return
				}
				err = nil
			default:
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *StreamHandler) sendCurrent(conn *websocket.Conn, c *gin.Context, sessionID string) bool {
	snap, err := h.forgeService.State(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Load state failed")
		_ = ws.WriteError(conn, response.GetMessage(response.ErrInternal))
		return false
	}
	return ws.WriteState(conn, snap) == nil
}

// readLoop forwards client actions until the connection closes.
func (h *StreamHandler) readLoop(conn *websocket.Conn, requests chan<- ws.Action, done <-chan struct{}, log zerolog.Logger) {
	defer close(requests)
	ws.KeepAlive(conn)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(ws.PongWait))

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			env.Action = "invalid"
		}
		select {
		case requests <- env.Action:
		case <-done:
			return
		}
	}
}
