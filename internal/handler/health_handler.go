package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/response"
)

// QueueStats reports the generation backlog.
type QueueStats interface {
	Pending() int
}

// HealthHandler reports liveness plus the state of the session backend.
type HealthHandler struct {
	rdb       *redis.Client // nil when sessions live in memory
	queue     QueueStats
	store     string
	startTime time.Time
	log       zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(rdb *redis.Client, queue QueueStats, store string, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		rdb:       rdb,
		queue:     queue,
		store:     store,
		startTime: time.Now(),
		log:       log.With().Str("component", "health_handler").Logger(),
	}
}

type healthStatus struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	SessionStore   string `json:"session_store"`
	PendingJobs    int    `json:"pending_jobs"`
	RedisLatencyMS *int64 `json:"redis_latency_ms,omitempty"`
}

// Health godoc
// GET /health
// Returns 200 while the server and its session backend are usable.
func (h *HealthHandler) Health(c *gin.Context) {
	out := healthStatus{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		SessionStore: h.store,
	}
	if h.queue != nil {
		out.PendingJobs = h.queue.Pending()
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		start := time.Now()
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			out.Status = "degraded"
			response.FailWithData(c, http.StatusServiceUnavailable, response.ErrInternal, out)
			return
		}
		ms := time.Since(start).Milliseconds()
		out.RedisLatencyMS = &ms
	}

	response.Success(c, http.StatusOK, out)
}
