package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/curricuforge/internal/response"
	"github.com/stemsi/curricuforge/internal/service"
)

const (
	// SessionCookie names the cookie carrying the signed session token.
	SessionCookie = "forge_session"

	// ContextKeySessionID is the Gin context key for the session id.
	ContextKeySessionID = response.ContextKeySessionID
)

// Session attaches a forge session to every request. A missing or invalid
// cookie starts a fresh session, which begins Idle. A valid cookie past half
// its lifetime is re-issued for the same session.
func Session(sessions *service.SessionService, secure bool, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "session_middleware").Logger()
	maxAge := int(sessions.TTL().Seconds())

	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			if id, renewed, err := sessions.Renew(token); err == nil {
				if renewed != "" {
					c.SetSameSite(http.SameSiteLaxMode)
					c.SetCookie(SessionCookie, renewed, maxAge, "/", "", secure, true)
				}
				c.Set(ContextKeySessionID, id)
				c.Next()
				return
			}
		}

		id, token, err := sessions.Issue()
		if err != nil {
			log.Error().Err(err).Msg("Issue session failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// RequireSession rejects requests that arrive without a valid session
// cookie instead of starting a new one. Used for the state stream.
func RequireSession(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRequired)
			return
		}
		id, err := sessions.Validate(token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRequired)
			return
		}
		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// GetSessionID retrieves the session id from the Gin context.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}
