package http

import (
	"net/http"

	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type SessionRequest struct {
	Username string `json:"username"`
}

type SessionResponse struct {
	Client   string `json:"client"`
	Username string `json:"username,omitempty"`
}

// getSession returns the display name this browser used last, so the UI can
// prefill it.
func getSession(c *gin.Context) {
	s := sessions.Default(c)
	name, _ := s.Get(sessionUsernameKey).(string)
	c.JSON(http.StatusOK, SessionResponse{
		Client:   c.GetString(signal.ClientTokenKey),
		Username: name,
	})
}

func putSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	name, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := sessions.Default(c)
	s.Set(sessionUsernameKey, name)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not saved"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Client:   c.GetString(signal.ClientTokenKey),
		Username: name,
	})
}
