package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openterm/pinpad-bridge/internal/types"
)

// POST /api/v1/auth/session
func (s *Server) createSession(c *gin.Context) {
	var req struct {
		PairingKey string `json:"pairing_key" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	token, sessionID, err := s.authService.IssueSession(req.PairingKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Pairing failed", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"session_id": sessionID.String(),
	})
}
