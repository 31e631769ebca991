package rest

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/openterm/pinpad-bridge/internal/terminal"
	"github.com/openterm/pinpad-bridge/internal/types"
	"go.uber.org/zap"
)

// Amounts cross the boundary as decimal strings and stay strings all the
// way to the wire; only the shape is checked here.
var amountPattern = regexp.MustCompile(`^\d+\.\d{2}$`)

type amountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// GET /api/v1/terminal/status
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Status())
}

// GET /api/v1/terminal/profile
func (s *Server) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, s.activeProf)
}

// POST /api/v1/terminal/sale
func (s *Server) sale(c *gin.Context) {
	s.amountOperation(c, "sale", s.manager.Sale)
}

// POST /api/v1/terminal/recurring-sale
func (s *Server) recurringSale(c *gin.Context) {
	s.amountOperation(c, "recurring_sale", s.manager.RecurringSale)
}

// POST /api/v1/terminal/replace-card
func (s *Server) replaceCard(c *gin.Context) {
	s.operation(c, "replace_card", s.manager.ReplaceCardInRecurring)
}

// POST /api/v1/terminal/read-card
func (s *Server) readPrepaidCard(c *gin.Context) {
	s.operation(c, "read_prepaid_card", s.manager.ReadPrepaidCard)
}

// POST /api/v1/terminal/client-version
func (s *Server) clientVersion(c *gin.Context) {
	s.operation(c, "get_client_version", s.manager.GetClientVersion)
}

// POST /api/v1/terminal/download-config
func (s *Server) downloadConfig(c *gin.Context) {
	s.operation(c, "download_config", s.manager.DownloadConfig)
}

// POST /api/v1/terminal/cancel
func (s *Server) cancel(c *gin.Context) {
	if err := s.manager.Cancel(c.Request.Context()); err != nil {
		s.submitError(c, "cancel", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Cancel requested"})
}

func (s *Server) amountOperation(c *gin.Context, name string,
	trigger func(context.Context, string) error) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TERMINAL_400", "Invalid request body", err.Error()))
		return
	}

	if !amountPattern.MatchString(req.Amount) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("TERMINAL_400",
			"Amount must be a decimal string like 12.50", req.Amount))
		return
	}

	s.operation(c, name, func(ctx context.Context) error {
		return trigger(ctx, req.Amount)
	})
}

func (s *Server) operation(c *gin.Context, name string,
	trigger func(context.Context) error) {
	if s.activeProf != nil && !s.activeProf.Supports(name) {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("TERMINAL_422",
			"Operation not supported by the active terminal profile", name))
		return
	}

	if !s.manager.Status().State.Idle() {
		c.JSON(http.StatusConflict, types.NewErrorResponse("TERMINAL_409",
			"A terminal operation is already in flight", s.manager.Status().State))
		return
	}

	if err := trigger(c.Request.Context()); err != nil {
		s.submitError(c, name, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Operation accepted",
		"operation": name,
	})
}

func (s *Server) submitError(c *gin.Context, name string, err error) {
	s.logger.Error("Terminal operation failed",
		zap.String("operation", name),
		zap.Error(err))

	if errors.Is(err, terminal.ErrTransport) {
		c.JSON(http.StatusBadGateway, types.NewErrorResponse("TERMINAL_502",
			"Terminal transport unavailable", err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TERMINAL_500",
		"Operation failed", err.Error()))
}
