package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/Lllllllleong/aethercare/internal/store"
	"github.com/gin-gonic/gin"
)

type AccountReader interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
}

type AccountHandler struct {
	store AccountReader
}

func NewAccountHandler(store AccountReader) *AccountHandler {
	return &AccountHandler{store: store}
}

// Get handles GET /me.
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.store.GetAccount(c.Request.Context(), middleware.GetSubject(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Account not found"})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to load account.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load account"})
		return
	}
	c.JSON(http.StatusOK, account)
}
