package handler

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/gin-gonic/gin"
)

var walletAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type WalletStore interface {
	GetWallet(ctx context.Context, uid string) (*models.WalletLink, error)
	LinkWallet(ctx context.Context, uid, address string) (*models.WalletLink, error)
	UnlinkWallet(ctx context.Context, uid string) (*models.WalletLink, error)
}

type WalletHandler struct {
	store WalletStore
}

func NewWalletHandler(store WalletStore) *WalletHandler {
	return &WalletHandler{store: store}
}

// Get handles GET /wallet.
func (h *WalletHandler) Get(c *gin.Context) {
	link, err := h.store.GetWallet(c.Request.Context(), middleware.GetSubject(c))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to load wallet.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, link)
}

// Link handles PUT /wallet.
func (h *WalletHandler) Link(c *gin.Context) {
	var req models.LinkWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	address := strings.TrimSpace(req.Address)
	if !walletAddress.MatchString(address) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "address must be 0x followed by 40 hex characters"})
		return
	}

	link, err := h.store.LinkWallet(c.Request.Context(), middleware.GetSubject(c), address)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to link wallet.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to link wallet"})
		return
	}
	c.JSON(http.StatusOK, link)
}

// Unlink handles DELETE /wallet.
func (h *WalletHandler) Unlink(c *gin.Context) {
	link, err := h.store.UnlinkWallet(c.Request.Context(), middleware.GetSubject(c))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to unlink wallet.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to unlink wallet"})
		return
	}
	c.JSON(http.StatusOK, link)
}
