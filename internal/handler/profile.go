package handler

import (
	"context"
	"net/http"

	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/gin-gonic/gin"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	SaveProfile(ctx context.Context, uid string, p *models.Profile) error
}

type ProfileHandler struct {
	store ProfileStore
}

func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// Get handles GET /profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.store.GetProfile(c.Request.Context(), middleware.GetSubject(c))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to load profile.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load profile"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, models.ProfileResponse{Profile: p, BMICategory: models.BMICategory(p.BMI)})
}

// Put handles PUT /profile. The BMI is always recomputed server side.
func (h *ProfileHandler) Put(c *gin.Context) {
	var p models.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if err := p.Normalize(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.SaveProfile(c.Request.Context(), middleware.GetSubject(c), &p); err != nil {
		logger.Error(c.Request.Context(), "Failed to save profile.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, models.ProfileResponse{Profile: &p, BMICategory: models.BMICategory(p.BMI)})
}
