package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
)

type purchaseFeaturedRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}

type updateFeaturedSettingsRequest struct {
	MaxSlots     *int   `json:"max_slots,omitempty"`
	CostPoints   *int64 `json:"cost_points,omitempty"`
	DurationDays *int   `json:"duration_days,omitempty"`
}

func (s *Server) ListFeaturedSlots(c *gin.Context) {
	resp, err := s.featuredSvc.ActiveSlots(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PurchaseFeaturedSlot(c *gin.Context) {
	var req purchaseFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.featuredSvc.Purchase(c.Request.Context(),
		strings.TrimSpace(req.UserID),
		strings.TrimSpace(req.ProjectID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.shareAsync(resp.ProjectID.String(), "featured")

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetFeaturedSettings(c *gin.Context) {
	resp, err := s.featuredSvc.GetSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFeaturedSettings(c *gin.Context) {
	var req updateFeaturedSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.featuredSvc.UpdateSettings(c.Request.Context(), featureddomain.UpdateSettingsRequest{
		MaxSlots:     req.MaxSlots,
		CostPoints:   req.CostPoints,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExpireFeaturedSlots runs the sweep on demand. The scheduler runs the same
// sweep on a ticker; this exists so admins can force it.
func (s *Server) ExpireFeaturedSlots(c *gin.Context) {
	resp, err := s.featuredSvc.ExpireStale(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
