package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
)

type setPlatformEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) ListSocialPlatforms(c *gin.Context) {
	resp, err := s.socialSvc.Platforms(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetSocialPlatformEnabled(c *gin.Context) {
	var req setPlatformEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.socialSvc.SetPlatformEnabled(c.Request.Context(),
		strings.TrimSpace(c.Param("id")), *req.Enabled)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSocialPosts(c *gin.Context) {
	var query struct {
		ProjectID string `form:"project_id"`
		Platform  string `form:"platform"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.socialSvc.ListPosts(c.Request.Context(), socialdomain.ListPostsRequest{
		ProjectID: strings.TrimSpace(query.ProjectID),
		Platform:  strings.TrimSpace(query.Platform),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
