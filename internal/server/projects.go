package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	"go.uber.org/zap"
)

const shareTimeout = 60 * time.Second

type submitProjectRequest struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
}

type voteProjectRequest struct {
	UserID string `json:"user_id"`
}

type clickProjectRequest struct {
	UserID   string `json:"user_id"`
	Referrer string `json:"referrer"`
}

type shareProjectRequest struct {
	Event string `json:"event"`
}

func (s *Server) SubmitProject(c *gin.Context) {
	var req submitProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.projectSvc.Submit(c.Request.Context(), projectdomain.SubmitProjectRequest{
		OwnerID:     strings.TrimSpace(req.OwnerID),
		Name:        strings.TrimSpace(req.Name),
		URL:         strings.TrimSpace(req.URL),
		Tagline:     strings.TrimSpace(req.Tagline),
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	resp, err := s.projectSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProjectBySlug(c *gin.Context) {
	resp, err := s.projectSvc.GetBySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjects(c *gin.Context) {
	var query struct {
		PageToken     string `form:"page_token"`
		PageSize      int32  `form:"page_size"`
		Status        string `form:"status"`
		OwnerID       string `form:"owner_id"`
		FeaturedFirst bool   `form:"featured_first"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListProjectRequest{
		PageToken:     query.PageToken,
		PageSize:      query.PageSize,
		Status:        strings.TrimSpace(query.Status),
		OwnerID:       strings.TrimSpace(query.OwnerID),
		FeaturedFirst: query.FeaturedFirst,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ApproveProject flips a pending project live and kicks off the social
// announcement in the background. The approval response never waits on the
// platform APIs.
func (s *Server) ApproveProject(c *gin.Context) {
	resp, err := s.projectSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.shareAsync(resp.ID.String(), "approved")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectProject(c *gin.Context) {
	resp, err := s.projectSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoteProject(c *gin.Context) {
	var req voteProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.projectSvc.Vote(c.Request.Context(), projectdomain.VoteRequest{
		ProjectID: strings.TrimSpace(c.Param("id")),
		UserID:    strings.TrimSpace(req.UserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordProjectClick(c *gin.Context) {
	var req clickProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.projectSvc.RecordClick(c.Request.Context(), projectdomain.ClickRequest{
		ProjectID: strings.TrimSpace(c.Param("id")),
		UserID:    strings.TrimSpace(req.UserID),
		Referrer:  strings.TrimSpace(req.Referrer),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ShareProject re-announces a project on demand and waits for the results,
// unlike the fire-and-forget approval trigger.
func (s *Server) ShareProject(c *gin.Context) {
	var req shareProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event := strings.TrimSpace(req.Event)
	if event == "" {
		event = "approved"
	}

	results, err := s.socialSvc.Share(c.Request.Context(), socialdomain.ShareRequest{
		ProjectID: strings.TrimSpace(c.Param("id")),
		Event:     event,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) shareAsync(projectID, event string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shareTimeout)
		defer cancel()

		results, err := s.socialSvc.Share(ctx, socialdomain.ShareRequest{
			ProjectID: projectID,
			Event:     event,
		})
		if err != nil {
			s.log.Warn("background share failed",
				zap.String("project_id", projectID),
				zap.String("event", event),
				zap.Error(err),
			)
			return
		}
		s.log.Info("background share finished",
			zap.String("project_id", projectID),
			zap.String("event", event),
			zap.Int("platforms", len(results)),
		)
	}()
}
