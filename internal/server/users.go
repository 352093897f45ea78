package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
)

type registerUserRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type grantBonusRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.userSvc.Register(c.Request.Context(), userdomain.RegisterUserRequest{
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetUserByID(c *gin.Context) {
	resp, err := s.userSvc.GetByID(c.Request.Context(), userdomain.GetUserRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
		Tier      string `form:"tier"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.userSvc.List(c.Request.Context(), userdomain.ListUserRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Tier:      strings.TrimSpace(query.Tier),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GrantBonus credits a user out of band. Admin only; the grant lands in the
// ledger like any other transaction.
func (s *Server) GrantBonus(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, userdomain.ErrInvalidID)
		return
	}

	var req grantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.pointsSvc.Award(c.Request.Context(), pointsdomain.AwardRequest{
		UserID:      userID,
		Action:      pointsdomain.ActionAdminBonus,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
