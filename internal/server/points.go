package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
)

func (s *Server) GetBalance(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, pointsdomain.ErrInvalidID)
		return
	}

	balance, err := s.pointsSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id": userID,
		"balance": balance,
	}})
}

func (s *Server) GetHistory(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.pointsSvc.History(c.Request.Context(), pointsdomain.HistoryRequest{
		UserID:    strings.TrimSpace(c.Param("user_id")),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
