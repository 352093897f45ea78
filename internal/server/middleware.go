package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"

	contextUserKey = "server.current_user"
)

// RequestLogger tags every request with an ID and logs its outcome.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", elapsed),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
			log.Warn("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// AdminRequired gates a route on the caller's tier. The caller identifies
// itself with the X-User-ID header; session handling lives in the frontend
// proxy, not here.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerUserID))
		if id == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		caller, err := s.userSvc.GetByID(c.Request.Context(), userdomain.GetUserRequest{ID: id})
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !caller.IsAdmin() {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Set(contextUserKey, caller)
		c.Next()
	}
}
