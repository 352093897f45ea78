package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    err.Error(),
			Message: "invalid request",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    err.Error(),
			Message: "conflict",
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    err.Error(),
			Message: "cannot be processed in its current state",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrInvalidName),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidID),
		errors.Is(err, pointsdomain.ErrInvalidAction),
		errors.Is(err, pointsdomain.ErrInvalidAmount),
		errors.Is(err, pointsdomain.ErrInvalidID),
		errors.Is(err, projectdomain.ErrInvalidOwner),
		errors.Is(err, projectdomain.ErrInvalidName),
		errors.Is(err, projectdomain.ErrInvalidURL),
		errors.Is(err, projectdomain.ErrInvalidID),
		errors.Is(err, projectdomain.ErrInvalidRequest),
		errors.Is(err, featureddomain.ErrInvalidID),
		errors.Is(err, featureddomain.ErrInvalidSettings),
		errors.Is(err, socialdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, pointsdomain.ErrUserNotFound),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, featureddomain.ErrProjectNotFound),
		errors.Is(err, socialdomain.ErrProjectNotFound),
		errors.Is(err, socialdomain.ErrPlatformNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, projectdomain.ErrAlreadyVoted),
		errors.Is(err, projectdomain.ErrSlugConflict),
		errors.Is(err, featureddomain.ErrAlreadyFeatured),
		errors.Is(err, featureddomain.ErrCapacityExceeded),
		errors.Is(err, pointsdomain.ErrInsufficientPoints):
		return true
	default:
		return false
	}
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, projectdomain.ErrNotPending),
		errors.Is(err, projectdomain.ErrNotApproved),
		errors.Is(err, featureddomain.ErrProjectNotLive),
		errors.Is(err, socialdomain.ErrProjectNotLive):
		return true
	default:
		return false
	}
}
