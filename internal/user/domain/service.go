package domain

import (
	"context"
	"errors"

	"github.com/showyourproject/backend/pkg/db/pagination"
)

type RegisterUserRequest struct {
	DisplayName string
	Email       string
}

type GetUserRequest struct {
	ID string
}

type ListUserRequest struct {
	PageToken string
	PageSize  int32
	Tier      string
}

type ListUserFilter struct {
	Tier string
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type Service interface {
	Register(context.Context, RegisterUserRequest) (User, error)
	GetByID(context.Context, GetUserRequest) (User, error)
	List(context.Context, ListUserRequest) (ListUserResponse, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrEmailTaken   = errors.New("email_taken")
	ErrNotFound     = errors.New("not_found")
)
