package domain

import (
	"context"
	"errors"

	"github.com/showyourproject/backend/pkg/db/pagination"
)

type SubmitProjectRequest struct {
	OwnerID     string
	Name        string
	URL         string
	Tagline     string
	Description string
}

type GetProjectRequest struct {
	ID   string
	Slug string
}

type ListProjectRequest struct {
	PageToken     string
	PageSize      int32
	Status        string
	OwnerID       string
	FeaturedFirst bool
}

type ListProjectFilter struct {
	Status  string
	OwnerID string
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type VoteRequest struct {
	ProjectID string
	UserID    string
}

type ClickRequest struct {
	ProjectID string
	UserID    string // optional; empty for anonymous visitors
	Referrer  string
}

type Service interface {
	Submit(context.Context, SubmitProjectRequest) (Project, error)
	Approve(ctx context.Context, id string) (Project, error)
	Reject(ctx context.Context, id string) (Project, error)
	GetByID(ctx context.Context, id string) (Project, error)
	GetBySlug(ctx context.Context, slug string) (Project, error)
	List(context.Context, ListProjectRequest) (ListProjectResponse, error)
	// Vote records the upvote and then awards points to the voter as a
	// best-effort side effect; a points failure never fails the vote.
	Vote(context.Context, VoteRequest) (Project, error)
	// RecordClick behaves the same way for click-throughs.
	RecordClick(context.Context, ClickRequest) error
}

var (
	ErrInvalidOwner   = errors.New("invalid_owner")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidURL     = errors.New("invalid_url")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrNotPending     = errors.New("not_pending")
	ErrNotApproved    = errors.New("not_approved")
	ErrAlreadyVoted   = errors.New("already_voted")
	ErrSlugConflict   = errors.New("slug_conflict")
	ErrInvalidRequest = errors.New("invalid_request")
)
