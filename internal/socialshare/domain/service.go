package domain

import (
	"context"
	"errors"
)

type ShareRequest struct {
	ProjectID string
	// Event names the trigger, e.g. "approved" or "featured". It only
	// affects the announcement wording.
	Event string
}

// DispatchResult is the per-platform outcome of one Share call. A failed
// platform shows up here with its error text; it never aborts the others.
type DispatchResult struct {
	Platform string     `json:"platform"`
	Status   PostStatus `json:"status"`
	PostURL  string     `json:"post_url,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type ListPostsRequest struct {
	ProjectID string
	Platform  string
	Status    string
}

type Service interface {
	// Share fans the project announcement out to every enabled and
	// credentialed platform concurrently. Only failing to load the
	// project is fatal; per-platform failures land in the results.
	Share(ctx context.Context, req ShareRequest) ([]DispatchResult, error)
	ListPosts(ctx context.Context, req ListPostsRequest) ([]SocialPost, error)
	Platforms(ctx context.Context) ([]Platform, error)
	SetPlatformEnabled(ctx context.Context, id string, enabled bool) (Platform, error)
}

// RateLimiter answers whether a platform may post right now. A nil or
// unreachable limiter allows the post; the limit is a courtesy to the
// platforms, not a correctness requirement.
type RateLimiter interface {
	Allow(ctx context.Context, key string, maxPerHour int) bool
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrProjectNotFound = errors.New("project_not_found")
	ErrProjectNotLive  = errors.New("project_not_live")
)
