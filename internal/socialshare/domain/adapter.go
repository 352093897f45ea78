package domain

import (
	"context"
	"errors"
)

// PostContent is the platform-neutral description of what to announce.
// Adapters format it to their platform's constraints.
type PostContent struct {
	Title    string
	URL      string
	Tagline  string
	ImageURL string
}

type PostResult struct {
	PostURL    string
	ExternalID string
}

// Adapter publishes one piece of content to one platform. Render returns
// the text the platform will actually receive, formatted to its
// constraints; the post row stores that text so the audit log reflects
// what went out, not the neutral source content.
type Adapter interface {
	Platform() string
	Render(content PostContent) string
	Publish(ctx context.Context, content PostContent) (PostResult, error)
}

// AdapterFactory builds an Adapter from whatever credentials the platform
// needs. NewAdapter returns ErrNotConfigured when they are absent, which
// callers treat as "skip this platform", not as a failure.
type AdapterFactory interface {
	Platform() string
	NewAdapter() (Adapter, error)
}

var (
	ErrNotConfigured    = errors.New("platform_not_configured")
	ErrPlatformNotFound = errors.New("platform_not_found")
	ErrPlatformRejected = errors.New("platform_rejected")
)
