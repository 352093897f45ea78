package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/socialshare/domain"
)

type Factory struct {
	creds config.DiscordCredentials
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{creds: cfg.Social.Discord}
}

func (f *Factory) Platform() string { return domain.PlatformDiscord }

func (f *Factory) NewAdapter() (domain.Adapter, error) {
	if !f.creds.Present() {
		return nil, domain.ErrNotConfigured
	}
	return &Adapter{
		webhookURL: f.creds.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Adapter posts an embed through an incoming webhook. ?wait=true makes
// Discord return the created message instead of a bare 204.
type Adapter struct {
	webhookURL string
	client     *http.Client
}

func (a *Adapter) Platform() string { return domain.PlatformDiscord }

// Embeds have no single text body; the stored rendering is the embed's
// visible lines in order.
func (a *Adapter) Render(content domain.PostContent) string {
	parts := []string{content.Title}
	if tagline := strings.TrimSpace(content.Tagline); tagline != "" {
		parts = append(parts, tagline)
	}
	parts = append(parts, content.URL)
	return strings.Join(parts, "\n")
}

type embed struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image,omitempty"`
}

func (a *Adapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	e := embed{
		Title:       content.Title,
		URL:         content.URL,
		Description: content.Tagline,
	}
	if content.ImageURL != "" {
		e.Image = &struct {
			URL string `json:"url"`
		}{URL: content.ImageURL}
	}

	body, err := json.Marshal(map[string]any{"embeds": []embed{e}})
	if err != nil {
		return domain.PostResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return domain.PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return domain.PostResult{}, fmt.Errorf("%w: webhook returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return domain.PostResult{}, err
		}
	}

	// Webhooks do not expose a public message URL.
	return domain.PostResult{ExternalID: payload.ID}, nil
}
