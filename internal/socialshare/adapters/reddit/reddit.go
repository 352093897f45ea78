package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/socialshare/domain"
)

const (
	tokenURL  = "https://www.reddit.com/api/v1/access_token"
	submitURL = "https://oauth.reddit.com/api/submit"
	userAgent = "showyourproject-bot/1.0"
)

type Factory struct {
	creds config.RedditCredentials
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{creds: cfg.Social.Reddit}
}

func (f *Factory) Platform() string { return domain.PlatformReddit }

func (f *Factory) NewAdapter() (domain.Adapter, error) {
	if !f.creds.Present() {
		return nil, domain.ErrNotConfigured
	}
	return &Adapter{
		creds:  f.creds,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Adapter submits a link post to the configured subreddit. Reddit script
// apps authenticate with the password grant, so every publish fetches a
// fresh token first; tokens are short-lived and not worth caching at our
// posting volume.
type Adapter struct {
	creds  config.RedditCredentials
	client *http.Client
}

func (a *Adapter) Platform() string { return domain.PlatformReddit }

// Link posts carry the title and the target URL.
func (a *Adapter) Render(content domain.PostContent) string {
	return formatTitle(content) + "\n" + content.URL
}

func (a *Adapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return domain.PostResult{}, err
	}

	form := url.Values{}
	form.Set("sr", a.creds.Subreddit)
	form.Set("kind", "link")
	form.Set("title", formatTitle(content))
	form.Set("url", content.URL)
	form.Set("resubmit", "true")
	form.Set("api_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PostResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PostResult{}, fmt.Errorf("%w: submit returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				URL  string `json:"url"`
				Name string `json:"name"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PostResult{}, err
	}
	if len(payload.JSON.Errors) > 0 {
		return domain.PostResult{}, fmt.Errorf("%w: %v", domain.ErrPlatformRejected, payload.JSON.Errors[0])
	}

	return domain.PostResult{
		PostURL:    payload.JSON.Data.URL,
		ExternalID: payload.JSON.Data.Name,
	}, nil
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", a.creds.Username)
	form.Set("password", a.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrPlatformRejected)
	}
	return payload.AccessToken, nil
}

// Reddit link titles cap at 300 characters.
func formatTitle(content domain.PostContent) string {
	title := content.Title
	if tagline := strings.TrimSpace(content.Tagline); tagline != "" {
		title = title + " - " + tagline
	}
	if len(title) > 300 {
		title = title[:297] + "..."
	}
	return title
}
