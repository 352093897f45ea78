package facebook

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

const graphBase = "https://graph.facebook.com/v19.0"

type Factory struct {
	creds config.FacebookCredentials
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{creds: cfg.Social.Facebook}
}

func (f *Factory) Platform() string { return domain.PlatformFacebook }

func (f *Factory) NewAdapter() (domain.Adapter, error) {
	if !f.creds.Present() {
		return nil, domain.ErrNotConfigured
	}
	return &Adapter{
		creds:  f.creds,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Adapter posts a link to the configured page's feed through the Graph API.
type Adapter struct {
	creds  config.FacebookCredentials
	client *http.Client
}

func (a *Adapter) Platform() string { return domain.PlatformFacebook }

func (a *Adapter) Render(content domain.PostContent) string {
	return formatMessage(content) + "\n" + content.URL
}

func (a *Adapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	form := url.Values{}
	form.Set("message", formatMessage(content))
	form.Set("link", content.URL)
	form.Set("access_token", a.creds.AccessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", graphBase, a.creds.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PostResult{}, fmt.Errorf("%w: graph api returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PostResult{}, err
	}

	return domain.PostResult{
		PostURL:    "https://www.facebook.com/" + payload.ID,
		ExternalID: payload.ID,
	}, nil
}

func formatMessage(content domain.PostContent) string {
	if tagline := strings.TrimSpace(content.Tagline); tagline != "" {
		return content.Title + "\n\n" + tagline
	}
	return content.Title
}
