package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/socialshare/domain"
)

const tweetURL = "https://api.twitter.com/2/tweets"

// Tweet text caps at 280 characters; links always count as 23.
const (
	maxTweetLen = 280
	linkWeight  = 23
)

type Factory struct {
	creds config.TwitterCredentials
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{creds: cfg.Social.Twitter}
}

func (f *Factory) Platform() string { return domain.PlatformTwitter }

func (f *Factory) NewAdapter() (domain.Adapter, error) {
	if !f.creds.Present() {
		return nil, domain.ErrNotConfigured
	}
	return &Adapter{
		creds:  f.creds,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	creds  config.TwitterCredentials
	client *http.Client
}

func (a *Adapter) Platform() string { return domain.PlatformTwitter }

func (a *Adapter) Render(content domain.PostContent) string {
	return FormatTweet(content)
}

func (a *Adapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	body, err := json.Marshal(map[string]string{"text": a.Render(content)})
	if err != nil {
		return domain.PostResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tweetURL, bytes.NewReader(body))
	if err != nil {
		return domain.PostResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.creds.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return domain.PostResult{}, fmt.Errorf("%w: tweets endpoint returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PostResult{}, err
	}

	return domain.PostResult{
		PostURL:    "https://twitter.com/i/web/status/" + payload.Data.ID,
		ExternalID: payload.Data.ID,
	}, nil
}

// FormatTweet fits title, tagline and link into the 280 character budget,
// truncating the text before ever touching the link.
func FormatTweet(content domain.PostContent) string {
	budget := maxTweetLen - linkWeight - 1
	text := content.Title
	if tagline := strings.TrimSpace(content.Tagline); tagline != "" {
		text = text + " - " + tagline
	}
	if utf8.RuneCountInString(text) > budget {
		runes := []rune(text)
		text = string(runes[:budget-3]) + "..."
	}
	return text + "\n" + content.URL
}
