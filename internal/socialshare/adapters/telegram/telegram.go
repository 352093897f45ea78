package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/socialshare/domain"
)

type Factory struct {
	creds config.TelegramCredentials
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{creds: cfg.Social.Telegram}
}

func (f *Factory) Platform() string { return domain.PlatformTelegram }

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
	creds  config.TelegramCredentials
	client *http.Client
}

func (a *Adapter) Platform() string { return domain.PlatformTelegram }

func (a *Adapter) Render(content domain.PostContent) string {
	return formatMessage(content)
}

func (a *Adapter) Publish(ctx context.Context, content domain.PostContent) (domain.PostResult, error) {
	body, err := json.Marshal(map[string]any{
		"chat_id":    a.creds.ChatID,
		"text":       a.Render(content),
		"parse_mode": "HTML",
	})
	if err != nil {
		return domain.PostResult{}, err
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", a.creds.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PostResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PostResult{}, fmt.Errorf("%w: sendMessage returned %d", domain.ErrPlatformRejected, resp.StatusCode)
	}

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PostResult{}, err
	}
	if !payload.OK {
		return domain.PostResult{}, fmt.Errorf("%w: sendMessage not ok", domain.ErrPlatformRejected)
	}

	result := domain.PostResult{ExternalID: fmt.Sprintf("%d", payload.Result.MessageID)}
	// Public channels expose t.me links; private chat ids do not.
	if strings.HasPrefix(a.creds.ChatID, "@") {
		result.PostURL = fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(a.creds.ChatID, "@"), payload.Result.MessageID)
	}
	return result, nil
}

func formatMessage(content domain.PostContent) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(content.Title))
	b.WriteString("</b>\n")
	if tagline := strings.TrimSpace(content.Tagline); tagline != "" {
		b.WriteString(html.EscapeString(tagline))
		b.WriteString("\n")
	}
	b.WriteString(html.EscapeString(content.URL))
	return b.String()
}
