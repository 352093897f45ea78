package twitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/showyourproject/backend/internal/socialshare/domain"
)

func TestFormatTweet_ShortContentKeptIntact(t *testing.T) {
	text := FormatTweet(domain.PostContent{
		Title:   "Widget Factory",
		Tagline: "Widgets on demand",
		URL:     "https://widgets.example.com",
	})

	if !strings.HasPrefix(text, "Widget Factory - Widgets on demand\n") {
		t.Fatalf("unexpected tweet text: %q", text)
	}
	if !strings.HasSuffix(text, "https://widgets.example.com") {
		t.Fatalf("link missing from tweet: %q", text)
	}
}

func TestFormatTweet_LongContentTruncatedBeforeLink(t *testing.T) {
	text := FormatTweet(domain.PostContent{
		Title:   strings.Repeat("a", 400),
		Tagline: "never shown",
		URL:     "https://widgets.example.com",
	})

	lines := strings.SplitN(text, "\n", 2)
	if len(lines) != 2 {
		t.Fatalf("expected text and link lines, got %q", text)
	}
	if !strings.HasSuffix(lines[0], "...") {
		t.Fatalf("expected truncation marker, got %q", lines[0])
	}
	if lines[1] != "https://widgets.example.com" {
		t.Fatalf("link must survive truncation, got %q", lines[1])
	}
	if utf8.RuneCountInString(lines[0])+linkWeight+1 > maxTweetLen {
		t.Fatalf("tweet over budget: %d runes of text", utf8.RuneCountInString(lines[0]))
	}
}
