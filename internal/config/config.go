package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Points   PointsConfig
	Featured FeaturedConfig
	Social   SocialCredentials

	SchedulerInterval time.Duration
}

// PointsConfig carries the award amounts for the recognized actions.
type PointsConfig struct {
	LikeAward  int64
	ClickAward int64
}

// FeaturedConfig seeds the featured_settings row on first boot. The live
// values are always read from the database row so admins can change them
// without a restart.
type FeaturedConfig struct {
	MaxSlots     int
	CostPoints   int64
	DurationDays int
}

// SocialCredentials holds per-platform secrets. Enablement and rate limits
// live in social.yml and the social_platforms table; secrets only ever come
// from the environment.
type SocialCredentials struct {
	Reddit   RedditCredentials
	Twitter  TwitterCredentials
	Facebook FacebookCredentials
	Discord  DiscordCredentials
	Telegram TelegramCredentials
}

type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Subreddit    string
}

func (c RedditCredentials) Present() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != "" && c.Subreddit != ""
}

type TwitterCredentials struct {
	BearerToken string
}

func (c TwitterCredentials) Present() bool { return c.BearerToken != "" }

type FacebookCredentials struct {
	PageID      string
	AccessToken string
}

func (c FacebookCredentials) Present() bool { return c.PageID != "" && c.AccessToken != "" }

type DiscordCredentials struct {
	WebhookURL string
}

func (c DiscordCredentials) Present() bool { return c.WebhookURL != "" }

type TelegramCredentials struct {
	BotToken string
	ChatID   string
}

func (c TelegramCredentials) Present() bool { return c.BotToken != "" && c.ChatID != "" }

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "showyourproject"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "showyourproject"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Points: PointsConfig{
			LikeAward:  getenvInt64("POINTS_LIKE_AWARD", 5),
			ClickAward: getenvInt64("POINTS_CLICK_AWARD", 10),
		},
		Featured: FeaturedConfig{
			MaxSlots:     getenvInt("FEATURED_MAX_SLOTS", 6),
			CostPoints:   getenvInt64("FEATURED_COST_POINTS", 500),
			DurationDays: getenvInt("FEATURED_DURATION_DAYS", 14),
		},
		Social: SocialCredentials{
			Reddit: RedditCredentials{
				ClientID:     strings.TrimSpace(getenv("REDDIT_CLIENT_ID", "")),
				ClientSecret: strings.TrimSpace(getenv("REDDIT_CLIENT_SECRET", "")),
				Username:     strings.TrimSpace(getenv("REDDIT_USERNAME", "")),
				Password:     strings.TrimSpace(getenv("REDDIT_PASSWORD", "")),
				Subreddit:    strings.TrimSpace(getenv("REDDIT_SUBREDDIT", "")),
			},
			Twitter: TwitterCredentials{
				BearerToken: strings.TrimSpace(getenv("TWITTER_BEARER_TOKEN", "")),
			},
			Facebook: FacebookCredentials{
				PageID:      strings.TrimSpace(getenv("FACEBOOK_PAGE_ID", "")),
				AccessToken: strings.TrimSpace(getenv("FACEBOOK_ACCESS_TOKEN", "")),
			},
			Discord: DiscordCredentials{
				WebhookURL: strings.TrimSpace(getenv("DISCORD_WEBHOOK_URL", "")),
			},
			Telegram: TelegramCredentials{
				BotToken: strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
				ChatID:   strings.TrimSpace(getenv("TELEGRAM_CHAT_ID", "")),
			},
		},

		SchedulerInterval: getenvDuration("SCHEDULER_INTERVAL", time.Minute),
	}
}

// Module provides Config and the hot-reloadable social platform config.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSocialConfigHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
