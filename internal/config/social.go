package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SocialPlatformSettings is the file-level knob set for one platform.
// Enablement here is the operator default; admins can still flip the
// per-platform row in the database without touching the file.
type SocialPlatformSettings struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxPostsPerHour int  `mapstructure:"maxPostsPerHour"`
}

// SocialConfig is the parsed social.yml content.
type SocialConfig struct {
	Platforms map[string]SocialPlatformSettings `mapstructure:"platforms"`
}

func DefaultSocialConfig() SocialConfig {
	return SocialConfig{
		Platforms: map[string]SocialPlatformSettings{
			"reddit":   {Enabled: true, MaxPostsPerHour: 10},
			"twitter":  {Enabled: true, MaxPostsPerHour: 25},
			"facebook": {Enabled: true, MaxPostsPerHour: 10},
			"discord":  {Enabled: true, MaxPostsPerHour: 30},
			"telegram": {Enabled: true, MaxPostsPerHour: 20},
		},
	}
}

// SocialConfigHolder exposes the current SocialConfig and hot-reloads it
// when social.yml changes on disk.
type SocialConfigHolder struct {
	current atomic.Value // holds SocialConfig
}

func NewSocialConfigHolder() (*SocialConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("social")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/showyourproject/config")
	v.AddConfigPath("/etc/showyourproject")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SYP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSocialConfig()
		v.SetDefault("platforms", defaults.Platforms)
	}

	var cfg SocialConfig
	if err := v.UnmarshalKey("platforms", &cfg.Platforms); err != nil {
		return nil, err
	}
	normalizeSocialConfig(&cfg)

	holder := &SocialConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SocialConfig
		if err := v.UnmarshalKey("platforms", &updated.Platforms); err != nil {
			log.Printf("[social-config] reload failed: %v", err)
			return
		}
		normalizeSocialConfig(&updated)
		holder.current.Store(updated)
		log.Printf("[social-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active SocialConfig snapshot.
func (h *SocialConfigHolder) Current() SocialConfig {
	if h == nil {
		return DefaultSocialConfig()
	}
	if cfg, ok := h.current.Load().(SocialConfig); ok {
		return cfg
	}
	return DefaultSocialConfig()
}

// Platform returns the settings for one platform, falling back to defaults
// for platforms absent from the file.
func (h *SocialConfigHolder) Platform(id string) SocialPlatformSettings {
	cfg := h.Current()
	if settings, ok := cfg.Platforms[strings.ToLower(strings.TrimSpace(id))]; ok {
		return settings
	}
	if settings, ok := DefaultSocialConfig().Platforms[strings.ToLower(strings.TrimSpace(id))]; ok {
		return settings
	}
	return SocialPlatformSettings{}
}

func normalizeSocialConfig(cfg *SocialConfig) {
	if cfg.Platforms == nil {
		cfg.Platforms = DefaultSocialConfig().Platforms
		return
	}
	normalized := make(map[string]SocialPlatformSettings, len(cfg.Platforms))
	for id, settings := range cfg.Platforms {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			continue
		}
		if settings.MaxPostsPerHour <= 0 {
			settings.MaxPostsPerHour = DefaultSocialConfig().Platforms[key].MaxPostsPerHour
			if settings.MaxPostsPerHour <= 0 {
				settings.MaxPostsPerHour = 10
			}
		}
		normalized[key] = settings
	}
	cfg.Platforms = normalized
}
