package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

// ICEServer is one STUN/TURN entry handed to browsers.
type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	ImplicitRooms         bool              `mapstructure:"implicit_rooms"`
	RequireAuthentication bool              `mapstructure:"require_authentication"`
	MediaScope            domain.MediaScope `mapstructure:"media_scope"`
	Backpressure          string            `mapstructure:"backpressure"`

	PasswordCost int           `mapstructure:"password_cost"`
	AuthAttempts int           `mapstructure:"auth_attempts"`
	AuthWindow   time.Duration `mapstructure:"auth_window"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default), then lets
// VOICE_* environment variables override single keys, e.g.
// VOICE_MEDIA_SCOPE=global.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit file name. A missing file is not an
// error: defaults and environment still apply.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("media_scope", string(cfg.MediaScope)).
		Bool("implicit_rooms", cfg.ImplicitRooms).
		Bool("require_authentication", cfg.RequireAuthentication).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("implicit_rooms", true)
	v.SetDefault("require_authentication", false)
	v.SetDefault("media_scope", string(domain.MediaScopeRoom))
	v.SetDefault("backpressure", "drop")
	v.SetDefault("password_cost", 10)
	v.SetDefault("auth_attempts", 5)
	v.SetDefault("auth_window", "1m")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrValidation, c.Port)
	}
	if !c.MediaScope.Valid() {
		return fmt.Errorf("%w: media_scope must be room or global, got %q", domain.ErrValidation, c.MediaScope)
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		return fmt.Errorf("%w: backpressure must be drop or kick, got %q", domain.ErrValidation, c.Backpressure)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("%w: send_buffer must be positive", domain.ErrValidation)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("%w: ping_period must be positive", domain.ErrValidation)
	}
	if c.ReadLimit <= 0 {
		return fmt.Errorf("%w: read_limit must be positive", domain.ErrValidation)
	}
	return nil
}

// PongWait is how long the server waits for a pong before dropping a peer.
func (c *Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}
