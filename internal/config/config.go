package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env        string        `mapstructure:"env"         json:"env"         validate:"required,oneof=development production test"`
	Host       string        `mapstructure:"host"        json:"host"`
	LogPath    string        `mapstructure:"log_path"    json:"log_path"`
	SessionID  string        `mapstructure:"session_id"  json:"session_id"  validate:"required"`
	Port       int           `mapstructure:"port"        json:"port"        validate:"gte=0,lte=65535"`
	SessionTTL time.Duration `mapstructure:"session_ttl" json:"session_ttl" validate:"gte=0"`
}

type Api struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  json:"timeout"`
}

type Storage struct {
	Backend string `mapstructure:"backend" json:"backend" validate:"required,oneof=memory file redis postgres"`
	Path    string `mapstructure:"path"    json:"path"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int    `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int    `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Api         `mapstructure:"api"         json:"api"`
	Storage     `mapstructure:"storage"     json:"storage"`
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "localhost")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.session_id", "default")
	v.SetDefault("application.session_ttl", "30m")
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", ".storefront")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "storefront")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.database", 0)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
}

// Load reads env/<filename>.yaml, falling back to defaults when the file does
// not exist. STOREFRONT_* environment variables override both.
func Load(c context.Context, filename string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.AddConfigPath("./env")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Debug().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Debug().Msg("config file not found, using defaults")
	}
	logger.Debug().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Debug().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Debug().Msg("unmarshaled config")

	logger = logger.With().Str(log.KeyProcess, "validating config").Logger()
	logger.Debug().Msg("validating config")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, cfg); err != nil {
		err = fmt.Errorf("failed validating config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Debug().Any(log.KeyConfig, cfg).Msg("validated config")

	return &cfg, nil
}

// Get loads the config once per process and fails fatally when it cannot.
func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg, err := Load(c, filename)
		if err != nil {
			zerolog.Ctx(c).Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
	})
	return config
}
