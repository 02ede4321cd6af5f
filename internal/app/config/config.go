package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	LogLevel    string
	LogFormat   string   // text или json
	CORSOrigins []string // "*" разрешает любой origin без cookies
	API         APIConfig
	Session     SessionConfig
	Redis       RedisConfig `mapstructure:"-"`
}

// Удалённый API круассанов
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	CookieName    string
	TTL           time.Duration
	SubmitLockTTL time.Duration
}

type RedisConfig struct {
	Host        string
	Password    string
	Port        int
	User        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// Enabled — Redis задан в окружении; иначе сессии живут в памяти
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

const (
	envRedisHost = "REDIS_HOST"
	envRedisPort = "REDIS_PORT"
	envRedisUser = "REDIS_USER"
	envRedisPass = "REDIS_PASSWORD"
)

func NewConfig() (*Config, error) {
	var err error

	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warnf("config %q not found, using defaults", configName)
	} else {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Infof("config file changed: %s (restart to apply)", e.Name)
		})
		v.WatchConfig()
	}

	cfg := &Config{}
	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, err
	}

	// инициализация Redis конфигурации из env
	cfg.Redis.Host = os.Getenv(envRedisHost)
	if cfg.Redis.Host != "" {
		cfg.Redis.Port, err = strconv.Atoi(os.Getenv(envRedisPort))
		if err != nil {
			return nil, fmt.Errorf("redis port must be int value: %w", err)
		}
	}
	cfg.Redis.Password = os.Getenv(envRedisPass)
	cfg.Redis.User = os.Getenv(envRedisUser)
	cfg.Redis.DialTimeout = 10 * time.Second
	cfg.Redis.ReadTimeout = 10 * time.Second

	log.Info("config parsed")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ServiceHost", "0.0.0.0")
	v.SetDefault("ServicePort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("CORSOrigins", []string{"*"})
	v.SetDefault("API.BaseURL", "https://api.socgen.cloud")
	v.SetDefault("API.Timeout", "10s")
	v.SetDefault("Session.CookieName", "croissants_session")
	v.SetDefault("Session.TTL", "720h")
	v.SetDefault("Session.SubmitLockTTL", "30s")
}
