package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Sync     SyncConfig     `yaml:"sync"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env-default:""`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"AUTH_SECRET" env-default:""`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// SyncConfig tunes the playback synchronization core. Defaults match the
// behavior the protocol was designed around; tests shrink them.
type SyncConfig struct {
	SettleWindow  time.Duration `yaml:"settle_window" env-default:"500ms"`
	StaleAfter    time.Duration `yaml:"stale_after" env-default:"10s"`
	StalePoll     time.Duration `yaml:"stale_poll" env-default:"5s"`
	SeekTolerance float64       `yaml:"seek_tolerance" env-default:"1"`
	ReconnectBase time.Duration `yaml:"reconnect_base" env-default:"1s"`
	ReconnectCap  time.Duration `yaml:"reconnect_cap" env-default:"30s"`
	MaxReconnects int           `yaml:"max_reconnects" env-default:"5"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8081"
	}
	if c.Sync.SettleWindow <= 0 {
		c.Sync.SettleWindow = 500 * time.Millisecond
	}
	if c.Sync.StaleAfter <= 0 {
		c.Sync.StaleAfter = 10 * time.Second
	}
	if c.Sync.StalePoll <= 0 {
		c.Sync.StalePoll = 5 * time.Second
	}
	if c.Sync.SeekTolerance <= 0 {
		c.Sync.SeekTolerance = 1
	}
	if c.Sync.MaxReconnects <= 0 {
		c.Sync.MaxReconnects = 5
	}
}
