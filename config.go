package cairn

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type RunMode string

const (
	RunModeProd RunMode = "production"
	RunModeDev  RunMode = "development"
)

type WorldConfig struct {
	RedisAddress  string `config:"CAIRN_REDIS_ADDRESS"`
	RedisPassword string `config:"CAIRN_REDIS_PASSWORD"`
	Port          string `config:"CAIRN_PORT"`
	Mode          string `config:"CAIRN_MODE"`
	LogLevel      string `config:"CAIRN_LOG_LEVEL"`
}

func defaultConfig() WorldConfig {
	return WorldConfig{
		RedisAddress: "localhost:6379",
		Port:         "4040",
		Mode:         string(RunModeDev),
		LogLevel:     "info",
	}
}

func loadWorldConfig() (WorldConfig, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return WorldConfig{}, eris.Wrap(err, "failed to load world config")
	}
	if cfg.Mode != string(RunModeProd) && cfg.Mode != string(RunModeDev) {
		return WorldConfig{}, eris.Errorf("CAIRN_MODE must be %q or %q, got %q", RunModeProd, RunModeDev, cfg.Mode)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return WorldConfig{}, eris.Wrapf(err, "invalid CAIRN_LOG_LEVEL %q", cfg.LogLevel)
	}
	return cfg, nil
}
