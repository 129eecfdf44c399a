package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - адрес сервиса LTI-сессий. Файл конфигурации необязателен,
// значения можно задать переменными AUTH_ADDR, AUTH_TOKEN, AUTH_TIMEOUT.
type Config struct {
	Addr    string        `mapstructure:"ADDR"`
	Token   string        `mapstructure:"TOKEN"`
	Timeout time.Duration `mapstructure:"TIMEOUT"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("ADDR", "")
	v.SetDefault("TOKEN", "")
	v.SetDefault("TIMEOUT", 5*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("ADDR is required")
	}

	return &cfg, nil
}
