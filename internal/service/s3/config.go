package s3

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config - параметры бакета для временных файлов.
// Если ключи не заданы, используется стандартная цепочка учетных данных AWS.
type Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Region          string `mapstructure:"Region"`
	Endpoint        string `mapstructure:"Endpoint"`
	UsePathStyle    bool   `mapstructure:"UsePathStyle"`
}

// NewConfig читает файл конфигурации (если есть) и переменные S3_*.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("S3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"AccessKeyID", "SecretAccessKey", "Bucket", "Endpoint", "UsePathStyle"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("Region", "us-east-1")

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

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("Bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, fmt.Errorf("AccessKeyID and SecretAccessKey must be set together")
	}

	return &cfg, nil
}
