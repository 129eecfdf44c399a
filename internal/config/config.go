package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Redis    RedisConfig    `mapstructure:"Redis"`
	Mux      MuxConfig      `mapstructure:"Mux"`
	Queue    QueueConfig    `mapstructure:"Queue"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"Port" validate:"required"`
	GRPCPort       string   `mapstructure:"GRPCPort" validate:"required"`
	BaseURL        string   `mapstructure:"BaseURL"`
	AllowedOrigins []string `mapstructure:"AllowedOrigins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host" validate:"required"`
	Port     string `mapstructure:"Port" validate:"required"`
	User     string `mapstructure:"User" validate:"required"`
	Password string `mapstructure:"Password" validate:"required"`
	Name     string `mapstructure:"Name" validate:"required"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type RedisConfig struct {
	// Пустой адрес означает кэш в памяти процесса.
	Addr            string `mapstructure:"Addr"`
	Password        string `mapstructure:"Password"`
	DB              int    `mapstructure:"DB"`
	CacheTTLSeconds int    `mapstructure:"CacheTTLSeconds" validate:"gte=0"`
}

type MuxConfig struct {
	TokenID                        string `mapstructure:"TokenID" validate:"required"`
	TokenSecret                    string `mapstructure:"TokenSecret" validate:"required"`
	UploadURLValiditySeconds       int    `mapstructure:"UploadURLValiditySeconds" validate:"gt=0"`
	EnableSignedPlayback           bool   `mapstructure:"EnableSignedPlayback"`
	SignedURLExpirySeconds         int    `mapstructure:"SignedURLExpirySeconds" validate:"gt=0"`
	SigningKeyID                   string `mapstructure:"SigningKeyID" validate:"required_if=EnableSignedPlayback true"`
	SigningPrivateKey              string `mapstructure:"SigningPrivateKey" validate:"required_if=EnableSignedPlayback true"`
	WebhookSigningSecret           string `mapstructure:"WebhookSigningSecret"`
	WebhookToleranceSeconds        int    `mapstructure:"WebhookToleranceSeconds" validate:"gte=0"`
	AssetInstructorAccessLimitedTo string `mapstructure:"AssetInstructorAccessLimitedTo" validate:"omitempty,oneof=ORGANIZATION COURSE RUN"`
	CanInstructorsDeleteAssets     bool   `mapstructure:"CanInstructorsDeleteAssets"`
	LanguageCode                   string `mapstructure:"LanguageCode" validate:"required"`
}

type QueueConfig struct {
	Driver      string `mapstructure:"Driver" validate:"oneof=local sqs"`
	SQSQueueURL string `mapstructure:"SQSQueueURL" validate:"required_if=Driver sqs"`
	Workers     int    `mapstructure:"Workers" validate:"gt=0"`
}

type LogConfig struct {
	Mode string `mapstructure:"Mode"`
}

var defaults = map[string]interface{}{
	"Server.Port":           "2525",
	"Server.GRPCPort":       "50051",
	"Server.BaseURL":        "",
	"Server.AllowedOrigins": []string{"*"},

	"Database.Host":     "",
	"Database.Port":     "5432",
	"Database.User":     "",
	"Database.Password": "",
	"Database.Name":     "muxlti",
	"Database.SSLMode":  "disable",

	"Redis.Addr":            "",
	"Redis.Password":        "",
	"Redis.DB":              0,
	"Redis.CacheTTLSeconds": 300,

	"Mux.TokenID":                        "",
	"Mux.TokenSecret":                    "",
	"Mux.UploadURLValiditySeconds":       2 * 24 * 60 * 60,
	"Mux.EnableSignedPlayback":           true,
	"Mux.SignedURLExpirySeconds":         7 * 24 * 60 * 60,
	"Mux.SigningKeyID":                   "",
	"Mux.SigningPrivateKey":              "",
	"Mux.WebhookSigningSecret":           "",
	"Mux.WebhookToleranceSeconds":        300,
	"Mux.AssetInstructorAccessLimitedTo": "",
	"Mux.CanInstructorsDeleteAssets":     true,
	"Mux.LanguageCode":                   "en",

	"Queue.Driver":      "local",
	"Queue.SQSQueueURL": "",
	"Queue.Workers":     2,

	"Log.Mode": "development",
}

// Поля, которые нужны служебным командам без полной конфигурации сервиса.
var (
	MuxAPIFields   = []string{"Mux.TokenID", "Mux.TokenSecret"}
	DatabaseFields = []string{"Database.Host", "Database.Port", "Database.User", "Database.Password", "Database.Name"}
)

// NewConfig читает конфигурацию и проверяет ее целиком.
func NewConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load читает конфигурацию из env-файла и переменных окружения без проверки значений.
// Ключ "Database.Host" читается из переменной DATABASE_HOST и т.д.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("Warning: using only environment variables: %v\n", err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет обязательные поля и допустимые значения.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateFields проверяет только перечисленные поля, например "Mux.TokenID".
func (c *Config) ValidateFields(fields ...string) error {
	if err := validator.New().StructPartial(c, fields...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func (c *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *MuxConfig) UploadURLValidity() time.Duration {
	return time.Duration(c.UploadURLValiditySeconds) * time.Second
}

func (c *MuxConfig) SignedURLExpiry() time.Duration {
	return time.Duration(c.SignedURLExpirySeconds) * time.Second
}

func (c *MuxConfig) WebhookTolerance() time.Duration {
	return time.Duration(c.WebhookToleranceSeconds) * time.Second
}
