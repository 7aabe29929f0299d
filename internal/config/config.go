package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"catalog-sync/internal/utils"
)

const EnvPrefix = "CATALOG_SYNC"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Security SecurityConfig `mapstructure:"security"`
	App      AppConfig      `mapstructure:"app"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	// File is the config file that was read, empty when only defaults and env were used.
	File string `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"required,oneof=oracle mysql mariadb postgresql"`
	Host            string            `mapstructure:"host" validate:"required"`
	Port            int               `mapstructure:"port" validate:"gte=0,lte=65535"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username" validate:"required"`
	Password        string            `mapstructure:"password"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration     `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration     `mapstructure:"health_timeout"`
}

type SchemaConfig struct {
	Source string `mapstructure:"source" validate:"required"`
	Target string `mapstructure:"target" validate:"required,nefield=Source"`
}

type SecurityConfig struct {
	CredentialKey string `mapstructure:"credential_key" validate:"required,len=32"`
}

type AppConfig struct {
	BatchSize int `mapstructure:"batch_size" validate:"gt=0"`
}

type SyncConfig struct {
	DryRun         bool          `mapstructure:"dry_run"`
	RawRoot        string        `mapstructure:"raw_root" validate:"required,startswith=/"`
	TableSchema    string        `mapstructure:"table_schema" validate:"required"`
	DefaultGroupID int64         `mapstructure:"default_group_id"`
	DefaultMaxTime int64         `mapstructure:"default_max_time"`
	History        HistoryConfig `mapstructure:"history"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	From    int64  `mapstructure:"from"`
	To      int64  `mapstructure:"to" validate:"gtefield=From"`
	Status  string `mapstructure:"status" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job" validate:"required"`
}

// Load reads config.yaml from ./configs or the working directory, applies
// CATALOG_SYNC_* environment overrides and validates the result.
func Load() (*Config, error) {
	return LoadFrom("./configs", ".")
}

// LoadFrom is Load with explicit search paths.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, utils.NewConfigError("error reading config file", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, utils.NewConfigError("error unmarshaling config", err)
	}
	config.File = v.ConfigFileUsed()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return utils.NewConfigError("invalid fields: "+strings.Join(fields, ", "), err)
		}
		return utils.NewConfigError("validation failed", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "oracle")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.database", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "30s")
	v.SetDefault("database.health_timeout", "10s")

	// Schema defaults
	v.SetDefault("schema.source", "")
	v.SetDefault("schema.target", "")

	// Security defaults
	v.SetDefault("security.credential_key", "")

	// App defaults
	v.SetDefault("app.batch_size", 1000)

	// Sync defaults
	v.SetDefault("sync.dry_run", false)
	v.SetDefault("sync.raw_root", "/raw_data")
	v.SetDefault("sync.table_schema", "ingestion")
	v.SetDefault("sync.default_group_id", 25251325)
	v.SetDefault("sync.default_max_time", 900)
	v.SetDefault("sync.history.enabled", false)
	v.SetDefault("sync.history.from", 0)
	v.SetDefault("sync.history.to", 0)
	v.SetDefault("sync.history.status", "SUCCESS")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "catalog_sync")
}
