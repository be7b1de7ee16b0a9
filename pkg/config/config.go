package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

const envPrefix = "CARTSYNC"

type HTTPConfig struct {
	Env             string        `mapstructure:"env" validate:"oneof=local dev prod"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

// PricingConfig amounts are in backend units, whatever the backend uses.
type PricingConfig struct {
	FreeDeliveryThreshold int64 `mapstructure:"free_delivery_threshold" validate:"min=0"`
	FlatDeliveryFee       int64 `mapstructure:"flat_delivery_fee" validate:"min=0"`
}

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Backend BackendConfig `mapstructure:"backend"`
	Storage StorageConfig `mapstructure:"storage"`
	Pricing PricingConfig `mapstructure:"pricing"`
}

// Load reads config.yaml from path (or the working directory when path is
// empty). Values from .env and CARTSYNC_* variables override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file, %s\n", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Error reading config file, %s\n", err)
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("Unable to decode into struct, %v\n", err)
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.env", EnvLocal)
	v.SetDefault("http.port", 8081)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("storage.driver", DriverSqlite)
	v.SetDefault("storage.dsn", "cartsync.db")
	v.SetDefault("pricing.free_delivery_threshold", 2500)
	v.SetDefault("pricing.flat_delivery_fee", 299)
}

// ConnectionString returns the DSN handed to sql.Open for the configured driver.
func (c *Config) ConnectionString() string {
	if c.Storage.Driver == DriverSqlite {
		return c.Storage.DSN + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return c.Storage.DSN
}
