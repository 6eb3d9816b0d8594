// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/go-petr/pet-ledger/pkg/currencypkg"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// ErrUnsupportedDriver indicates unknown DB_DRIVER value.
var ErrUnsupportedDriver = errors.New("unsupported db driver")

// ErrUnsupportedCurrency indicates unknown CURRENCY value.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBSource          string        `mapstructure:"DB_SOURCE"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	ServerAddress     string        `mapstructure:"SERVER_ADDRESS"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	Environment       string        `mapstructure:"GO_ENV"`
	Currency          string        `mapstructure:"CURRENCY"`
	LockWaitTimeout   time.Duration `mapstructure:"LOCK_WAIT_TIMEOUT"`
	KafkaBrokers      []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string        `mapstructure:"KAFKA_TOPIC"`
	TelemetryEnabled  bool          `mapstructure:"TELEMETRY_ENABLED"`
	TelemetryInterval time.Duration `mapstructure:"TELEMETRY_EXPORT_INTERVAL"`
}

var defaults = map[string]any{
	"DB_DRIVER":            DriverPostgres,
	"DB_SOURCE":            "",
	"DB_MAX_OPEN_CONNS":    25,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": 5 * time.Minute,
	"SERVER_ADDRESS":       "0.0.0.0:8080",
	"SHUTDOWN_TIMEOUT":     10 * time.Second,
	"GO_ENV":               "production",
	"CURRENCY":             currencypkg.USD,
	"LOCK_WAIT_TIMEOUT":    5 * time.Second,
	"KAFKA_BROKERS":        []string{},
	"KAFKA_TOPIC":          "ledger_events",

	"TELEMETRY_ENABLED":         false,
	"TELEMETRY_EXPORT_INTERVAL": time.Minute,
}

// Load read configuration from file or environment variables.
//
// Environment variables take precedence over app.env found in path.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

// Validate checks that the configuration can be used to start the application.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE is required for %s driver", c.DBDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.DBDriver)
	}

	if !currencypkg.IsSupportedCurrency(c.Currency) {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, c.Currency)
	}

	return nil
}

// CurrencyDigits returns the number of minor unit digits of the configured currency.
func (c Config) CurrencyDigits() int32 {
	d, ok := currencypkg.FractionDigits(c.Currency)
	if !ok {
		return 2
	}

	return d
}
