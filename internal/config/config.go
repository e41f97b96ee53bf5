// Package config resolves svmigrate settings from flags, environment,
// .env files and an optional .svmigrate.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Keys shared by viper, flags and the config file.
const (
	KeyDatabaseURL     = "database_url"
	KeyProvider        = "provider"
	KeyDir             = "dir"
	KeyTable           = "table"
	KeyTransactionMode = "tx_mode"
	KeyDebug           = "debug"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL     string
	Provider        string `validate:"omitempty,oneof=postgres postgresql pg mysql mariadb sqlite sqlite3"`
	MigrationsDir   string `validate:"required"`
	LedgerTable     string `validate:"required"`
	TransactionMode string `validate:"omitempty,oneof=auto always never"`
	Debug           bool
	// File is the config file that was read, if any.
	File string
}

// New returns a viper instance with svmigrate's search paths, environment
// binding and defaults.
func New() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(".svmigrate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "svmigrate"))

	v.SetEnvPrefix("SVMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDir, "db/migrate")
	v.SetDefault(KeyTable, "schema_migrations")
	v.SetDefault(KeyTransactionMode, "auto")
	v.SetDefault(KeyDebug, false)
	return v, nil
}

// LoadConfig loads configuration from v. An explicit file must exist; the
// default search paths may find nothing.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	loadDotEnv()

	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	dir, err := homedir.Expand(v.GetString(KeyDir))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     v.GetString(KeyDatabaseURL),
		Provider:        v.GetString(KeyProvider),
		MigrationsDir:   dir,
		LedgerTable:     v.GetString(KeyTable),
		TransactionMode: v.GetString(KeyTransactionMode),
		Debug:           v.GetBool(KeyDebug),
		File:            v.ConfigFileUsed(),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RequireDatabase reports a missing database URL.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("no database configured: set --database-url, SVMIGRATE_DATABASE_URL or DATABASE_URL")
	}
	return nil
}

// loadDotEnv loads .env, then .env.local with higher priority. Variables
// already set in the environment win over .env but not over .env.local.
func loadDotEnv() {
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}
