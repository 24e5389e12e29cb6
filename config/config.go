// Package config loads settings from defaults, an optional YAML file,
// .env files and LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"library-catalog/logging"
)

// EnvPrefix is prepended to every environment variable, e.g. LIBRARY_DATA_FILE.
const EnvPrefix = "LIBRARY"

// Config holds the application configuration.
type Config struct {
	DataFile         string
	AccountsDB       string
	BackupDir        string
	LoanDays         int
	ValidateISBN     bool
	Autosave         bool
	MaxLoginAttempts int
	LockoutWindow    time.Duration
	Log              logging.Config

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_file", "library.dat")
	v.SetDefault("accounts_db", "accounts.db")
	v.SetDefault("backup_dir", "backups")
	v.SetDefault("loan_days", 14)
	v.SetDefault("validate_isbn", false)
	v.SetDefault("autosave", true)
	v.SetDefault("max_login_attempts", 3)
	v.SetDefault("lockout_window", time.Minute)

	d := logging.DefaultConfig()
	v.SetDefault("log.level", d.Level)
	v.SetDefault("log.format", d.Format)
	v.SetDefault("log.output", d.Output)
	v.SetDefault("log.no_color", d.NoColor)
}

// Load reads configuration in order of precedence:
// 1. Values already bound on v (cobra flags)
// 2. Environment variables (LIBRARY_*)
// 3. .env and .env.local files
// 4. Config file (configFile, or .library.yaml in the working or home directory)
// 5. Defaults
func Load(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".library")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DataFile:         v.GetString("data_file"),
		AccountsDB:       v.GetString("accounts_db"),
		BackupDir:        v.GetString("backup_dir"),
		LoanDays:         v.GetInt("loan_days"),
		ValidateISBN:     v.GetBool("validate_isbn"),
		Autosave:         v.GetBool("autosave"),
		MaxLoginAttempts: v.GetInt("max_login_attempts"),
		LockoutWindow:    v.GetDuration("lockout_window"),
		Log: logging.Config{
			Level:   v.GetString("log.level"),
			Format:  v.GetString("log.format"),
			Output:  v.GetString("log.output"),
			NoColor: v.GetBool("log.no_color"),
		},
		ConfigFile: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataFile) == "" {
		return errors.New("config: data_file cannot be empty")
	}
	if c.LoanDays < 1 {
		return fmt.Errorf("config: loan_days must be at least 1, got %d", c.LoanDays)
	}
	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("config: max_login_attempts must be at least 1, got %d", c.MaxLoginAttempts)
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env; neither overrides the real environment.
func loadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}
