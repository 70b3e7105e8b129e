// Package config loads the dsnedit tool configuration: embedded defaults,
// then an optional YAML file, then DSNEDIT_* environment variables.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/koustreak/dsneditor/internal/api"
	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/filestore"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/probe"
)

//go:embed defaults.yaml
var defaultYAML []byte

// EnvPrefix prefixes every environment override, e.g. DSNEDIT_STORE_BACKEND.
const EnvPrefix = "DSNEDIT"

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(storeRules, dsnstore.Config{})
}

// Config holds every sub-config.
type Config struct {
	Logging   LoggingConfig    `mapstructure:"logging"`
	Store     dsnstore.Config  `mapstructure:"store"`
	Templates filestore.Config `mapstructure:"templates"`
	Server    api.Config       `mapstructure:"server"`
	Probe     probe.Config     `mapstructure:"probe"`
}

// LoggingConfig is the file form of logger.Config.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	TimeFormat string `mapstructure:"time_format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
}

// Logger builds the logger described by c.
func (c LoggingConfig) Logger() *logger.Logger {
	return logger.New(&logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		TimeFormat: c.TimeFormat,
		Output:     os.Stderr,
		FilePath:   c.FilePath,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	})
}

// Load merges defaults -> file (optional) -> env vars, validates, and
// returns the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, errs.Wrap(errs.ErrKindParseFailed, "failed to read built-in defaults", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errs.Wrap(errs.ErrKindFileNotFound, "config file not found: "+path, err)
			}
			return nil, errs.Wrap(errs.ErrKindParseFailed, "failed to read config file "+path, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindParseFailed, "invalid configuration: "+err.Error(), err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}
	return &cfg, nil
}

// storeRules requires a connection string for the SQL backends.
func storeRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(dsnstore.Config)
	if c.Backend != dsnstore.BackendINI && c.Backend != "" && c.Database.DSN == "" {
		sl.ReportError(c.Database.DSN, "Database.DSN", "DSN", "dsn_required", "")
	}
}

// formatValidationError converts validator errors into one user-friendly
// message.
func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.Wrap(errs.ErrKindInvalidInput, "configuration validation failed", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return errs.Wrap(errs.ErrKindInvalidInput,
		"configuration validation failed:\n  - "+strings.Join(messages, "\n  - "), err)
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required but not provided", field)
	case "required_if", "required_with":
		return fmt.Sprintf("%s is required for this provider", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got: %v)", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got: %v)", field, fe.Value())
	case "dsn_required":
		return "Store.Database.DSN is required for the sql backends"
	default:
		return fmt.Sprintf("%s validation failed: %s (got: %v)", field, fe.Tag(), fe.Value())
	}
}
