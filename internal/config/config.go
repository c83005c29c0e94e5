// Package config resolves the settings shared by claimspec commands.
//
// Settings are layered, lowest first: built-in defaults, an optional YAML
// config file, CLAIMSPEC_* environment variables, then command-line flags
// that were explicitly set.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/claimspec/internal/spec"
	"github.com/roach88/claimspec/internal/value"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CLAIMSPEC"

// Keys.
const (
	KeyRTol      = "rtol"
	KeyATol      = "atol"
	KeyEngine    = "engine"
	KeyStore     = "store"
	KeyReportDir = "report_dir"
	KeyFormat    = "format"
	KeyCacheTTL  = "cache_ttl"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the resolved configuration.
type Config struct {
	RTol      float64       `mapstructure:"rtol" validate:"gte=0"`
	ATol      float64       `mapstructure:"atol" validate:"gte=0"`
	Engine    string        `mapstructure:"engine" validate:"required"`
	Store     string        `mapstructure:"store"`
	ReportDir string        `mapstructure:"report_dir"`
	Format    string        `mapstructure:"format" validate:"oneof=text json"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:    spec.EngineMemory,
		ReportDir: "reports",
		Format:    "text",
	}
}

// Tolerance returns the comparison tolerance.
func (c Config) Tolerance() value.Tolerance {
	return value.Tolerance{RTol: c.RTol, ATol: c.ATol}
}

// Validate reports the first invalid field, by its config key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return fmt.Errorf("config: %s: failed %q check (got %v)", keyOf(f.StructField()), f.Tag(), f.Value())
	}
	return fmt.Errorf("config: %w", err)
}

func keyOf(field string) string {
	switch field {
	case "RTol":
		return KeyRTol
	case "ATol":
		return KeyATol
	case "ReportDir":
		return KeyReportDir
	case "CacheTTL":
		return KeyCacheTTL
	default:
		return strings.ToLower(field)
	}
}

// Loader layers configuration sources. Each Loader owns its own viper
// instance, so loaders never share state.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader seeded with Default and reading CLAIMSPEC_*
// environment variables.
func NewLoader() *Loader {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyRTol, d.RTol)
	v.SetDefault(KeyATol, d.ATol)
	v.SetDefault(KeyEngine, d.Engine)
	v.SetDefault(KeyStore, d.Store)
	v.SetDefault(KeyReportDir, d.ReportDir)
	v.SetDefault(KeyFormat, d.Format)
	v.SetDefault(KeyCacheTTL, d.CacheTTL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes flag override key when the flag is set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: no such flag", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("bind %s: %w", key, err)
	}
	return nil
}

// BindFlags binds every flag in fs whose name, with dashes read as
// underscores, is a config key.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err != nil || !isKey(key) {
			return
		}
		err = l.BindFlag(key, f)
	})
	return err
}

func isKey(key string) bool {
	switch key {
	case KeyRTol, KeyATol, KeyEngine, KeyStore, KeyReportDir, KeyFormat, KeyCacheTTL:
		return true
	}
	return false
}

// Load resolves and validates the configuration. An empty path skips the
// config file; a named file that cannot be read is an error.
func (l *Loader) Load(path string) (Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load resolves the configuration from defaults, the file at path and the
// environment, with no flags bound.
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}
