// Package config loads schemadrift settings. Values come from an optional
// schemadrift.yaml, SCHEMADRIFT_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"schemadrift/internal/core"
)

const (
	EnvPrefix  = "SCHEMADRIFT"
	configName = "schemadrift"
	configType = "yaml"
)

// Output formats accepted by Config.Format.
var Formats = []string{"sql", "json", "summary", "human"}

// SQL parser engines accepted by Config.Parser.
const (
	ParserScan = "scan"
	ParserTiDB = "tidb"
)

// Quote modes accepted by Render.Quote.
const (
	QuoteAsNeeded = "as-needed"
	QuoteAlways   = "always"
)

type Config struct {
	DumpDir    string             `mapstructure:"dump_dir"`
	UpdatesDir string             `mapstructure:"updates_dir"`
	Format     string             `mapstructure:"format"`
	Parser     string             `mapstructure:"parser"`
	Compare    core.ComparePolicy `mapstructure:"compare"`
	Render     Render             `mapstructure:"render"`
	Introspect Introspect         `mapstructure:"introspect"`
	Log        Log                `mapstructure:"log"`
}

type Render struct {
	Quote string `mapstructure:"quote"`
	// Placement adds AFTER/FIRST clauses to added columns.
	Placement bool `mapstructure:"placement"`
	// IncludeDestructive keeps DROP statements in the plan instead of
	// turning them into notes.
	IncludeDestructive bool `mapstructure:"include_destructive"`
}

type Introspect struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	policy := core.DefaultComparePolicy()
	v.SetDefault("dump_dir", "dumps")
	v.SetDefault("updates_dir", "updates")
	v.SetDefault("format", "sql")
	v.SetDefault("parser", ParserScan)
	v.SetDefault("compare.ignore_integer_display_width", policy.IgnoreIntegerDisplayWidth)
	v.SetDefault("compare.compare_flags", policy.CompareFlags)
	v.SetDefault("compare.folding", string(policy.Folding))
	v.SetDefault("render.quote", QuoteAsNeeded)
	v.SetDefault("render.placement", false)
	v.SetDefault("render.include_destructive", true)
	v.SetDefault("introspect.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// New returns a viper instance with defaults, environment binding and, when
// configFile is set, that file; otherwise schemadrift.yaml is searched in the
// working directory.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}
	return v
}

// BindFlags binds flags to their config keys. keys maps flag name to key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes the merged settings.
// A missing default config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !isOneOf(c.Format, Formats...) {
		return fmt.Errorf("unsupported format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
	}
	if !isOneOf(c.Parser, ParserScan, ParserTiDB) {
		return fmt.Errorf("unsupported parser %q (want %s or %s)", c.Parser, ParserScan, ParserTiDB)
	}
	if !isOneOf(c.Render.Quote, QuoteAsNeeded, QuoteAlways) {
		return fmt.Errorf("unsupported quote mode %q (want %s or %s)", c.Render.Quote, QuoteAsNeeded, QuoteAlways)
	}
	if c.Introspect.Timeout <= 0 {
		return fmt.Errorf("introspect timeout must be positive, got %s", c.Introspect.Timeout)
	}
	if !isOneOf(c.Log.Format, "console", "json") {
		return fmt.Errorf("unsupported log format %q (want console or json)", c.Log.Format)
	}
	if err := c.Compare.Validate(); err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	return nil
}

func isOneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
