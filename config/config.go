// Package config loads run settings from defaults, an optional convoca.yaml
// file and CONVOCA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/go-playground/validator.v9"
)

// EnvPrefix prefixes environment overrides, e.g. CONVOCA_RUN_STEPS.
const EnvPrefix = "CONVOCA"

// Config contains every setting of a simulation run.
type Config struct {
	Grid  GridConfig  `mapstructure:"grid"`
	Run   RunConfig   `mapstructure:"run"`
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
}

// GridConfig is the size of every image.
type GridConfig struct {
	Height int `mapstructure:"height" validate:"gte=3"`
	Width  int `mapstructure:"width" validate:"gte=3"`
}

// RunConfig controls batch stepping.
type RunConfig struct {
	Steps    int     `mapstructure:"steps" validate:"gte=0"`
	Batch    int     `mapstructure:"batch" validate:"gte=1"`
	Workers  int     `mapstructure:"workers" validate:"gte=0"`
	Seed     int64   `mapstructure:"seed"`
	Density  float64 `mapstructure:"density" validate:"gte=0,lte=1"`
	Binarize bool    `mapstructure:"binarize"`
}

// StoreConfig locates the measurement database. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("grid.height", 32)
	v.SetDefault("grid.width", 32)

	v.SetDefault("run.steps", 50)
	v.SetDefault("run.batch", 8)
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.seed", 1)
	v.SetDefault("run.density", 0.5)
	v.SetDefault("run.binarize", true)

	v.SetDefault("store.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New returns a viper instance with defaults and environment overrides
// registered. When file is empty convoca.yaml is searched for in the working
// directory and configs/.
func New(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("convoca")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the configuration. A missing default file is not an error; a
// missing explicit file is.
func Load(file string) (*Config, error) {
	v := New(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
