// Package config loads the davexplorer configuration from file,
// environment and defaults.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config captures everything davexplorer needs to talk to one
// gateway-fronted WebDAV share.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DAVEXPLORER_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// URL is the WebDAV host serving the share
	URL string `mapstructure:"url" validate:"required,url"`

	// GatewayURL is the origin of the gateway issuing share tokens.
	// Defaults to URL when empty.
	GatewayURL string `mapstructure:"gateway_url" validate:"omitempty,url"`

	// Username and Password authenticate against the share
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// XSRFToken is the anti-forgery token relayed with every
	// mutating call. Its issuance belongs to the login flow, not to
	// this tool.
	XSRFToken string `mapstructure:"xsrf_token"`

	// ReadWrite enables mutating operations on the share
	ReadWrite bool `mapstructure:"read_write"`

	// ShareLifespanDays is the default lifespan for issued share links
	ShareLifespanDays int `mapstructure:"share_lifespan_days" validate:"gte=0"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=ERROR NOTICE INFO DEBUG error notice info debug"`

	// JSON switches log output to structured JSON
	JSON bool `mapstructure:"json"`
}

// setDefaults registers every key with its default so AutomaticEnv
// can surface it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("url", "")
	v.SetDefault("gateway_url", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("xsrf_token", "")
	v.SetDefault("read_write", false)
	v.SetDefault("share_lifespan_days", 7)
	v.SetDefault("logging.level", "NOTICE")
	v.SetDefault("logging.json", false)
}

// Load reads the configuration. path may be empty, in which case only
// environment variables and defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DAVEXPLORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "couldn't read config file %q", path)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't decode configuration")
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = cfg.URL
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
