/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/crptkit/docsubmit/config"
	"github.com/crptkit/docsubmit/httpclient"
)

// Default configuration values.
const (
	DefaultAPIURL                = "https://ismp.crpt.ru/api/v3/lk/documents/create"
	DefaultRateLimitWindow       = time.Second
	DefaultRateLimitRequestLimit = 1
)

const (
	cfgKeyAPIURL                = "apiUrl"
	cfgKeyRateLimitWindow       = "rateLimit.window"
	cfgKeyRateLimitRequestLimit = "rateLimit.requestLimit"
	cfgKeyHTTP                  = "http"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RateLimitConfig configures the fixed-window rate limiter of the client.
type RateLimitConfig struct {
	// Window is the replenishment period.
	Window time.Duration `mapstructure:"window"`

	// RequestLimit is the maximum number of requests admitted per window.
	RequestLimit int `mapstructure:"requestLimit"`
}

// Config represents the document client configuration.
type Config struct {
	// APIURL is the endpoint documents are POSTed to.
	APIURL string `mapstructure:"apiUrl"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	// HTTP configures the default HTTP transport. It is ignored when a custom Transport is passed in Opts.
	HTTP *httpclient.Config `mapstructure:"http"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{HTTP: httpclient.NewConfig(), keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		APIURL:    DefaultAPIURL,
		RateLimit: RateLimitConfig{Window: DefaultRateLimitWindow, RequestLimit: DefaultRateLimitRequestLimit},
		HTTP:      httpclient.NewDefaultConfig(),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAPIURL, DefaultAPIURL)
	dp.SetDefault(cfgKeyRateLimitWindow, DefaultRateLimitWindow)
	dp.SetDefault(cfgKeyRateLimitRequestLimit, DefaultRateLimitRequestLimit)
	if c.HTTP == nil {
		c.HTTP = httpclient.NewConfig()
	}
	c.HTTP.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	apiURL, err := dp.GetString(cfgKeyAPIURL)
	if err != nil {
		return err
	}
	if err = validateAPIURL(apiURL); err != nil {
		return dp.WrapKeyErr(cfgKeyAPIURL, err)
	}
	c.APIURL = apiURL

	window, err := dp.GetDuration(cfgKeyRateLimitWindow)
	if err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitWindow, errors.New("must be positive"))
	}
	c.RateLimit.Window = window

	requestLimit, err := dp.GetInt(cfgKeyRateLimitRequestLimit)
	if err != nil {
		return err
	}
	if requestLimit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitRequestLimit, errors.New("must be positive"))
	}
	c.RateLimit.RequestLimit = requestLimit

	if c.HTTP == nil {
		c.HTTP = httpclient.NewConfig()
	}
	return c.HTTP.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

// Validate checks a Config built in code rather than loaded by config.Loader.
func (c *Config) Validate() error {
	if err := validateAPIURL(c.APIURL); err != nil {
		return fmt.Errorf("%s: %w", cfgKeyAPIURL, err)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("%s: must be positive", cfgKeyRateLimitWindow)
	}
	if c.RateLimit.RequestLimit <= 0 {
		return fmt.Errorf("%s: must be positive", cfgKeyRateLimitRequestLimit)
	}
	return nil
}

func validateAPIURL(apiURL string) error {
	if apiURL == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is missing")
	}
	return nil
}
