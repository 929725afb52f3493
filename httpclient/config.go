/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"net"
	"time"

	"github.com/crptkit/docsubmit/config"
)

// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
const DefaultClientWaitTimeout = 30 * time.Second

// DefaultDNSTimeout is a default timeout for a single query to a custom DNS server.
const DefaultDNSTimeout = 5 * time.Second

const (
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled             = "metrics.enabled"
	cfgKeyTimeout                    = "timeout"
	cfgKeyUserAgent                  = "userAgent"
	cfgKeyDNSServers                 = "dns.servers"
	cfgKeyDNSTimeout                 = "dns.timeout"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// LoggerConfig represents configuration options for HTTP client logs.
type LoggerConfig struct {
	// Enabled is a flag that enables logging.
	Enabled bool `mapstructure:"enabled"`

	// SlowRequestThreshold is a threshold for slow requests. Faster requests are not logged.
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold"`

	// Mode of logging: none, all, failed.
	Mode LoggingMode `mapstructure:"mode"`
}

// TransportOpts returns transport options.
func (c *LoggerConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{
		Mode:                 c.Mode,
		SlowRequestThreshold: c.SlowRequestThreshold,
	}
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	// Enabled is a flag that enables metrics.
	Enabled bool `mapstructure:"enabled"`
}

// DNSConfig represents configuration options for host name resolution.
type DNSConfig struct {
	// Servers is a list of DNS servers ("host:port") queried in round-robin order.
	// System resolver is used when empty.
	Servers []string `mapstructure:"servers"`

	// Timeout is the dial timeout for a single DNS server.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config represents options for HTTP client configuration.
type Config struct {
	// Logger is a configuration for HTTP client logs.
	Logger LoggerConfig `mapstructure:"logger"`

	// Metrics is a configuration for HTTP client metrics.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Timeout is the maximum time to wait for a request to be made.
	Timeout time.Duration `mapstructure:"timeout"`

	// UserAgent is sent in every request that has no User-Agent header yet.
	// When empty, "docsubmit/<version>" is used.
	UserAgent string `mapstructure:"userAgent"`

	// DNS is a configuration for host name resolution.
	DNS DNSConfig `mapstructure:"dns"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Logger:  LoggerConfig{Enabled: true, Mode: LoggingModeFailed},
		Timeout: DefaultClientWaitTimeout,
		DNS:     DNSConfig{Timeout: DefaultDNSTimeout},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientWaitTimeout)
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyMetricsEnabled, false)
	dp.SetDefault(cfgKeyDNSTimeout, DefaultDNSTimeout)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, errors.New("must not be negative"))
	}
	c.Timeout = timeout

	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}
	if err = c.setLoggerConfig(dp); err != nil {
		return err
	}
	if c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled); err != nil {
		return err
	}
	return c.setDNSConfig(dp)
}

func (c *Config) setDNSConfig(dp config.DataProvider) error {
	servers, err := dp.GetStringSlice(cfgKeyDNSServers)
	if err != nil {
		return err
	}
	for _, server := range servers {
		if _, _, err = net.SplitHostPort(server); err != nil {
			return dp.WrapKeyErr(cfgKeyDNSServers, err)
		}
	}
	c.DNS.Servers = servers

	timeout, err := dp.GetDuration(cfgKeyDNSTimeout)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return dp.WrapKeyErr(cfgKeyDNSTimeout, errors.New("must be positive"))
	}
	c.DNS.Timeout = timeout
	return nil
}

func (c *Config) setLoggerConfig(dp config.DataProvider) error {
	enabled, err := dp.GetBool(cfgKeyLoggerEnabled)
	if err != nil {
		return err
	}
	c.Logger.Enabled = enabled
	if !enabled {
		return nil
	}

	slowRequestThreshold, err := dp.GetDuration(cfgKeyLoggerSlowRequestThreshold)
	if err != nil {
		return err
	}
	if slowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLoggerSlowRequestThreshold, errors.New("must not be negative"))
	}
	c.Logger.SlowRequestThreshold = slowRequestThreshold

	modes := []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}
	mode, err := dp.GetStringFromSet(cfgKeyLoggerMode, modes, false)
	if err != nil {
		return err
	}
	c.Logger.Mode = LoggingMode(mode)
	return nil
}
