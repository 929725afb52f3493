/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader fills configuration objects from a data provider.
// Defaults of all objects are registered before any of them is set,
// so objects sharing keys (e.g. a client config embedding an HTTP config) see each other's defaults.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a Loader backed by viper that also reads environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a Loader over dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{dp}
}

// DataTypeFromPath detects the format of a configuration file by its extension.
func DataTypeFromPath(path string) (DataType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported configuration file extension %q, use .yaml, .yml or .json", ext)
	}
}

// LoadFromPath loads the file at path (its format is detected by extension) and sets configuration objects.
// Empty path means only defaults and environment variables are used.
func (l *Loader) LoadFromPath(path string, cfg Config, cfgs ...Config) error {
	if path == "" {
		return l.Load(cfg, cfgs...)
	}
	dataType, err := DataTypeFromPath(path)
	if err != nil {
		return err
	}
	if err = l.LoadFromFile(path, dataType, cfg, cfgs...); err != nil {
		return fmt.Errorf("load configuration from %s: %w", path, err)
	}
	return nil
}

// LoadFromFile reads the file and sets configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.Load(cfg, cfgs...)
}

// LoadFromReader reads configuration data from reader and sets configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.Load(cfg, cfgs...)
}

// Load sets configuration objects from whatever the data provider already holds.
func (l *Loader) Load(cfg Config, cfgs ...Config) error {
	all := append([]Config{cfg}, cfgs...)
	providers := make([]DataProvider, len(all))
	for i, c := range all {
		providers[i] = l.providerFor(c)
		c.SetProviderDefaults(providers[i])
	}
	for i, c := range all {
		if err := c.Set(providers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) providerFor(cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(l.DataProvider, kp.KeyPrefix())
	}
	return l.DataProvider
}
