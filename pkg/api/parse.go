package api

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// LoadConfig reads an assetpipe.yaml file, applies defaults, and validates it.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	cfg.FilePath = absPath
	return cfg, nil
}

// DefaultConfig returns the built-in configuration for the conventional
// source/ and build/ layout.
func DefaultConfig() (*Config, error) {
	cfg, err := ParseConfig(defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("loading built-in config: %w", err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads filename when it exists. A missing file falls
// back to DefaultConfig unless required is set.
func LoadConfigOrDefault(filename string, required bool) (*Config, error) {
	cfg, err := LoadConfig(filename)
	if err == nil {
		return cfg, nil
	}
	if !required && errors.Is(err, os.ErrNotExist) {
		return DefaultConfig()
	}
	return nil, err
}

// ParseConfig unmarshals, defaults and validates raw YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parsing YAML: %w", err)}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = DefaultSourceDir
	}
	if c.Build == "" {
		c.Build = DefaultBuildDir
	}
	if c.Serve.Root == "" {
		c.Serve.Root = c.Build
	}
	if c.Serve.Host == "" {
		c.Serve.Host = "localhost"
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Serve.Before == "" {
		if _, ok := c.Groups[DefaultStartGroup]; ok {
			c.Serve.Before = DefaultStartGroup
		}
	}

	for i := range c.Steps {
		s := &c.Steps[i]
		if s.Type == StepTypeClean && s.Clean == nil {
			s.Clean = &CleanConfig{}
		}
		switch {
		case s.Clean != nil && s.Clean.Dir == "":
			s.Clean.Dir = c.Build
		case s.Scripts != nil && s.Scripts.Suffix == "":
			s.Scripts.Suffix = DefaultScriptSuffix
		case s.WebP != nil && s.WebP.Quality == 0:
			s.WebP.Quality = DefaultWebPQuality
		case s.Styles != nil && s.Styles.Compiler == "":
			s.Styles.Compiler = DefaultSassCompiler
		}
		if s.Scripts != nil && s.Scripts.Target == "" {
			s.Scripts.Target = DefaultScriptTarget
		}
	}
}
