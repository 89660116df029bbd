// Package config loads mdextract defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/ezerfernandes/mdextract/internal/mdcode"
)

const (
	// DefaultFile is read when present and no file is given explicitly.
	DefaultFile = ".mdextract.yaml"
	// DefaultInput is the document extracted when none is named.
	DefaultInput = "C++.md"
)

// Validator is implemented by configurations that can check themselves.
type Validator interface {
	Validate() error
}

// Config holds defaults for the command line flags.
type Config struct {
	Input       string            `yaml:"input"`
	Dir         string            `yaml:"dir"`
	Marker      string            `yaml:"marker"`
	Lang        []string          `yaml:"lang"`
	Paths       []string          `yaml:"paths"`
	Meta        map[string]string `yaml:"meta"`
	AllowEscape bool              `yaml:"allow_escape"`
	Regions     bool              `yaml:"regions"`
}

// NewDefault returns the configuration used when no file is found.
func NewDefault() *Config {
	return &Config{
		Input:  DefaultInput,
		Dir:    ".",
		Marker: mdcode.DefaultMarker,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Input, validation.Required),
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Marker, validation.Required),
		validation.Field(&c.Lang, validation.Each(validation.Required, validation.By(validGlob))),
		validation.Field(&c.Paths, validation.Each(validation.Required, validation.By(validGlob))),
	)
}

func validGlob(value interface{}) error {
	pattern, _ := value.(string)

	if _, err := glob.Compile(pattern, '/'); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return nil
}

// Load reads a YAML file into target, expanding ${VAR} references first, and
// validates the result when target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadOptional is Load for a file that may be missing. It reports whether the
// file was read.
func LoadOptional[T any](filename string, target *T) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err := Load(filename, target); err != nil {
		return false, err
	}

	return true, nil
}
