// Package config loads runtime settings: the cause-chain limits, the
// database path, the log level and the label rendered for the system actor.
//
// Settings are read from YAML, TOML or CUE, chosen by file extension, and
// every format is checked against the same embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/causetrail/internal/cause"
)

//go:embed schema.cue
var schemaCUE string

// Config holds runtime settings.
type Config struct {
	Limits          cause.Policy `json:"policy" yaml:"policy" toml:"policy"`
	Database        string       `json:"database" yaml:"database" toml:"database"`
	LogLevel        string       `json:"log_level" yaml:"log_level" toml:"log_level"`
	SystemUserLabel string       `json:"system_user_label" yaml:"system_user_label" toml:"system_user_label"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Limits:          cause.DefaultPolicy(),
		Database:        "causetrail.db",
		LogLevel:        "info",
		SystemUserLabel: cause.DefaultSystemLabel,
	}
}

// Policy returns the cause-chain limits.
func (c Config) Policy() cause.Policy {
	return c.Limits
}

// SlogLevel maps LogLevel to a slog level. Unknown names map to Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidationError reports a config that does not satisfy the schema.
type ValidationError struct {
	File    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Load reads settings from path. Fields the file leaves out keep their
// defaults. The format is chosen by extension: .yaml, .yml, .toml or .cue.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes data as the format implied by name's extension.
func Parse(name string, data []byte) (Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, &ValidationError{File: name, Message: err.Error()}
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, &ValidationError{File: name, Message: err.Error()}
		}
	case ".cue":
		return parseCUE(name, data)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", name, ext)
	}

	if err := cfg.validate(name); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	return c.validate("")
}

func (c Config) validate(name string) error {
	ctx := cuecontext.New()
	schema, err := loadSchema(ctx)
	if err != nil {
		return err
	}
	v := schema.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(name, err)
	}
	return nil
}

func parseCUE(name string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema, err := loadSchema(ctx)
	if err != nil {
		return Config{}, err
	}
	src := ctx.CompileBytes(data, cue.Filename(name))
	if err := src.Err(); err != nil {
		return Config{}, toValidationError(name, err)
	}
	v := schema.Unify(src)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, toValidationError(name, err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, toValidationError(name, err)
	}
	return cfg, nil
}

func loadSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// toValidationError keeps the first CUE error and its position.
func toValidationError(name string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{File: name, Message: err.Error()}
	}
	first := errs[0]
	ve := &ValidationError{File: name, Message: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == name {
			ve.Pos = pos
			break
		}
	}
	return ve
}
