// Package config loads comicsync settings.
//
// Sources, lowest precedence first: built-in defaults, a YAML file, a
// .env file, then the process environment. The merged result is checked
// against the #Config CUE definition in schema.cue.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables that override file settings.
const (
	EnvDBDriver   = "COMICSYNC_DB_DRIVER"
	EnvDBDSN      = "COMICSYNC_DB_DSN"
	EnvBaseURL    = "COMICSYNC_BASE_URL"
	EnvPublicKey  = "COMICSYNC_PUBLIC_KEY"
	EnvPrivateKey = "COMICSYNC_PRIVATE_KEY"
)

// Config is the full set of settings.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Sweep    SweepConfig    `yaml:"sweep" json:"sweep"`
	Acquire  AcquireConfig  `yaml:"acquire" json:"acquire"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite3 | pgx
	DSN    string `yaml:"dsn" json:"dsn"`
}

// ProviderConfig holds the catalog API endpoint and credentials.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	PublicKey      string `yaml:"public_key" json:"public_key"`
	PrivateKey     string `yaml:"private_key" json:"private_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// SweepConfig bounds the staleness sweep.
type SweepConfig struct {
	PageSize   int `yaml:"page_size" json:"page_size"`
	MaxPages   int `yaml:"max_pages" json:"max_pages"`
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"`
}

// AcquireConfig controls queue draining.
type AcquireConfig struct {
	// Decision settles scan date conflicts: "first" or "latest".
	Decision string `yaml:"decision" json:"decision"`
	// PurchaseFormat records acquired issues as owned when set.
	PurchaseFormat string `yaml:"purchase_format" json:"purchase_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "comics.db"},
		Provider: ProviderConfig{
			BaseURL:        "https://gateway.marvel.com/v1/public",
			TimeoutSeconds: 10,
		},
		Sweep:   SweepConfig{PageSize: 5, MaxPages: 1, MaxAgeDays: 365},
		Acquire: AcquireConfig{Decision: "first"},
	}
}

// Timeout is the provider request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// MaxAge is the staleness age used by the sweep.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Sweep.MaxAgeDays) * 24 * time.Hour
}

// RequireCredentials reports a missing provider key.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Provider.PublicKey == "" {
		missing = append(missing, EnvPublicKey)
	}
	if c.Provider.PrivateKey == "" {
		missing = append(missing, EnvPrivateKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("provider credentials missing: set %s", strings.Join(missing, " and "))
	}
	return nil
}

// Load builds the configuration. An empty path skips the YAML file; an
// envFile that does not exist is ignored.
func Load(path, envFile string) (*Config, error) {
	return load(path, envFile, os.LookupEnv)
}

func load(path, envFile string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("no env file, using process environment", "path", envFile)
		case err != nil:
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		default:
			dotenv = m
		}
	}

	// The process environment wins over the env file.
	cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvDBDriver, &c.Database.Driver)
	set(EnvDBDSN, &c.Database.DSN)
	set(EnvBaseURL, &c.Provider.BaseURL)
	set(EnvPublicKey, &c.Provider.PublicKey)
	set(EnvPrivateKey, &c.Provider.PrivateKey)
}

// ValidationError lists every setting the schema rejected.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks the settings against the #Config schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	ve := &ValidationError{}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if p := e.Path(); len(p) > 0 {
			msg = strings.Join(p, ".") + ": " + msg
		}
		ve.Problems = append(ve.Problems, msg)
	}
	return ve
}

// Write renders the settings as YAML, credentials included.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// String is a one-line summary safe to log.
func (c *Config) String() string {
	return fmt.Sprintf("db=%s:%s provider=%s keys=%s sweep=%d/%d/%dd",
		c.Database.Driver, c.Database.DSN, c.Provider.BaseURL,
		strconv.FormatBool(c.Provider.PublicKey != "" && c.Provider.PrivateKey != ""),
		c.Sweep.PageSize, c.Sweep.MaxPages, c.Sweep.MaxAgeDays)
}
