// Package config loads the sierramarc command configuration from a YAML file
// and SIERRAMARC_* environment variables. Environment variables take
// precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bookops/sierramarc"
)

const envPrefix = "SIERRAMARC_"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Library             string   `yaml:"library"`
	SubjectVocabularies []string `yaml:"subject_vocabularies"`
	LogLevel            string   `yaml:"log_level"`
	MetricsFile         string   `yaml:"metrics_file"`
	Store               Store    `yaml:"store"`
	S3                  S3       `yaml:"s3"`
}

type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// S3 configures access to MARC files stored in S3 or an S3 compatible
// service such as MinIO. Empty keys fall back to the default AWS credential
// chain.
type S3 struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store:    Store{Driver: DriverSQLite, DSN: "sierramarc.db"},
		S3:       S3{Region: "us-east-1"},
	}
}

// Load reads the YAML file at path, if any, and applies the process
// environment.
func Load(path string) (Config, error) {
	var r io.Reader
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		r = f
	}
	return Parse(r, os.LookupEnv)
}

// Parse decodes YAML from r, which may be nil, and applies the variables
// returned by lookup.
func Parse(r io.Reader, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if r != nil {
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	strs := map[string]*string{
		"LIBRARY":              &c.Library,
		"LOG_LEVEL":            &c.LogLevel,
		"METRICS_FILE":         &c.MetricsFile,
		"STORE_DRIVER":         &c.Store.Driver,
		"STORE_DSN":            &c.Store.DSN,
		"S3_REGION":            &c.S3.Region,
		"S3_ENDPOINT":          &c.S3.Endpoint,
		"S3_ACCESS_KEY_ID":     &c.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.S3.SecretAccessKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "SUBJECT_VOCABULARIES"); ok {
		c.SubjectVocabularies = nil
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				c.SubjectVocabularies = append(c.SubjectVocabularies, code)
			}
		}
	}
	if v, ok := lookup(envPrefix + "S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sS3_PATH_STYLE: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.S3.PathStyle = b
	}
	return nil
}

// Validate checks the library, log level and store driver.
func (c Config) Validate() error {
	var errs []error
	if c.Library != "" {
		if _, err := sierramarc.ParseLibrary(c.Library); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return lvl, nil
}

// BibOptions returns the options applied to every Bib read with this
// configuration.
func (c Config) BibOptions() []sierramarc.BibOption {
	if len(c.SubjectVocabularies) == 0 {
		return nil
	}
	return []sierramarc.BibOption{sierramarc.WithSubjectVocabularies(c.SubjectVocabularies...)}
}
