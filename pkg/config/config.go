package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/hdverifier/pkg/log"
	"github.com/vitalvas/hdverifier/pkg/verifier"
)

// DefaultPath is where the configuration is looked up when no path is given.
const DefaultPath = "config.yaml"

var (
	// ErrMissingOption indicates a required option is absent or unusable.
	ErrMissingOption = errors.New("missing configuration option")

	// ErrInvalidOption indicates an optional setting has a value that cannot be used.
	ErrInvalidOption = errors.New("invalid configuration option")
)

const redacted = "[REDACTED]"

// Secret is a shared secret that never prints its value.
type Secret []byte

// String implements fmt.Stringer
func (s Secret) String() string {
	if len(s) == 0 {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the value.
func (s Secret) GoString() string {
	return s.String()
}

// UnmarshalYAML reads the secret as a plain string.
func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	*s = Secret(str)
	return nil
}

// MarshalYAML writes the secret redacted.
func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// RadiusConfig describes the RADIUS server the verifier talks to.
type RadiusConfig struct {
	Server     string `yaml:"server"`
	Secret     Secret `yaml:"secret"`
	SecretFile string `yaml:"secret_file"`
	// Timeout is the per-attempt wait in seconds.
	Timeout           int    `yaml:"timeout"`
	Retries           *int   `yaml:"retries"`
	PushSentinel      string `yaml:"push_sentinel"`
	NormalizeUsername bool   `yaml:"normalize_username"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Config is the file configuration of hd-verifier.
type Config struct {
	Radius  RadiusConfig  `yaml:"radius"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Load reads, defaults and validates the configuration at path.
// A missing file is reported the same way as a file without the required
// options, as a *MissingOptionsError.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingOptionsError{Path: path, Missing: requiredOptions}
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		var missing *MissingOptionsError
		if errors.As(err, &missing) {
			missing.Path = path
		}
		return nil, err
	}

	if cfg.Radius.SecretFile != "" && len(cfg.Radius.Secret) == 0 {
		if err := cfg.loadSecretFile(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates it.
// A secret_file reference is not resolved.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Radius.Retries == nil {
		retries := verifier.DefaultRetries
		c.Radius.Retries = &retries
	}

	if c.Radius.PushSentinel == "" {
		c.Radius.PushSentinel = verifier.DefaultPushSentinel
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks required options first, then the optional ones.
func (c *Config) Validate() error {
	var missing []Option

	if strings.TrimSpace(c.Radius.Server) == "" {
		missing = append(missing, optionServer)
	}

	if len(c.Radius.Secret) == 0 && c.Radius.SecretFile == "" {
		missing = append(missing, optionSecret)
	}

	if c.Radius.Timeout <= 0 {
		missing = append(missing, optionTimeout)
	}

	if len(missing) > 0 {
		return &MissingOptionsError{Missing: missing}
	}

	if c.Radius.Retries != nil && *c.Radius.Retries < 0 {
		return fmt.Errorf("%w: radius.retries cannot be negative, got %d", ErrInvalidOption, *c.Radius.Retries)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidOption, err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidOption, c.Log.Format)
	}

	return nil
}

// loadSecretFile reads the secret from SecretFile, relative to dir unless
// absolute. One trailing line break is stripped.
func (c *Config) loadSecretFile(dir string) error {
	path := c.Radius.SecretFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read radius.secret_file: %w", err)
	}

	data = []byte(strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r"))
	if len(data) == 0 {
		return &MissingOptionsError{Path: path, Missing: []Option{optionSecret}}
	}

	c.Radius.Secret = Secret(data)
	return nil
}

// VerifierConfig converts the radius section into verifier settings.
func (c *Config) VerifierConfig() verifier.Config {
	retries := verifier.DefaultRetries
	if c.Radius.Retries != nil {
		retries = *c.Radius.Retries
	}

	return verifier.Config{
		Server:            c.Radius.Server,
		Secret:            []byte(c.Radius.Secret),
		Timeout:           time.Duration(c.Radius.Timeout) * time.Second,
		Retries:           retries,
		PushSentinel:      c.Radius.PushSentinel,
		NormalizeUsername: c.Radius.NormalizeUsername,
	}
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger() *log.DefaultLogger {
	if c.Log.Format == "json" {
		return log.NewJSONLogger(c.Log.Level)
	}
	return log.NewLoggerWithLevel(c.Log.Level)
}
