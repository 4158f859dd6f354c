package config

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/loopwork-ai/norris/joke"
)

// Environment variables read by ApplyEnv
const (
	EnvPort     = "PORT"
	EnvRedisURL = "REDIS_URL"
	EnvJokesURL = "JOKES_API_URL"
)

// Config represents the configuration for the norris service
type Config struct {
	// Port is the TCP port the HTTP transport listens on
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// RedisURL locates the session store. It may be a 1Password
	// reference (op://vault/item/field).
	RedisURL string `yaml:"redisURL"`

	// JokesAPIURL is the root of the upstream joke endpoints
	JokesAPIURL string `yaml:"jokesApiURL" validate:"required,url"`

	// SessionPrefix namespaces session keys in Redis
	SessionPrefix string `yaml:"sessionPrefix" validate:"required"`

	// SessionTTL is how long an idle session key survives in Redis
	SessionTTL time.Duration `yaml:"sessionTTL" validate:"min=0"`

	// KeepAlive is the interval between SSE keep-alive comments
	KeepAlive time.Duration `yaml:"keepAlive" validate:"min=0"`

	// Timeout bounds each upstream call; zero leaves the HTTP client default
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`

	// UserAgent is sent with every upstream call
	UserAgent string `yaml:"userAgent"`

	// Instructions is returned to clients during initialize
	Instructions string `yaml:"instructions"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		Port:          3000,
		JokesAPIURL:   joke.DefaultBaseURL,
		SessionPrefix: "norris",
		SessionTTL:    time.Hour,
		KeepAlive:     30 * time.Second,
	}
}

// LoadFile loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "error opening config file")
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader on top of the defaults
func Load(r io.Reader) (*Config, error) {
	config := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config data")
	}

	if strings.TrimSpace(string(data)) == "" {
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "error parsing config YAML")
	}

	return config, nil
}

// ApplyEnv overrides fields from environment variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s %q", EnvPort, v)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.RedisURL = v
	}
	if v, ok := lookup(EnvJokesURL); ok && v != "" {
		c.JokesAPIURL = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Newf("invalid configuration: %s failed %q check (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// Addr returns the listen address for Port
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
