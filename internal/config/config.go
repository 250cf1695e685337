package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration file layout.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Field   FieldConfig   `yaml:"field"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MaxConnections int           `yaml:"max_connections"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadLimit      int64         `yaml:"read_limit"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
}

type FieldConfig struct {
	FrameRate int     `yaml:"frame_rate"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	Seed      uint64  `yaml:"seed"` // 0 seeds from the clock
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Path string `yaml:"path"` // empty keeps the session in memory
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:8090",
			MaxConnections: 1000,
			WriteTimeout:   5 * time.Second,
			ReadLimit:      64 * 1024,
		},
		Field: FieldConfig{
			FrameRate: 60,
			Width:     1200,
			Height:    600,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{Path: DefaultSessionPath()},
		Log:     LogConfig{Level: "info"},
	}
}

// DefaultSessionPath is session.db under the user's config directory, or
// empty (memory only) when there is none.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "safarnama", "session.db")
}

// Load reads a YAML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes r on top of Default and validates the result. Unknown keys
// are rejected.
func LoadYAML(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if c.Server.MaxConnections <= 0 {
		errs = append(errs, errors.New("server.max_connections must be positive"))
	}
	if c.Field.FrameRate <= 0 || c.Field.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("field.frame_rate %d out of range (1..240)", c.Field.FrameRate))
	}
	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		errs = append(errs, errors.New("field.width and field.height must be positive"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

var ErrInvalidConfig = errors.New("invalid configuration")
