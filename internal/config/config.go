// Package config holds the configuration for the realtrack CLI and the
// development backend.
//
// Values are resolved in order: built-in defaults, then a config file (.yaml,
// .yml or .json), then REALTRACK_* environment variables. Command-line flags are
// applied last by the binaries themselves.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/celerix-dev/realtrack/internal/logging"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile  = "REALTRACK_CONFIG"
	EnvPort        = "REALTRACK_PORT"
	EnvDataDir     = "REALTRACK_DATA_DIR"
	EnvSeedFile    = "REALTRACK_SEED_FILE"
	EnvLogProvider = "REALTRACK_LOG_PROVIDER"
	EnvLogFile     = "REALTRACK_LOG_FILE"
	EnvTLS         = "REALTRACK_TLS"

	DefaultPort    = 8000
	DefaultDataDir = "./data"
	DefaultTimeout = 30 * time.Second
)

// Client configures the realtrack CLI.
type Client struct {
	APIBaseURL  string        `yaml:"api_base_url" json:"api_base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	LogProvider string        `yaml:"log_provider" json:"log_provider"`
	LogFile     string        `yaml:"log_file" json:"log_file"`
	// InsecureTLS skips certificate verification, for a backend using a
	// self-signed certificate.
	InsecureTLS bool `yaml:"insecure_tls" json:"insecure_tls"`
}

// Server configures realtrackd.
type Server struct {
	Port        int    `yaml:"port" json:"port"`
	DataDir     string `yaml:"data_dir" json:"data_dir"`
	SeedFile    string `yaml:"seed_file" json:"seed_file"`
	LogProvider string `yaml:"log_provider" json:"log_provider"`
	LogFile     string `yaml:"log_file" json:"log_file"`
	// TLS serves HTTPS with a self-signed certificate.
	TLS bool `yaml:"tls" json:"tls"`
}

// File is the on-disk layout. Either section may be omitted.
type File struct {
	Client Client `yaml:"client" json:"client"`
	Server Server `yaml:"server" json:"server"`
}

// FillDefaults returns a copy of c with unset values replaced by defaults.
func (c Client) FillDefaults() Client {
	if c.APIBaseURL == "" {
		c.APIBaseURL = sdk.DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LogProvider == "" {
		c.LogProvider = logging.None.String()
	}
	return c
}

// Validate returns an error if the configuration cannot be used.
func (c Client) Validate() error {
	if _, err := logging.ParseProvider(c.LogProvider); err != nil {
		return fmt.Errorf("log_provider: %w", err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout: must not be negative")
	}
	return nil
}

// FillDefaults returns a copy of s with unset values replaced by defaults.
func (s Server) FillDefaults() Server {
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.DataDir == "" {
		s.DataDir = DefaultDataDir
	}
	if s.LogProvider == "" {
		s.LogProvider = logging.Jellog.String()
	}
	return s
}

// Validate returns an error if the configuration cannot be used.
func (s Server) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port: must be between 1 and 65535, got %d", s.Port)
	}
	if _, err := logging.ParseProvider(s.LogProvider); err != nil {
		return fmt.Errorf("log_provider: %w", err)
	}
	return nil
}

// Load reads a config file, then applies environment overrides and defaults. An
// empty path skips the file; REALTRACK_CONFIG is consulted in that case.
func Load(path string) (File, error) {
	var f File

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return f, fmt.Errorf("read config: %w", err)
		}
		if err := Unmarshal(path, data, &f); err != nil {
			return f, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := f.applyEnv(); err != nil {
		return f, err
	}

	f.Client = f.Client.FillDefaults()
	f.Server = f.Server.FillDefaults()
	return f, nil
}

// Unmarshal decodes data according to the extension of file.
func Unmarshal(file string, data []byte, f *File) error {
	switch filepath.Ext(strings.ToLower(file)) {
	case ".json":
		return json.Unmarshal(data, f)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, f)
	default:
		return fmt.Errorf("incompatible format; must be .json, .yml, or .yaml file")
	}
}

func (f *File) applyEnv() error {
	env, err := sdk.LookupEnv()
	if err != nil {
		return err
	}
	if env.BaseURL != "" {
		f.Client.APIBaseURL = env.BaseURL
	}
	if env.Timeout > 0 {
		f.Client.Timeout = env.Timeout
	}
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: not a number: %q", EnvPort, v)
		}
		f.Server.Port = p
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		f.Server.DataDir = v
	}
	if v := os.Getenv(EnvSeedFile); v != "" {
		f.Server.SeedFile = v
	}
	if v := os.Getenv(EnvLogProvider); v != "" {
		f.Client.LogProvider = v
		f.Server.LogProvider = v
	}
	if v := os.Getenv(EnvTLS); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: not a boolean: %q", EnvTLS, v)
		}
		f.Server.TLS = b
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		f.Client.LogFile = v
		f.Server.LogFile = v
	}
	return nil
}
