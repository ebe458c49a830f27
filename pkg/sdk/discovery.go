package sdk

import (
	"fmt"
	"os"
	"time"
)

// EnvBaseURL names the environment variable holding the backend base URL.
const EnvBaseURL = "REALTRACK_API_BASE_URL"

// EnvTimeout names the environment variable holding the request timeout, in Go
// duration syntax ("15s").
const EnvTimeout = "REALTRACK_API_TIMEOUT"

// Env is the client configuration found in the environment. Zero fields were
// not set.
type Env struct {
	BaseURL string
	Timeout time.Duration
}

// LookupEnv reads REALTRACK_API_BASE_URL and REALTRACK_API_TIMEOUT. A timeout
// that does not parse, or is not positive, is an error.
func LookupEnv() (Env, error) {
	env := Env{BaseURL: os.Getenv(EnvBaseURL)}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return env, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		if d <= 0 {
			return env, fmt.Errorf("%s: must be positive, got %s", EnvTimeout, raw)
		}
		env.Timeout = d
	}
	return env, nil
}

// New initializes a client based on the environment.
// REALTRACK_API_BASE_URL selects the backend; it falls back to DefaultBaseURL.
// Options passed in take precedence over the environment.
func New(opts ...ClientOption) (*Client, error) {
	env, err := LookupEnv()
	if err != nil {
		return nil, err
	}
	if env.Timeout > 0 {
		opts = append([]ClientOption{WithTimeout(env.Timeout)}, opts...)
	}
	return NewClient(env.BaseURL, opts...)
}
