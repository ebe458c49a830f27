package engine

import "github.com/celerix-dev/realtrack/pkg/sdk"

type settings struct {
	log sdk.Logger
}

// Option configures a MemStore or a Persistence.
type Option func(*settings)

// WithLogger sets where warnings about unreadable tables and failed writes go.
// They are discarded by default.
func WithLogger(l sdk.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func resolve(opts []Option) settings {
	s := settings{log: sdk.NopLogger{}}
	for _, o := range opts {
		o(&s)
	}
	return s
}
