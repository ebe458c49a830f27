package sdk

// Logger is used by the client and the stores to report what they do. Use the
// New function in internal/logging to create one, or NopLogger to discard.
type Logger interface {
	// Trace writes a message to the log at Trace level.
	Trace(string)

	// Tracef writes a formatted message to the log at Trace level.
	Tracef(string, ...interface{})

	// Debug writes a message to the log at Debug level.
	Debug(string)

	// Debugf writes a formatted message to the log at Debug level.
	Debugf(string, ...interface{})

	// Info writes a message to the log at Info level.
	Info(string)

	// Infof writes a formatted message to the log at Info level.
	Infof(string, ...interface{})

	// Warn writes a message to the log at Warn level.
	Warn(string)

	// Warnf writes a formatted message to the log at Warn level.
	Warnf(string, ...interface{})

	// Error writes a message to the log at Error level.
	Error(string)

	// Errorf writes a formatted message to the log at Error level.
	Errorf(string, ...interface{})
}

// NopLogger is a logger that performs no operations.
type NopLogger struct{}

func (NopLogger) Trace(string)                  {}
func (NopLogger) Tracef(string, ...interface{}) {}
func (NopLogger) Debug(string)                  {}
func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Info(string)                   {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warn(string)                   {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Error(string)                  {}
func (NopLogger) Errorf(string, ...interface{}) {}
