package gpu

// Logger is the subset of the engine logger the renderer writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

func orNop(l Logger) Logger {
	if l == nil {
		return NopLogger
	}
	return l
}
