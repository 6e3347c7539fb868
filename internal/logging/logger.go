package logging

// Logger is the minimal structured logging surface the gateway needs.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// Nop discards everything, for tests.
type Nop struct{}

func (Nop) Debug(string, map[string]any) {}
func (Nop) Info(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}
