package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"time"
)

// StdoutLogger writes one JSON object per entry.
type StdoutLogger struct {
	// Out defaults to os.Stdout.
	Out io.Writer
	// DebugEnabled turns Debug entries on; they are dropped otherwise.
	DebugEnabled bool
}

func (l *StdoutLogger) log(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"level": level,
		"msg":   msg,
		"time":  time.Now().UTC().Format(time.RFC3339),
	}
	maps.Copy(entry, fields)

	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	b, _ := json.Marshal(entry)
	fmt.Fprintln(out, string(b))
}

func (l *StdoutLogger) Debug(msg string, fields map[string]any) {
	if l.DebugEnabled {
		l.log("DEBUG", msg, fields)
	}
}

func (l *StdoutLogger) Info(msg string, fields map[string]any) {
	l.log("INFO", msg, fields)
}

func (l *StdoutLogger) Error(msg string, fields map[string]any) {
	l.log("ERROR", msg, fields)
}
