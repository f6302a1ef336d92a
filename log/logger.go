package log

import (
	"fmt"
	"io"
)

// Logger is a minimal wrapper around an io.Writer.
type Logger struct {
	io.Writer
}

// New returns a new logger which writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string.
func (l *Logger) Logf(f string, args ...interface{}) {
	fmt.Fprintf(l, f, args...)
}

// LogDepfln logs a formatted line, prefixed with `soldeer: `.
func (l *Logger) LogDepfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "soldeer: "+format+"\n", args...)
}

// Logerrf logs a formatted error line, prefixed with `soldeer: error: `.
// Used by the installer's per-dependency failure collector (spec §7) to
// report sibling failures without aborting the run.
func (l *Logger) Logerrf(format string, args ...interface{}) {
	fmt.Fprintf(l, "soldeer: error: "+format+"\n", args...)
}
