package logging

import (
	"fmt"
	"os"
)

// EarlyLog writes to stderr during the window before the structured logger
// exists, which covers config loading and logger construction only.
type EarlyLog struct{}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{}
}

// Error reports a startup failure and exits. Nothing useful can run when
// config or the logger cannot be brought up.
func (l *EarlyLog) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+msg+"\n", args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "WARN: "+msg+"\n", args...)
}
