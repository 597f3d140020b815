package util

import (
	"log"
	"os"
)

// LoggingEnabled switches on the debug trace of the language server and
// the playground. Stdout may carry the protocol stream, so the trace goes
// to stderr.
var LoggingEnabled = false

var logger = log.New(os.Stderr, "", log.LstdFlags)

func LogF(format string, args ...interface{}) {
	if !LoggingEnabled {
		return
	}
	logger.Printf(format, args...)
}
