package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	stdLogFlags      = log.LstdFlags | log.LUTC
	stdDebugLogFlags = log.LstdFlags | log.Lshortfile | log.LUTC
	outputCallDepth  = 2

	debugLogger = log.New(os.Stderr, "DEBUG: ", stdDebugLogFlags)
	infoLogger  = log.New(os.Stderr, "INFO: ", stdLogFlags)
	errorLogger = log.New(os.Stderr, "ERROR: ", stdLogFlags)
	fatalLogger = log.New(os.Stderr, "FATAL: ", log.LstdFlags|log.Llongfile|log.LUTC)
)

// SuppressOutput silences all non-fatal output if `suppress` is true.
// Used while testing.
func SuppressOutput(suppress bool) {
	var w io.Writer = os.Stderr
	if suppress {
		w = io.Discard
	}
	debugLogger.SetOutput(w)
	infoLogger.SetOutput(w)
	errorLogger.SetOutput(w)
}

var debug uint32

// SetDebug enables debug output and file:line annotations on info
// and error messages.
func SetDebug(val bool) {
	if val {
		atomic.StoreUint32(&debug, 1)
		infoLogger.SetFlags(stdDebugLogFlags)
		errorLogger.SetFlags(stdDebugLogFlags)
	} else {
		atomic.StoreUint32(&debug, 0)
		infoLogger.SetFlags(stdLogFlags)
		errorLogger.SetFlags(stdLogFlags)
	}
}

// Debugf prints debug message to the log if debug logging is enabled.
func Debugf(format string, args ...interface{}) {
	if atomic.LoadUint32(&debug) == 0 {
		return
	}
	s := fmt.Sprintf(format, args...)
	debugLogger.Output(outputCallDepth, s)
}

// Infof prints info message to the log.
func Infof(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	infoLogger.Output(outputCallDepth, s)
}

// Errorf prints error message to the log.
func Errorf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	errorLogger.Output(outputCallDepth, s)
}

// Fatalf prints fatal message to the log and terminates the process.
func Fatalf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	fatalLogger.Output(outputCallDepth, s)
	os.Exit(1)
}
