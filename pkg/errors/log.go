package errors

import (
	"fmt"
	"os"
)

// LogHandler is an ErrorHandler that logs errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// HandleError logs a WeftError to stderr.
func (h *LogHandler) HandleError(err *WeftError) {
	if err == nil {
		return
	}
	if h.Verbose {
		fmt.Fprintf(os.Stderr, "[weft error] %s [%s]: %v\n", err.Op, err.Kind, err.Err)
		if err.StackTrace != "" {
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", err.StackTrace)
		}
	} else {
		fmt.Fprintf(os.Stderr, "[weft error] %s: %v\n", err.Op, err.Err)
	}
}

// HandleEvaluatorError logs an EvaluatorError to stderr.
func (h *LogHandler) HandleEvaluatorError(err *EvaluatorError) {
	if err == nil {
		return
	}
	if err.Recovered != nil {
		fmt.Fprintf(os.Stderr, "[weft evaluator panic] %s: %v\n", err.Owner, err.Recovered)
	} else {
		fmt.Fprintf(os.Stderr, "[weft evaluator error] %s: %v\n", err.Owner, err.Err)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", err.StackTrace)
	}
}
