package toolexec

import (
	apperr "github.com/nicholaspatten/svgit/pkg/errors"
)

// Failure names the messages a tool wrapper reports for each outcome.
type Failure struct {
	Code    apperr.Code // code for a non-zero exit, e.g. TRACE_FAILED
	Message string      // e.g. "VTracer failed"
	Timeout string      // e.g. "VTracer processing timed out"
}

// Classify converts a Run error into a structured application error.
// Timeouts become TOOL_TIMEOUT, a missing executable TOOL_NOT_FOUND, and
// everything else f.Code. Details always carry Diagnostic(err).
func Classify(err error, f Failure) error {
	if err == nil {
		return nil
	}
	switch {
	case IsTimeout(err):
		return apperr.Wrap(apperr.ErrCodeTimeout, err, "%s", f.Timeout).WithDetails(err.Error())
	case IsNotFound(err):
		return apperr.Wrap(apperr.ErrCodeToolNotFound, err, "%s", f.Message).WithDetails(Diagnostic(err))
	}
	return apperr.Wrap(f.Code, err, "%s", f.Message).WithDetails(Diagnostic(err))
}
