package metadata

import "fmt"

type DiagnosticSeverity int

const (
	DIAGNOSTIC_SEVERITY_WARNING DiagnosticSeverity = iota
	DIAGNOSTIC_SEVERITY_ERROR
)

func (ds DiagnosticSeverity) String() string {
	if ds == DIAGNOSTIC_SEVERITY_ERROR {
		return "error"
	}
	return "warning"
}

/** @brief The category of a recoverable rendering problem. */
type DiagnosticCode int

const (
	/** @brief A drawable references something unusable (disposed geometry, bad group). */
	DIAGNOSTIC_CODE_CONFIGURATION DiagnosticCode = iota
	/** @brief A program failed to build, a stand-in is drawn instead. */
	DIAGNOSTIC_CODE_COMPILATION
	/** @brief A limit was exceeded and the input truncated. */
	DIAGNOSTIC_CODE_RESOURCE_LIMIT
	/** @brief The backend context went away. */
	DIAGNOSTIC_CODE_CONTEXT_LOST
)

func (dc DiagnosticCode) String() string {
	switch dc {
	case DIAGNOSTIC_CODE_CONFIGURATION:
		return "configuration"
	case DIAGNOSTIC_CODE_COMPILATION:
		return "compilation"
	case DIAGNOSTIC_CODE_RESOURCE_LIMIT:
		return "resource_limit"
	case DIAGNOSTIC_CODE_CONTEXT_LOST:
		return "context_lost"
	}
	return fmt.Sprintf("diagnostic_code(%d)", int(dc))
}

/**
 * @brief A problem that degraded the frame without stopping it.
 */
type Diagnostic struct {
	Severity DiagnosticSeverity
	Code     DiagnosticCode
	Message  string
	/** @brief The underlying error, matchable with errors.Is. */
	Err error
	/** @brief The frame the problem was found in. */
	Frame uint64
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("[%s/%s] frame %d: %s: %v", d.Severity, d.Code, d.Frame, d.Message, d.Err)
	}
	return fmt.Sprintf("[%s/%s] frame %d: %s", d.Severity, d.Code, d.Frame, d.Message)
}

/** @brief Receives diagnostics as they are raised. */
type FnOnDiagnostic func(diagnostic Diagnostic)
