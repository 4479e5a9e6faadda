package sandbox

import (
	"errors"
	"strings"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/isdmx/starbox/guard"
)

// ErrorKind is the fixed taxonomy every failure maps into. All kinds are
// recoverable by the caller; none terminate the host process.
type ErrorKind string

// Error kinds.
const (
	KindEmptyCode       ErrorKind = "EmptyCode"
	KindSyntaxError     ErrorKind = "SyntaxError"
	KindNameError       ErrorKind = "NameError"
	KindKeyError        ErrorKind = "KeyError"
	KindAttributeError  ErrorKind = "AttributeError"
	KindImportError     ErrorKind = "ImportError"
	KindValueError      ErrorKind = "ValueError"
	KindTypeError       ErrorKind = "TypeError"
	KindIndexError      ErrorKind = "IndexError"
	KindTimeoutError    ErrorKind = "TimeoutError"
	KindMemoryLimit     ErrorKind = "MemoryLimitError"
	KindPolicyViolation ErrorKind = "PolicyViolation"
	KindRuntimeError    ErrorKind = "RuntimeError"
)

// Failure describes why a run failed.
type Failure struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	Trace      string
}

// Outcome is the sole externally observed artifact of a run. Exactly one of
// Success or Failure applies; Stdout and Elapsed are populated either way so
// callers can show what ran before a break.
type Outcome struct {
	Success bool
	Stdout  string
	Elapsed time.Duration

	// Value is the binding of the reserved name "result", nil when the run
	// produced no explicit result. Locals holds every non-private binding
	// after the run. Both are set only on success.
	Value  any
	Locals map[string]any

	Failure *Failure
}

func successOutcome(stdout string, elapsed time.Duration, value any, locals map[string]any) Outcome {
	return Outcome{
		Success: true,
		Stdout:  stdout,
		Elapsed: elapsed,
		Value:   value,
		Locals:  locals,
	}
}

func failureOutcome(kind ErrorKind, message, trace, stdout string, elapsed time.Duration) Outcome {
	return Outcome{
		Stdout:  stdout,
		Elapsed: elapsed,
		Failure: &Failure{
			Kind:       kind,
			Message:    message,
			Suggestion: suggestionFor(kind, message),
			Trace:      trace,
		},
	}
}

// classify maps a run failure onto the error taxonomy. Engine-raised aborts
// are identified by the guard scope's flags so they are distinguishable from
// snippet-raised errors of the same shape.
func classify(err error, scope *guard.Scope) (ErrorKind, string, string) {
	message := err.Error()
	trace := message

	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		message = evalErr.Msg
		trace = evalErr.Backtrace()
	}

	if scope != nil {
		if scope.TimedOut() {
			return KindTimeoutError, message, trace
		}
		if exceeded, usage := scope.MemoryExceeded(); exceeded {
			memErr := &guard.MemoryLimitError{
				LimitBytes: scope.Limits().MaxMemoryBytes,
				UsageBytes: usage,
			}
			return KindMemoryLimit, memErr.Error(), trace
		}
	}

	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) {
		if len(resolveErrs) > 0 {
			message = resolveErrs[0].Msg
		}
		if strings.Contains(message, "undefined:") {
			return KindNameError, message, trace
		}
		return KindSyntaxError, message, trace
	}
	var resolveErr resolve.Error
	if errors.As(err, &resolveErr) {
		if strings.Contains(resolveErr.Msg, "undefined:") {
			return KindNameError, resolveErr.Msg, trace
		}
		return KindSyntaxError, resolveErr.Msg, trace
	}
	var syntaxErr syntax.Error
	if errors.As(err, &syntaxErr) {
		return KindSyntaxError, syntaxErr.Msg, trace
	}

	return classifyMessage(message), message, trace
}

// classifyMessage buckets a runtime failure by its message. Ordering matters:
// the more specific categories are matched first.
func classifyMessage(message string) ErrorKind {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "undefined:"):
		return KindNameError
	case strings.Contains(lower, "cannot load"):
		return KindImportError
	case strings.Contains(lower, "not in dict"), strings.Contains(lower, "has no key"):
		return KindKeyError
	case strings.Contains(lower, "has no ."), strings.Contains(lower, "no such attribute"):
		return KindAttributeError
	case strings.Contains(lower, "out of range"):
		return KindIndexError
	case strings.Contains(lower, "division by zero"),
		strings.Contains(lower, "modulo by zero"),
		strings.Contains(lower, "invalid literal"),
		strings.Contains(lower, "negative shift"):
		return KindValueError
	case strings.Contains(lower, "unknown binary op"),
		strings.Contains(lower, "unknown unary op"),
		strings.Contains(lower, "invalid call"),
		strings.Contains(lower, "not callable"),
		strings.Contains(lower, "not iterable"),
		strings.Contains(lower, "unhashable"),
		strings.Contains(lower, "for parameter"):
		return KindTypeError
	// The got/want pair is the interpreter's argument-mismatch shape;
	// either word alone is too common in snippet-authored messages.
	case strings.Contains(lower, "got ") && strings.Contains(lower, "want "):
		return KindTypeError
	default:
		return KindRuntimeError
	}
}

// Canned remediation suggestions per error kind.
var suggestions = map[ErrorKind]string{
	KindEmptyCode:       "Provide a non-empty code snippet",
	KindSyntaxError:     "Check the code syntax, especially string quoting and escape characters",
	KindNameError:       "Check variable spelling and make sure every variable is assigned before use",
	KindKeyError:        "Check that the dictionary key or table column exists",
	KindAttributeError:  "Check that the object has the field or method being accessed",
	KindImportError:     "Check that the module name is spelled correctly and is in the allow-list",
	KindValueError:      "Check value conversions and numeric ranges",
	KindTypeError:       "Check argument types and operand compatibility",
	KindIndexError:      "Check that list and array indexes are within range",
	KindTimeoutError:    "Execution timed out; simplify the code or raise the time limit",
	KindMemoryLimit:     "Reduce the working set or raise the memory limit",
	KindPolicyViolation: "Remove the denied imports or calls, or run under the permissive profile",
}

// suggestionFor selects a remediation hint. The catch-all kind picks one by
// matching the failure message against known categories.
func suggestionFor(kind ErrorKind, message string) string {
	if suggestion, ok := suggestions[kind]; ok {
		return suggestion
	}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "table"), strings.Contains(lower, "column"), strings.Contains(lower, "dataframe"):
		return "Check the table operation and that the referenced columns exist"
	case strings.Contains(lower, "permission"):
		return "Check file and resource access permissions"
	case strings.Contains(lower, "memory"):
		return "Reduce the working set or process the data in smaller batches"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "cancelled"):
		return "Execution was interrupted; simplify the code or raise the time limit"
	default:
		return "Check the code logic; the full trace is attached"
	}
}
