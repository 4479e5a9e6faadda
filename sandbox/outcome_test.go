package sandbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		kind    ErrorKind
	}{
		{"Load", `cannot load mod: no module "mod" is available`, KindImportError},
		{"DictKey", `key "missing" not in dict`, KindKeyError},
		{"Attribute", "string has no .foo field or method", KindAttributeError},
		{"Index", "index 10 out of range: [0:3]", KindIndexError},
		{"Division", "floating-point division by zero", KindValueError},
		{"Modulo", "integer modulo by zero", KindValueError},
		{"BinaryOp", "unknown binary op: string + int", KindTypeError},
		{"NotCallable", "invalid call of non-function (int)", KindTypeError},
		{"ArgumentMismatch", "got int, want string", KindTypeError},
		{"Undefined", "undefined: whatever", KindNameError},
		{"Fallback", "something else entirely", KindRuntimeError},
		{"SnippetMessageMentionsWant", "fail: I want this to stay a runtime error", KindRuntimeError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, classifyMessage(tc.message))
		})
	}
}

func TestSuggestionFor(t *testing.T) {
	t.Run("FixedKindsHaveSuggestions", func(t *testing.T) {
		for _, kind := range []ErrorKind{
			KindEmptyCode, KindSyntaxError, KindNameError, KindKeyError,
			KindAttributeError, KindImportError, KindValueError,
			KindTypeError, KindIndexError, KindTimeoutError,
			KindMemoryLimit, KindPolicyViolation,
		} {
			assert.NotEmpty(t, suggestionFor(kind, ""), "kind %s", kind)
		}
	})

	t.Run("CatchAllMatchesKeywordCategories", func(t *testing.T) {
		assert.Contains(t, suggestionFor(KindRuntimeError, "bad column reference"), "column")
		assert.Contains(t, suggestionFor(KindRuntimeError, "permission denied"), "permission")
		assert.Contains(t, suggestionFor(KindRuntimeError, "out of memory"), "working set")
		assert.Contains(t, suggestionFor(KindRuntimeError, "operation timeout"), "time limit")
		assert.NotEmpty(t, suggestionFor(KindRuntimeError, "anything else"))
	})
}

func TestClassifyPlainError(t *testing.T) {
	kind, message, trace := classify(errors.New("something broke"), nil)
	assert.Equal(t, KindRuntimeError, kind)
	assert.Equal(t, "something broke", message)
	assert.Equal(t, "something broke", trace)
}

func TestFailureOutcomeShape(t *testing.T) {
	outcome := failureOutcome(KindTimeoutError, "deadline exceeded", "trace", "partial", 0)
	assert.False(t, outcome.Success)
	assert.Equal(t, "partial", outcome.Stdout)
	assert.Equal(t, KindTimeoutError, outcome.Failure.Kind)
	assert.NotEmpty(t, outcome.Failure.Suggestion)
}
