package repair

import (
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/syntax"

	"github.com/isdmx/starbox/sandbox"
)

// Handler implements sandbox.TextRepairer with string-literal fixes.
type Handler struct{}

// New creates a Handler.
func New() *Handler {
	return &Handler{}
}

var parseOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// typographicQuotes maps quotes pasted from rich-text documents to their
// ASCII forms.
var typographicQuotes = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
)

// incompleteUnicodeEscape matches a \u escape not followed by four hex
// digits; such escapes are almost always literal backslashes from pasted
// paths.
var incompleteUnicodeEscape = regexp.MustCompile(`\\u(?:[0-9a-fA-F]{0,3}$|[0-9a-fA-F]{0,3}[^0-9a-fA-F])`)

// quotedAssignment matches an assignment of a double-quoted literal whose
// content may contain unescaped inner quotes.
var quotedAssignment = regexp.MustCompile(`^(\s*\w+\s*=\s*")(.*)("\s*)$`)

// Validate checks whether the snippet parses. Syntax failures that look
// string-related get a targeted warning.
func (*Handler) Validate(code string) sandbox.Validation {
	validation := sandbox.Validation{Valid: true}

	if _, err := parseOptions.Parse("snippet.star", code, 0); err != nil {
		validation.Valid = false
		validation.Errors = append(validation.Errors, err.Error())

		message := strings.ToLower(err.Error())
		if strings.Contains(message, "string literal") || strings.Contains(message, "quote") {
			validation.Warnings = append(validation.Warnings, "check that every string literal is closed")
		}
	}

	if issues := incompleteUnicodeEscape.FindAllString(code, -1); len(issues) > 0 {
		validation.Warnings = append(validation.Warnings,
			fmt.Sprintf("found %d incomplete unicode escapes", len(issues)))
	}

	return validation
}

// Repair attempts to fix the snippet text. Success is reported only when the
// rewritten text parses; otherwise the original is returned so the engine
// keeps it.
func (h *Handler) Repair(code string) sandbox.RepairResult {
	result := sandbox.RepairResult{Fixed: code}

	if _, err := parseOptions.Parse("snippet.star", code, 0); err == nil {
		result.Success = true
		result.Warnings = append(result.Warnings, "code already parses, nothing to repair")
		return result
	}

	fixed := code

	if normalized := typographicQuotes.Replace(fixed); normalized != fixed {
		fixed = normalized
		result.Changes = append(result.Changes, "normalized typographic quotes")
	}

	if escaped := escapeIncompleteUnicode(fixed); escaped != fixed {
		fixed = escaped
		result.Changes = append(result.Changes, "escaped incomplete unicode escapes")
	}

	if requoted := escapeInnerQuotes(fixed); requoted != fixed {
		fixed = requoted
		result.Changes = append(result.Changes, "escaped inner quotes in quoted assignments")
	}

	if _, err := parseOptions.Parse("snippet.star", fixed, 0); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("text still does not parse: %v", err))
		return result
	}

	result.Success = true
	result.Fixed = fixed
	return result
}

// escapeIncompleteUnicode doubles the backslash of \u escapes that are not
// followed by four hex digits.
func escapeIncompleteUnicode(code string) string {
	return incompleteUnicodeEscape.ReplaceAllStringFunc(code, func(match string) string {
		return `\` + match
	})
}

// escapeInnerQuotes escapes stray double quotes inside single-line quoted
// assignments, e.g. x = "say "hi"" becomes x = "say \"hi\"".
func escapeInnerQuotes(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.Count(line, `"`) <= 2 || strings.Contains(line, `\"`) {
			continue
		}
		match := quotedAssignment.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		content := strings.ReplaceAll(match[2], `"`, `\"`)
		lines[i] = match[1] + content + match[3]
	}
	return strings.Join(lines, "\n")
}
