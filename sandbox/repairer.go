package sandbox

// Validation is the result of checking snippet text before execution.
type Validation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// RepairResult is the result of attempting to fix snippet text.
type RepairResult struct {
	Success  bool
	Fixed    string
	Changes  []string
	Warnings []string
}

// TextRepairer is the external text-repair collaborator. The engine treats
// it as best-effort: any negative answer keeps the original text, so the
// core functions with NoopRepairer when no collaborator is available.
type TextRepairer interface {
	Validate(code string) Validation
	Repair(code string) RepairResult
}

// NoopRepairer accepts every snippet unchanged.
type NoopRepairer struct{}

// Validate reports every snippet as valid.
func (NoopRepairer) Validate(string) Validation {
	return Validation{Valid: true}
}

// Repair returns the snippet unchanged.
func (NoopRepairer) Repair(code string) RepairResult {
	return RepairResult{Success: true, Fixed: code}
}
