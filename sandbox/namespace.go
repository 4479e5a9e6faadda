package sandbox

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Profile names the sandbox's import behavior. The permissive default is a
// deliberate configuration choice; callers pick the trade-off explicitly.
type Profile string

// Operating profiles.
const (
	// ProfilePermissive delegates load() to the full builtin registry, so
	// every registered module is reachable even when not pre-populated.
	ProfilePermissive Profile = "permissive"

	// ProfileHardened restricts load() to the allow-listed modules and
	// fails closed for everything else.
	ProfileHardened Profile = "hardened"
)

// reservedPrefix marks names the engine reserves internally. No entry with
// this prefix may appear in either namespace; a snippet reading one gets an
// ordinary undefined-name failure.
const reservedPrefix = "_starbox_"

// BuildNamespace constructs the two namespaces a snippet executes against:
// globals seeded from the allow-listed modules and callables, and locals
// seeded from a converted copy of the caller's context. The caller's map is
// never mutated by the run.
func BuildNamespace(allowedModules, allowedCallables []string, contextVars map[string]any) (globals, locals starlark.StringDict, err error) {
	globals = make(starlark.StringDict, len(allowedModules)+len(allowedCallables))
	for _, name := range allowedModules {
		if strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		if module, ok := moduleValues[name]; ok {
			globals[name] = module
		}
	}
	for _, name := range allowedCallables {
		if strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		if callable, ok := callableValues[name]; ok {
			globals[name] = callable
		}
	}

	locals = make(starlark.StringDict, len(contextVars))
	for name, value := range contextVars {
		if strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		converted, convErr := ToStarlark(value)
		if convErr != nil {
			return nil, nil, fmt.Errorf("context value %q: %w", name, convErr)
		}
		locals[name] = converted
	}

	return globals, locals, nil
}

// Loader returns the load() implementation for the given profile: the single
// configurable import capability of the sandbox.
func Loader(profile Profile, allowedModules []string) func(*starlark.Thread, string) (starlark.StringDict, error) {
	allowed := make(map[string]struct{}, len(allowedModules))
	for _, name := range allowedModules {
		allowed[name] = struct{}{}
	}

	return func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
		if profile == ProfileHardened {
			if _, ok := allowed[module]; !ok {
				return nil, fmt.Errorf("module %q is not in the allow-list", module)
			}
		}
		value, ok := moduleValues[module]
		if !ok {
			return nil, fmt.Errorf("no module %q is available", module)
		}
		return value.Members, nil
	}
}
