package sandbox

import (
	_ "embed"
	"fmt"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"gopkg.in/yaml.v3"
)

// The builtin registry is the versioned table of everything the sandbox can
// expose. The sandbox's surface area is exactly this table, filtered by the
// configured allow-lists; nothing is populated by runtime reflection.

//go:embed registry.yaml
var registryYAML []byte

type registryTable struct {
	Version   string   `yaml:"version"`
	Modules   []string `yaml:"modules"`
	Callables []string `yaml:"callables"`
}

var registry registryTable

// moduleValues maps registry module names to their Starlark implementations.
var moduleValues = map[string]*starlarkstruct.Module{
	"math": math.Module,
	"time": startime.Module,
	"json": json.Module,
}

// callableValues maps registry callable names to their implementations.
var callableValues = map[string]*starlark.Builtin{
	"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
}

func init() {
	if err := yaml.Unmarshal(registryYAML, &registry); err != nil {
		panic(fmt.Sprintf("sandbox: malformed embedded registry: %v", err))
	}
	for _, name := range registry.Modules {
		if _, ok := moduleValues[name]; !ok {
			panic(fmt.Sprintf("sandbox: registry lists unknown module %q", name))
		}
	}
	for _, name := range registry.Callables {
		if _, ok := callableValues[name]; !ok {
			panic(fmt.Sprintf("sandbox: registry lists unknown callable %q", name))
		}
	}
}

// RegistryVersion returns the version of the embedded allow-list table.
func RegistryVersion() string {
	return registry.Version
}

// RegistryModules returns the names of every module the registry can expose.
func RegistryModules() []string {
	return append([]string(nil), registry.Modules...)
}

// RegistryCallables returns the names of every callable the registry can
// expose.
func RegistryCallables() []string {
	return append([]string(nil), registry.Callables...)
}
