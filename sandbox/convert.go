package sandbox

import (
	"fmt"
	"time"

	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
)

// ToStarlark converts a host Go value into its Starlark equivalent. Tabular
// context data arrives as slices and string-keyed maps; anything the sandbox
// cannot represent is rejected rather than smuggled in as an opaque value.
func ToStarlark(value any) (starlark.Value, error) {
	switch v := value.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return v, nil
	case bool:
		return starlark.Bool(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int32:
		return starlark.MakeInt64(int64(v)), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case uint64:
		return starlark.MakeUint64(v), nil
	case float32:
		return starlark.Float(v), nil
	case float64:
		return starlark.Float(v), nil
	case string:
		return starlark.String(v), nil
	case time.Time:
		return startime.Time(v), nil
	case []any:
		return toStarlarkList(v)
	case []string:
		anys := make([]any, len(v))
		for i, s := range v {
			anys[i] = s
		}
		return toStarlarkList(anys)
	case []int:
		anys := make([]any, len(v))
		for i, n := range v {
			anys[i] = n
		}
		return toStarlarkList(anys)
	case []float64:
		anys := make([]any, len(v))
		for i, f := range v {
			anys[i] = f
		}
		return toStarlarkList(anys)
	case map[string]any:
		dict := starlark.NewDict(len(v))
		for key, elem := range v {
			converted, err := ToStarlark(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			if err := dict.SetKey(starlark.String(key), converted); err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported context value type %T", value)
	}
}

func toStarlarkList(values []any) (starlark.Value, error) {
	elems := make([]starlark.Value, len(values))
	for i, value := range values {
		converted, err := ToStarlark(value)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = converted
	}
	return starlark.NewList(elems), nil
}

// FromStarlark converts a Starlark value back into a plain Go value for the
// outcome. Values without a natural Go shape fall back to their Starlark
// string form.
func FromStarlark(value starlark.Value) any {
	switch v := value.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.Int:
		if n, ok := v.Int64(); ok {
			return n
		}
		return v.String()
	case starlark.Float:
		return float64(v)
	case starlark.String:
		return string(v)
	case startime.Time:
		return time.Time(v)
	case *starlark.List:
		elems := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elems[i] = FromStarlark(v.Index(i))
		}
		return elems
	case starlark.Tuple:
		elems := make([]any, len(v))
		for i, elem := range v {
			elems[i] = FromStarlark(elem)
		}
		return elems
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = FromStarlark(item[1])
		}
		return out
	default:
		return v.String()
	}
}
