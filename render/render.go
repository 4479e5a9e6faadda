package render

import (
	"fmt"
	"sort"
)

// previewLimit caps how many elements a summary shows.
const previewLimit = 20

// Summary is a displayable description of a result value.
type Summary struct {
	Type     string `json:"type"`
	Shape    []int  `json:"shape,omitempty"`
	Length   int    `json:"length,omitempty"`
	Preview  []any  `json:"preview,omitempty"`
	ElemType string `json:"elem_type,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Summarize describes a result value. Tables arrive as slices of rows or as
// column maps; everything else is treated as a list, a dict or a scalar.
func Summarize(value any) Summary {
	switch v := value.(type) {
	case nil:
		return Summary{Type: "none"}
	case [][]any:
		return summarizeTable(v)
	case []map[string]any:
		return summarizeRecords(v)
	case []any:
		if rows, ok := asTable(v); ok {
			return summarizeTable(rows)
		}
		return summarizeList(v)
	case map[string]any:
		return summarizeDict(v)
	default:
		return Summary{
			Type:  fmt.Sprintf("%T", value),
			Value: fmt.Sprint(value),
		}
	}
}

// asTable reports whether every element is itself a slice, i.e. the value is
// row-oriented tabular data.
func asTable(values []any) ([][]any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	rows := make([][]any, len(values))
	for i, value := range values {
		row, ok := value.([]any)
		if !ok {
			return nil, false
		}
		rows[i] = row
	}
	return rows, true
}

func summarizeTable(rows [][]any) Summary {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	preview := make([]any, 0, min(len(rows), previewLimit))
	for _, row := range rows[:min(len(rows), previewLimit)] {
		preview = append(preview, row)
	}
	return Summary{
		Type:     "table",
		Shape:    []int{len(rows), cols},
		Length:   len(rows),
		Preview:  preview,
		ElemType: elemType(flatten(rows)),
	}
}

func summarizeRecords(records []map[string]any) Summary {
	cols := 0
	if len(records) > 0 {
		cols = len(records[0])
	}
	preview := make([]any, 0, min(len(records), previewLimit))
	for _, record := range records[:min(len(records), previewLimit)] {
		preview = append(preview, record)
	}
	return Summary{
		Type:    "table",
		Shape:   []int{len(records), cols},
		Length:  len(records),
		Preview: preview,
	}
}

func summarizeList(values []any) Summary {
	return Summary{
		Type:     "list",
		Length:   len(values),
		Preview:  values[:min(len(values), previewLimit)],
		ElemType: elemType(values),
	}
}

func summarizeDict(dict map[string]any) Summary {
	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	preview := make([]any, 0, min(len(keys), previewLimit))
	for _, key := range keys[:min(len(keys), previewLimit)] {
		preview = append(preview, key)
	}
	return Summary{
		Type:    "dict",
		Length:  len(dict),
		Preview: preview,
	}
}

// elemType names the element type when it is uniform, "mixed" otherwise.
func elemType(values []any) string {
	if len(values) == 0 {
		return ""
	}
	first := fmt.Sprintf("%T", values[0])
	for _, value := range values[1:] {
		if fmt.Sprintf("%T", value) != first {
			return "mixed"
		}
	}
	return first
}

func flatten(rows [][]any) []any {
	var flat []any
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}
