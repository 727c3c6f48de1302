package models

import (
	"fmt"
	"strings"
)

// RawEvent is a decoded JSON event of unknown shape, as delivered by the
// upload endpoint or the live channel.
type RawEvent map[string]interface{}

// Lookup walks a dotted path through nested objects.
func (e RawEvent) Lookup(path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(e)
	for _, part := range strings.Split(path, ".") {
		m, ok := asObject(current)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		current = v
	}
	return current, true
}

// FirstString returns the first non-empty string value found at paths.
func (e RawEvent) FirstString(paths ...string) string {
	for _, path := range paths {
		v, ok := e.Lookup(path)
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// Object returns the nested object at path, if any.
func (e RawEvent) Object(path string) (RawEvent, bool) {
	v, ok := e.Lookup(path)
	if !ok {
		return nil, false
	}
	m, ok := asObject(v)
	if !ok {
		return nil, false
	}
	return RawEvent(m), true
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case RawEvent:
		return m, true
	default:
		return nil, false
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return val.String()
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%f", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
