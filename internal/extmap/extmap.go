// Package extmap holds the schemaless extension types stored in text
// columns. The contents are opaque to the schema: callers attach
// whatever keys they need and the store round-trips them as JSON.
package extmap

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Map is an open string-keyed extension map serialized to a JSON text
// column. A nil Map stores as "{}".
type Map map[string]any

func (m Map) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal extmap: %w", err)
	}
	return string(data), nil
}

func (m *Map) Scan(src any) error {
	raw, err := asBytes(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	out := make(Map)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal extmap: %w", err)
	}
	if len(out) == 0 {
		*m = nil
		return nil
	}
	*m = out
	return nil
}

// GetString returns the value for key if it is a string.
func (m Map) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// List is an open string list serialized to a JSON text column.
// A nil List stores as "[]".
type List []string

func (l List) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal extmap list: %w", err)
	}
	return string(data), nil
}

func (l *List) Scan(src any) error {
	raw, err := asBytes(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out List
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal extmap list: %w", err)
	}
	if len(out) == 0 {
		*l = nil
		return nil
	}
	*l = out
	return nil
}

// Contains reports whether v is present in the list.
func (l List) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// Add returns the list with v appended if not already present.
func (l List) Add(v string) List {
	if l.Contains(v) {
		return l
	}
	return append(l, v)
}

func asBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported extmap column type %T", src)
	}
}
