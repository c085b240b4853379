package acdata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a JSON object returned by the API. Numbers decode as json.Number.
type Record map[string]any

// ID returns the record's "id" field.
func (r Record) ID() (Identifier, bool) {
	if r == nil {
		return "", false
	}
	switch v := r["id"].(type) {
	case json.Number:
		return Identifier(v.String()), true
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return Identifier(v), true
	case float64:
		return Identifier(strconv.FormatFloat(v, 'f', -1, 64)), true
	default:
		return "", false
	}
}

// String returns the record's field as text, or "" when absent.
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Identifier is a record id as returned by the API. Canonical integer ids are
// encoded back as JSON numbers, anything else as a string.
type Identifier string

func (id Identifier) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}
