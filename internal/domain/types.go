package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan StringArray")
	}
	return json.Unmarshal(raw, a)
}

// Contains reports membership. Tags compare case-insensitively.
func (a StringArray) Contains(tag string) bool {
	for _, t := range a {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// NormalizeTags trims, drops empties and removes case-insensitive
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) StringArray {
	out := make(StringArray, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || out.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
