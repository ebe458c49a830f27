// Package schema defines the record shapes exchanged with the realtrack backend.
//
// Every resource is transported as a Record, a plain JSON object that must carry an
// "id" field. Typed overlays (Transaction, Building, ...) are available for code that
// wants named fields, and As converts between the two.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a single resource row as decoded from JSON.
type Record map[string]any

// ID returns the raw id value, or nil when the record has none.
func (r Record) ID() any {
	if r == nil {
		return nil
	}
	return r["id"]
}

// IDKey returns the canonical string form of the record id.
func (r Record) IDKey() string {
	return IDKey(r.ID())
}

// SameID reports whether both records carry the same non-empty id.
func (r Record) SameID(other Record) bool {
	a := r.IDKey()
	return a != "" && a == other.IDKey()
}

// Has reports whether field is present.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field rendered as text. Missing and nil fields render as "".
func (r Record) String(field string) string {
	return Stringify(r[field])
}

// Number returns the field as a float64 if it holds a number or a numeric string.
func (r Record) Number(field string) (float64, bool) {
	return Numeric(r[field])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IDKey canonicalizes an id so that values decoded from JSON (float64) and ids
// supplied by Go callers (int, string) compare equal.
func IDKey(id any) string {
	if id == nil {
		return ""
	}
	return Stringify(id)
}

// Stringify renders a scalar field the way it would appear in JSON text, without
// quotes. Whole floats render without a fractional part.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Numeric extracts a float64 from any numeric value. Strings are parsed.
func Numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IsBlank reports whether a form value is empty: nil or a whitespace-only string.
// Numbers are never blank.
func IsBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// As converts a record into a typed overlay.
// It handles JSON re-marshaling into the target type automatically.
func As[T any](r Record) (T, error) {
	var target T
	bytes, err := json.Marshal(r)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(bytes, &target)
	return target, err
}

// AsSlice converts every record in recs; it stops at the first failure.
func AsSlice[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := As[T](r)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.IDKey(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// FromStruct converts a typed value back into a Record.
func FromStruct(v any) (Record, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(bytes, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// CloneAll copies a slice of records; each record is shallow-copied.
func CloneAll(recs []Record) []Record {
	if recs == nil {
		return nil
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
