// Package types holds the value types shared by the client, the builder and
// the generated-style models.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NullSentinel selects how null is written to or matched against a Json column
type NullSentinel int

const (
	// DbNull is the SQL NULL of the column
	DbNull NullSentinel = iota + 1
	// JsonNull is the JSON document `null`
	JsonNull
	// AnyNull matches either (filters only)
	AnyNull
)

func (n NullSentinel) String() string {
	switch n {
	case DbNull:
		return "DbNull"
	case JsonNull:
		return "JsonNull"
	case AnyNull:
		return "AnyNull"
	}
	return fmt.Sprintf("NullSentinel(%d)", int(n))
}

var jsonNull = []byte("null")

// JSON is the content of a Json column. A nil JSON is SQL NULL; the literal
// `null` is a JSON null stored in the column. The two stay distinct through
// reads and writes.
type JSON []byte

// NewJSON marshals v into a JSON value
func NewJSON(v any) (JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSON(data), nil
}

// MustJSON is NewJSON that panics on marshal errors
func MustJSON(v any) JSON {
	j, err := NewJSON(v)
	if err != nil {
		panic(err)
	}
	return j
}

// IsDBNull reports whether the column is SQL NULL
func (j JSON) IsDBNull() bool {
	return j == nil
}

// IsJSONNull reports whether the column holds the JSON null document
func (j JSON) IsJSONNull() bool {
	return bytes.Equal(bytes.TrimSpace(j), jsonNull)
}

// Decode unmarshals the document into v
func (j JSON) Decode(v any) error {
	if j == nil {
		return fmt.Errorf("json: column is NULL")
	}
	return json.Unmarshal(j, v)
}

// Value decodes the document into generic Go values
func (j JSON) Value() (any, error) {
	if j == nil {
		return nil, nil
	}
	var v any
	err := json.Unmarshal(j, &v)
	return v, err
}

// Equal compares two documents semantically
func (j JSON) Equal(other JSON) bool {
	if j == nil || other == nil {
		return j == nil && other == nil
	}
	a, errA := j.Value()
	b, errB := other.Value()
	if errA != nil || errB != nil {
		return bytes.Equal(j, other)
	}
	ca, _ := json.Marshal(a)
	cb, _ := json.Marshal(b)
	return bytes.Equal(ca, cb)
}

// String returns the document text, empty for SQL NULL
func (j JSON) String() string {
	return string(j)
}

// MarshalJSON embeds the document as is; SQL NULL becomes null
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return jsonNull, nil
	}
	return j, nil
}

// UnmarshalJSON keeps a copy of the raw document
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("types.JSON: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}
