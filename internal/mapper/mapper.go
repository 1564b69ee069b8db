// Package mapper converts between driver values and the typed values of the
// schema: decoding what a driver hands back after a scan, encoding Go values
// into statement arguments and filling model structs from records.
package mapper

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/schema"
	"github.com/carlosnayan/agentdb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ScanTarget returns a fresh scan destination for a column of the field.
// Json columns scan as raw bytes so a stored JSON null stays distinct from
// SQL NULL; everything else scans into an interface.
func ScanTarget(field schema.Field) any {
	if field.Kind == schema.JSON {
		return new([]byte)
	}
	return new(any)
}

// Scanned dereferences a destination built by ScanTarget
func Scanned(dest any) any {
	switch v := dest.(type) {
	case *[]byte:
		if *v == nil {
			return nil
		}
		return *v
	case *any:
		return *v
	}
	return dest
}

// Decode converts a raw driver value into the Go type of the field kind.
// NULL decodes to nil, except string lists which decode to an empty list.
func Decode(field schema.Field, raw any) (any, error) {
	if valuer, ok := raw.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.Name, err)
		}
		raw = v
	}

	if raw == nil {
		if field.Kind == schema.StringList {
			return []string{}, nil
		}
		return nil, nil
	}

	var (
		v   any
		err error
	)
	switch field.Kind {
	case schema.Int, schema.BigInt:
		v, err = cast.ToInt64E(textOf(raw))
	case schema.Float:
		v, err = cast.ToFloat64E(textOf(raw))
	case schema.Boolean:
		v, err = cast.ToBoolE(textOf(raw))
	case schema.String:
		v, err = cast.ToStringE(textOf(raw))
	case schema.Decimal:
		v, err = decodeDecimal(raw)
	case schema.DateTime:
		v, err = decodeTime(raw)
	case schema.UUID:
		v, err = decodeUUID(raw)
	case schema.JSON:
		v, err = decodeJSON(raw)
	case schema.StringList:
		v, err = decodeList(raw)
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s (%s) from %T: %w", field.Name, field.Kind, raw, err)
	}
	return v, nil
}

func textOf(raw any) any {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw
}

func decodeDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported decimal value")
}

var supportedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the textual timestamps produced by MySQL and SQLite
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range supportedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time value %q", value)
}

func decodeTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case []byte:
		return ParseTime(string(v))
	case string:
		return ParseTime(v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported time value")
}

func decodeUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.Nil, fmt.Errorf("unsupported uuid value")
}

func decodeJSON(raw any) (types.JSON, error) {
	switch v := raw.(type) {
	case types.JSON:
		return v, nil
	case []byte:
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid JSON document")
		}
		return types.JSON(append([]byte(nil), v...)), nil
	case string:
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("invalid JSON document")
		}
		return types.JSON(v), nil
	}
	// already decoded by the driver
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return types.JSON(data), nil
}

func decodeList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := cast.ToStringE(textOf(item))
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []byte:
		return parseListText(string(v))
	case string:
		return parseListText(v)
	}
	return nil, fmt.Errorf("unsupported list value")
}

// parseListText accepts a JSON array or a PostgreSQL array literal
func parseListText(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return parsePgArray(s[1 : len(s)-1])
	}
	return nil, fmt.Errorf("unrecognized list literal %q", s)
}

func parsePgArray(body string) ([]string, error) {
	out := []string{}
	if body == "" {
		return out, nil
	}
	var (
		b       strings.Builder
		quoted  bool
		escaped bool
		wasQuot bool
	)
	flush := func() {
		item := b.String()
		if !wasQuot && item == "NULL" {
			item = ""
		}
		out = append(out, item)
		b.Reset()
		wasQuot = false
	}
	for _, r := range body {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			wasQuot = true
		case r == ',' && !quoted:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quoted element")
	}
	flush()
	return out, nil
}

// Encode converts a Go value into a statement argument for a column of the
// field. Pointers are dereferenced; nil and types.DbNull encode to NULL.
func Encode(d dialect.Dialect, field schema.Field, v any) (any, error) {
	v = deref(v)
	if v == nil {
		return nil, nil
	}
	if sentinel, ok := v.(types.NullSentinel); ok {
		return encodeSentinel(field, sentinel)
	}

	switch field.Kind {
	case schema.Int, schema.BigInt:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fieldError(field, v, err)
		}
		return n, nil
	case schema.Float:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fieldError(field, v, err)
		}
		return f, nil
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fieldError(field, v, fmt.Errorf("expected bool"))
		}
		return b, nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, fieldError(field, v, fmt.Errorf("expected string"))
		}
		return s, nil
	case schema.Decimal:
		dec, err := ToDecimal(v)
		if err != nil {
			return nil, fieldError(field, v, err)
		}
		return dec.String(), nil
	case schema.DateTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := ParseTime(t)
			if err != nil {
				return nil, fieldError(field, v, err)
			}
			return parsed, nil
		}
		return nil, fieldError(field, v, fmt.Errorf("expected time.Time"))
	case schema.UUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fieldError(field, v, err)
			}
			return parsed.String(), nil
		}
		return nil, fieldError(field, v, fmt.Errorf("expected uuid.UUID"))
	case schema.JSON:
		if raw, ok := v.(types.JSON); ok && raw.IsDBNull() {
			return nil, nil
		}
		doc, err := EncodeJSON(v)
		if err != nil {
			return nil, fieldError(field, v, err)
		}
		return doc, nil
	case schema.StringList:
		list, ok := v.([]string)
		if !ok {
			return nil, fieldError(field, v, fmt.Errorf("expected []string"))
		}
		return d.EncodeArray(list)
	}
	return v, nil
}

func encodeSentinel(field schema.Field, sentinel types.NullSentinel) (any, error) {
	if field.Kind != schema.JSON {
		return nil, fmt.Errorf("%s: %s only applies to Json fields", field.Name, sentinel)
	}
	switch sentinel {
	case types.DbNull:
		return nil, nil
	case types.JsonNull:
		return "null", nil
	}
	return nil, fmt.Errorf("%s: %s cannot be written", field.Name, sentinel)
}

// EncodeJSON renders a value as the text of a JSON document. types.JSON and
// json.RawMessage are taken as already encoded.
func EncodeJSON(v any) (string, error) {
	switch doc := v.(type) {
	case types.JSON:
		if doc == nil {
			return "null", nil
		}
		if !json.Valid(doc) {
			return "", fmt.Errorf("invalid JSON document")
		}
		return string(doc), nil
	case json.RawMessage:
		if !json.Valid(doc) {
			return "", fmt.Errorf("invalid JSON document")
		}
		return string(doc), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToDecimal accepts decimals, numeric strings and Go numbers
func ToDecimal(v any) (decimal.Decimal, error) {
	switch n := deref(v).(type) {
	case decimal.Decimal:
		return n, nil
	case decimal.NullDecimal:
		if !n.Valid {
			return decimal.Decimal{}, fmt.Errorf("null decimal")
		}
		return n.Decimal, nil
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unsupported decimal value %T", v)
	}
	return decimal.NewFromInt(i), nil
}

// ToFloat converts a decoded numeric value to float64
func ToFloat(v any) (float64, error) {
	if dec, ok := v.(decimal.Decimal); ok {
		f, _ := dec.Float64()
		return f, nil
	}
	if b, ok := v.([]byte); ok {
		return strconv.ParseFloat(string(b), 64)
	}
	return cast.ToFloat64E(v)
}

func fieldError(field schema.Field, v any, err error) error {
	return fmt.Errorf("invalid value %T for %s (%s): %w", v, field.Name, field.Kind, err)
}
