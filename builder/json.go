package builder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
	"github.com/carlosnayan/agentdb/types"
)

// jsonFilter compiles a JSONFilter; its members are combined with AND
func (c *compiler) jsonFilter(qual string, f schema.Field, jf JSONFilter) (string, error) {
	for _, key := range jf.Path {
		if err := validateJSONKey(key); err != nil {
			return "", invalid(f.Name, "invalid JSON path: %v", err)
		}
	}
	col := c.column(qual, f.Name)
	insensitive := jf.Mode == ModeInsensitive
	var parts []string

	if jf.Equals != nil {
		if sentinel, ok := jf.Equals.(types.NullSentinel); ok {
			parts = append(parts, c.jsonNull(col, jf.Path, sentinel))
		} else {
			doc, err := mapper.EncodeJSON(jf.Equals)
			if err != nil {
				return "", invalid(f.Name, "%v", err)
			}
			value := c.d.JSONValue(col, jf.Path, c.st.bind)
			parts = append(parts, value+" = "+c.d.JSONLiteral(c.st.bind(doc)))
		}
	}

	for _, m := range []struct {
		op    string
		value string
	}{
		{opContains, jf.StringContains},
		{opStartsWith, jf.StringStartsWith},
		{opEndsWith, jf.StringEndsWith},
	} {
		if m.value == "" {
			continue
		}
		text := c.d.JSONText(col, jf.Path, c.st.bind)
		parts = append(parts, c.d.Like(text, c.st.bind(likePattern(m.op, m.value)), insensitive))
	}

	if jf.ArrayContains != nil {
		doc, err := mapper.EncodeJSON(asJSONArray(jf.ArrayContains))
		if err != nil {
			return "", invalid(f.Name, "%v", err)
		}
		value := c.d.JSONValue(col, jf.Path, c.st.bind)
		parts = append(parts, c.d.JSONArrayContains(value, c.st.bind(doc)))
	}

	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, " AND "), nil
}

// jsonNull matches database NULL, JSON null or either. With a path, DbNull
// also matches documents where the path is missing.
func (c *compiler) jsonNull(col string, path []string, sentinel types.NullSentinel) string {
	switch sentinel {
	case types.DbNull:
		if len(path) == 0 {
			return col + " IS NULL"
		}
		return c.d.JSONValue(col, path, c.st.bind) + " IS NULL"
	case types.JsonNull:
		return c.d.JSONIsNull(c.d.JSONValue(col, path, c.st.bind))
	default:
		if len(path) == 0 {
			return fmt.Sprintf("(%s IS NULL OR %s)", col, c.d.JSONIsNull(c.d.JSONValue(col, nil, c.st.bind)))
		}
		isNull := c.d.JSONValue(col, path, c.st.bind) + " IS NULL"
		return fmt.Sprintf("(%s OR %s)", isNull, c.d.JSONIsNull(c.d.JSONValue(col, path, c.st.bind)))
	}
}

// asJSONArray wraps a single value so ArrayContains always compares arrays
func asJSONArray(v any) any {
	switch v.(type) {
	case types.JSON, []byte:
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return v
	}
	return []any{v}
}

// validateJSONKey rejects path segments that could break out of a JSON path
func validateJSONKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if len(key) > 255 {
		return fmt.Errorf("key too long")
	}
	if strings.ContainsAny(key, "'\\\x00") {
		return fmt.Errorf("key %q contains forbidden characters", key)
	}
	return nil
}
