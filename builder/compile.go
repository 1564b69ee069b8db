package builder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
	"github.com/carlosnayan/agentdb/types"
)

// compiler turns filter trees into SQL predicates bound to one statement.
// Subqueries get the aliases r1, r2... so nested filters never collide.
type compiler struct {
	d        dialect.Dialect
	registry *schema.Registry
	st       *stmt
	aliases  int
	conds    int
}

func newCompiler(r *Runtime, st *stmt) *compiler {
	return &compiler{d: r.dialect, registry: r.registry, st: st}
}

func (c *compiler) nextAlias() string {
	c.aliases++
	return c.d.QuoteIdentifier(fmt.Sprintf("r%d", c.aliases))
}

func (c *compiler) column(qual, name string) string {
	return qual + "." + c.d.QuoteIdentifier(name)
}

// operand is the column expression used in comparisons and ordering
func (c *compiler) operand(qual string, f schema.Field) string {
	col := c.column(qual, f.Name)
	if f.Kind == schema.Decimal {
		return c.d.CastDecimal(col)
	}
	return col
}

func (c *compiler) count() error {
	c.conds++
	if c.conds > limits.MaxQueryConditions {
		return invalid("", "filter has more than %d conditions", limits.MaxQueryConditions)
	}
	return nil
}

// where compiles w against model m whose columns are qualified with qual.
// An empty filter compiles to "".
func (c *compiler) where(m *schema.Model, qual string, w Where) (string, error) {
	var parts []string
	for _, key := range sortedKeys(w) {
		value := w[key]
		var (
			sql string
			err error
		)
		switch key {
		case AND:
			sql, err = c.combine(m, qual, value, " AND ")
		case OR:
			sql, err = c.combine(m, qual, value, " OR ")
		case NOT:
			sql, err = c.not(m, qual, value)
		default:
			if f, ok := m.Field(key); ok {
				sql, err = c.field(qual, f, value)
			} else if rel, ok := m.Relation(key); ok {
				sql, err = c.relation(qual, rel, value)
			} else {
				err = invalid(key, "unknown field or relation on %s", m.Name)
			}
		}
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, sql)
		}
	}
	return strings.Join(parts, " AND "), nil
}

func toWhereList(key string, value any) ([]Where, error) {
	switch v := value.(type) {
	case Where:
		return []Where{v}, nil
	case map[string]any:
		return []Where{Where(v)}, nil
	case []Where:
		return v, nil
	case []map[string]any:
		out := make([]Where, len(v))
		for i, w := range v {
			out[i] = Where(w)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, invalid(key, "expects a Where or []Where, got %T", value)
}

// combine joins sub-filters. An empty OR list matches nothing, an empty
// sub-filter matches everything.
func (c *compiler) combine(m *schema.Model, qual string, value any, sep string) (string, error) {
	key := strings.TrimSpace(sep)
	list, err := toWhereList(key, value)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		if key == OR {
			return "1=0", nil
		}
		return "", nil
	}
	var parts []string
	for _, w := range list {
		sql, err := c.where(m, qual, w)
		if err != nil {
			return "", err
		}
		if sql == "" {
			if key == OR {
				return "1=1", nil
			}
			continue
		}
		parts = append(parts, "("+sql+")")
	}
	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// not negates each sub-filter and requires all of the negations
func (c *compiler) not(m *schema.Model, qual string, value any) (string, error) {
	list, err := toWhereList(NOT, value)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, w := range list {
		sql, err := c.where(m, qual, w)
		if err != nil {
			return "", err
		}
		if sql == "" {
			return "1=0", nil
		}
		parts = append(parts, "NOT ("+sql+")")
	}
	return strings.Join(parts, " AND "), nil
}

// field compiles the filter of one scalar field
func (c *compiler) field(qual string, f schema.Field, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		if err := c.count(); err != nil {
			return "", err
		}
		return c.column(qual, f.Name) + " IS NULL", nil
	case WhereOperator:
		if err := c.count(); err != nil {
			return "", err
		}
		return c.operator(qual, f, v)
	case FieldFilter:
		var parts []string
		for _, op := range v {
			if err := c.count(); err != nil {
				return "", err
			}
			sql, err := c.operator(qual, f, op)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return strings.Join(parts, " AND "), nil
	case []WhereOperator:
		return c.field(qual, f, FieldFilter(v))
	case JSONFilter:
		if f.Kind != schema.JSON {
			return "", invalid(f.Name, "JSON filters apply to Json fields only")
		}
		if err := c.count(); err != nil {
			return "", err
		}
		return c.jsonFilter(qual, f, v)
	case types.NullSentinel:
		if f.Kind != schema.JSON {
			return "", invalid(f.Name, "%s applies to Json fields only", v)
		}
		if err := c.count(); err != nil {
			return "", err
		}
		return c.jsonNull(c.column(qual, f.Name), nil, v), nil
	case Where, map[string]any, RelationFilter:
		return "", invalid(f.Name, "is a scalar field, not a relation")
	}
	if err := c.count(); err != nil {
		return "", err
	}
	return c.operator(qual, f, Equals(value))
}

// operator compiles one comparison on a scalar field
func (c *compiler) operator(qual string, f schema.Field, op WhereOperator) (string, error) {
	col := c.column(qual, f.Name)
	insensitive := op.mode == ModeInsensitive

	switch op.op {
	case opIsNull:
		return col + " IS NULL", nil
	case opIsNotNull:
		return col + " IS NOT NULL", nil

	case opEquals, opNotEquals, opGt, opGte, opLt, opLte:
		if isNil(op.value) {
			switch op.op {
			case opEquals:
				return col + " IS NULL", nil
			case opNotEquals:
				return col + " IS NOT NULL", nil
			}
			return "", invalid(f.Name, "cannot compare with null using %s", op.op)
		}
		return c.compare(qual, f, op.op, op.value, insensitive)

	case opIn, opNotIn:
		values, ok := op.value.([]any)
		if !ok {
			return "", invalid(f.Name, "%s expects a list", op.op)
		}
		return c.in(qual, f, op.op == opNotIn, flatten(values), insensitive)

	case opLike, opContains, opStartsWith, opEndsWith:
		if f.Kind != schema.String {
			return "", invalid(f.Name, "pattern filters apply to String fields only")
		}
		s, ok := op.value.(string)
		if !ok {
			return "", invalid(f.Name, "pattern must be a string")
		}
		return c.d.Like(col, c.st.bind(likePattern(op.op, s)), insensitive), nil

	case opSearch:
		if f.Kind != schema.String {
			return "", invalid(f.Name, "search applies to String fields only")
		}
		s, _ := op.value.(string)
		return c.search(col, s), nil

	case opHas, opHasEvery, opHasSome:
		if f.Kind != schema.StringList {
			return "", invalid(f.Name, "list filters apply to String[] fields only")
		}
		var values []string
		arrayOp := dialect.ArrayHas
		switch v := op.value.(type) {
		case string:
			values = []string{v}
		case []string:
			values = v
		}
		switch op.op {
		case opHasEvery:
			arrayOp = dialect.ArrayHasEvery
		case opHasSome:
			arrayOp = dialect.ArrayHasSome
			if len(values) == 0 {
				return "1=0", nil
			}
		}
		sql, err := c.d.ArrayPredicate(arrayOp, col, values, c.st.bind)
		if err != nil {
			return "", invalid(f.Name, "%v", err)
		}
		return sql, nil

	case opIsEmpty:
		if f.Kind != schema.StringList {
			return "", invalid(f.Name, "isEmpty applies to String[] fields only")
		}
		return c.d.ArrayLength(col) + " = 0", nil
	}
	return "", invalid(f.Name, "unsupported operator %q", op.op)
}

// compare renders "col op value" with the value encoded for the field kind
func (c *compiler) compare(qual string, f schema.Field, op string, value any, insensitive bool) (string, error) {
	col := c.column(qual, f.Name)

	switch f.Kind {
	case schema.StringList:
		if op != opEquals && op != opNotEquals {
			return "", invalid(f.Name, "String[] fields only support equality")
		}
		values, ok := value.([]string)
		if !ok {
			return "", invalid(f.Name, "expects []string, got %T", value)
		}
		sql, err := c.d.ArrayPredicate(dialect.ArrayEquals, col, values, c.st.bind)
		if err != nil {
			return "", invalid(f.Name, "%v", err)
		}
		if op == opNotEquals {
			return "NOT (" + sql + ")", nil
		}
		return sql, nil
	case schema.JSON:
		if op != opEquals && op != opNotEquals {
			return "", invalid(f.Name, "Json fields only support equality")
		}
		if sentinel, ok := value.(types.NullSentinel); ok {
			sql := c.jsonNull(col, nil, sentinel)
			if op == opNotEquals {
				return "NOT (" + sql + ")", nil
			}
			return sql, nil
		}
		doc, err := mapper.EncodeJSON(value)
		if err != nil {
			return "", invalid(f.Name, "%v", err)
		}
		sql := c.d.JSONValue(col, nil, c.st.bind) + " = " + c.d.JSONLiteral(c.st.bind(doc))
		if op == opNotEquals {
			return "NOT (" + sql + ")", nil
		}
		return sql, nil
	}

	if !f.Kind.IsComparable() && op != opEquals && op != opNotEquals {
		return "", invalid(f.Name, "%s fields cannot be ordered", f.Kind)
	}
	arg, err := mapper.Encode(c.d, f, value)
	if err != nil {
		return "", invalid(f.Name, "%v", err)
	}
	if arg == nil {
		return c.operator(qual, f, WhereOperator{op: op})
	}
	left := c.operand(qual, f)
	right := c.st.bind(arg)
	if insensitive && f.Kind == schema.String {
		left, right = "LOWER("+left+")", "LOWER("+right+")"
	}
	if op == opNotEquals {
		op = "<>"
	}
	return fmt.Sprintf("%s %s %s", left, op, right), nil
}

// in renders IN / NOT IN. An empty IN matches nothing and an empty NOT IN
// matches everything.
func (c *compiler) in(qual string, f schema.Field, negate bool, values []any, insensitive bool) (string, error) {
	if len(values) == 0 {
		if negate {
			return "1=1", nil
		}
		return "1=0", nil
	}
	if !f.Kind.IsComparable() {
		return "", invalid(f.Name, "IN does not apply to %s fields", f.Kind)
	}
	insensitive = insensitive && f.Kind == schema.String

	left := c.operand(qual, f)
	if insensitive {
		left = "LOWER(" + left + ")"
	}
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		arg, err := mapper.Encode(c.d, f, v)
		if err != nil {
			return "", invalid(f.Name, "%v", err)
		}
		ph := c.st.bind(arg)
		if insensitive {
			ph = "LOWER(" + ph + ")"
		}
		placeholders = append(placeholders, ph)
	}
	keyword := "IN"
	if negate {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", left, keyword, strings.Join(placeholders, ", ")), nil
}

// relation compiles a relation filter into a correlated EXISTS subquery
func (c *compiler) relation(qual string, rel schema.Relation, value any) (string, error) {
	var rf RelationFilter
	switch v := value.(type) {
	case RelationFilter:
		rf = v
	case nil:
		rf = Is(nil)
	case Where:
		rf = Is(v)
	case map[string]any:
		rf = Is(Where(v))
	default:
		return "", invalid(rel.Name, "expects a relation filter, got %T", value)
	}

	switch rf.op {
	case relSome, relEvery, relNone:
		if !rel.IsList() {
			return "", invalid(rel.Name, "%s applies to list relations, use Is or IsNot", rf.op)
		}
	case relIs, relIsNot:
		if rel.IsList() {
			return "", invalid(rel.Name, "%s applies to single relations, use Some, Every or None", rf.op)
		}
		if rf.where == nil {
			if err := c.count(); err != nil {
				return "", err
			}
			if rf.op == relIs {
				return c.column(qual, rel.LocalField) + " IS NULL", nil
			}
			return c.column(qual, rel.LocalField) + " IS NOT NULL", nil
		}
	default:
		return "", invalid(rel.Name, "unsupported relation filter %q", rf.op)
	}

	target, ok := c.registry.Model(rel.Target)
	if !ok {
		return "", invalid(rel.Name, "unknown relation target %q", rel.Target)
	}
	if err := c.count(); err != nil {
		return "", err
	}

	alias := c.nextAlias()
	sub := fmt.Sprintf("SELECT 1 FROM %s AS %s WHERE %s = %s",
		c.d.QuoteIdentifier(target.Name), alias,
		c.column(alias, rel.ForeignField), c.column(qual, rel.LocalField))

	cond, err := c.where(target, alias, rf.where)
	if err != nil {
		return "", err
	}

	switch rf.op {
	case relEvery:
		if cond == "" {
			return "1=1", nil
		}
		return fmt.Sprintf("NOT EXISTS (%s AND NOT (%s))", sub, cond), nil
	case relNone, relIsNot:
		if cond != "" {
			sub += " AND (" + cond + ")"
		}
		return fmt.Sprintf("NOT EXISTS (%s)", sub), nil
	default:
		if cond != "" {
			sub += " AND (" + cond + ")"
		}
		return fmt.Sprintf("EXISTS (%s)", sub), nil
	}
}

func likePattern(op, s string) string {
	switch op {
	case opContains:
		return "%" + dialect.EscapeLike(s) + "%"
	case opStartsWith:
		return dialect.EscapeLike(s) + "%"
	case opEndsWith:
		return "%" + dialect.EscapeLike(s)
	}
	return s
}

// flatten expands In(slice) into In(elements...)
func flatten(values []any) []any {
	if len(values) != 1 {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
