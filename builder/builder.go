package builder

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
	"github.com/carlosnayan/agentdb/types"
)

// TableQueryBuilder provides a Prisma-like query builder for one table
type TableQueryBuilder struct {
	rt    *Runtime
	model *schema.Model
}

// Model returns the schema of the table
func (b *TableQueryBuilder) Model() *schema.Model {
	return b.model
}

func (b *TableQueryBuilder) table() string {
	return b.rt.dialect.QuoteIdentifier(b.model.Name)
}

// FindMany finds multiple records matching the query options
func (b *TableQueryBuilder) FindMany(ctx context.Context, opts QueryOptions) ([]Record, error) {
	return b.findMany(ctx, &opts, errs.OpFindMany, 0)
}

// FindFirst returns the first record matching the options, or nil
func (b *TableQueryBuilder) FindFirst(ctx context.Context, opts QueryOptions) (Record, error) {
	if opts.Take == nil || *opts.Take > 0 {
		opts.Take = Ptr(1)
	} else if *opts.Take < 0 {
		opts.Take = Ptr(-1)
	}
	recs, err := b.findMany(ctx, &opts, errs.OpFindFirst, 0)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// FindFirstOrThrow is FindFirst returning a NotFound error instead of nil
func (b *TableQueryBuilder) FindFirstOrThrow(ctx context.Context, opts QueryOptions) (Record, error) {
	rec, err := b.FindFirst(ctx, opts)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errs.NewNotFoundError(b.model.Name, errs.OpFindFirst)
	}
	return rec, nil
}

// FindUnique returns the record identified by a unique filter, or nil
func (b *TableQueryBuilder) FindUnique(ctx context.Context, opts UniqueOptions) (Record, error) {
	where, err := b.uniqueWhere(opts.Where)
	if err != nil {
		return nil, err
	}
	q := QueryOptions{Where: where, Take: Ptr(1), Select: opts.Select, Include: opts.Include, Count: opts.Count}
	recs, err := b.findMany(ctx, &q, errs.OpFindUnique, 0)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// FindUniqueOrThrow is FindUnique returning a NotFound error instead of nil
func (b *TableQueryBuilder) FindUniqueOrThrow(ctx context.Context, opts UniqueOptions) (Record, error) {
	rec, err := b.FindUnique(ctx, opts)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errs.NewNotFoundError(b.model.Name, errs.OpFindUnique)
	}
	return rec, nil
}

// Count counts records matching the options
func (b *TableQueryBuilder) Count(ctx context.Context, opts CountOptions) (int64, error) {
	st := newStmt(b.rt.dialect)
	sql, err := b.countSQL(st, opts)
	if err != nil {
		return 0, err
	}
	row, err := b.rt.scanOne(ctx, b.model.Name, errs.OpCount, sql, st.args, 1)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return toInt64(row[0])
}

func (b *TableQueryBuilder) countSQL(st *stmt, opts CountOptions) (string, error) {
	if opts.Take != nil && *opts.Take == 0 {
		return "SELECT 0", nil
	}
	c := newCompiler(b.rt, st)
	windowed := opts.Cursor != nil || opts.Skip != nil || opts.Take != nil

	if !windowed {
		where, err := c.where(b.model, b.table(), opts.Where)
		if err != nil {
			return "", err
		}
		sql := "SELECT COUNT(*) FROM " + b.table()
		if where != "" {
			sql += " WHERE " + where
		}
		return sql, nil
	}

	pk := b.model.MustField(b.model.PrimaryKey)
	inner, err := b.windowSQL(c, []schema.Field{pk}, opts.Where, opts.OrderBy, opts.Cursor, opts.Skip, opts.Take)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS %s", inner, b.rt.dialect.QuoteIdentifier("sub")), nil
}

// findMany runs a read at include depth depth
func (b *TableQueryBuilder) findMany(ctx context.Context, opts *QueryOptions, op errs.OperationType, depth int) ([]Record, error) {
	if err := b.checkQuery(opts); err != nil {
		return nil, err
	}
	if opts.Take != nil && *opts.Take == 0 {
		return []Record{}, nil
	}
	fields, err := b.columns(opts.Select, opts.Include, opts.Distinct)
	if err != nil {
		return nil, err
	}

	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)

	var recs []Record
	if len(opts.Distinct) > 0 {
		// distinct runs in memory, so the window is applied afterwards
		sql, err := b.windowSQL(c, fields, opts.Where, opts.OrderBy, opts.Cursor, nil, nil)
		if err != nil {
			return nil, err
		}
		if recs, err = b.rt.fetch(ctx, b.model.Name, op, sql, st.args, fields); err != nil {
			return nil, err
		}
		recs = window(distinct(recs, opts.Distinct), opts.Skip, opts.Take)
	} else {
		sql, err := b.windowSQL(c, fields, opts.Where, opts.OrderBy, opts.Cursor, opts.Skip, opts.Take)
		if err != nil {
			return nil, err
		}
		if recs, err = b.rt.fetch(ctx, b.model.Name, op, sql, st.args, fields); err != nil {
			return nil, err
		}
		if opts.Take != nil && *opts.Take < 0 {
			reverse(recs)
		}
	}

	if err := b.loadRelations(ctx, recs, opts.Include, opts.Count, depth); err != nil {
		return nil, err
	}
	return project(recs, opts.Select, opts.Include, opts.Count), nil
}

// windowSQL renders SELECT fields ... WHERE ... ORDER BY ... LIMIT. A negative
// take reverses the order; the caller reverses the rows back.
func (b *TableQueryBuilder) windowSQL(c *compiler, fields []schema.Field, where Where, orderBy []OrderBy, cursor Where, skip, take *int) (string, error) {
	backwards := take != nil && *take < 0
	order, err := b.order(orderBy, cursor != nil || backwards)
	if err != nil {
		return "", err
	}
	if backwards {
		order = flip(order)
	}

	var sb strings.Builder
	sb.WriteString(b.selectSQL(fields))

	var conds []string
	cond, err := c.where(b.model, b.table(), where)
	if err != nil {
		return "", err
	}
	if cond != "" {
		conds = append(conds, cond)
	}
	if cursor != nil {
		cw, err := b.uniqueWhere(cursor)
		if err != nil {
			return "", err
		}
		cond, err := c.cursor(b.model, b.table(), cw, order)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(c.orderBy(b.model, b.table(), order))
	}

	limit, offset := -1, 0
	if take != nil {
		limit = abs(*take)
	}
	if skip != nil {
		if *skip < 0 {
			return "", invalid("skip", "must not be negative")
		}
		offset = *skip
	}
	if page := b.rt.dialect.GetLimitOffsetSyntax(limit, offset); page != "" {
		sb.WriteString(" ")
		sb.WriteString(page)
	}
	return sb.String(), nil
}

// selectSQL returns the cached "SELECT cols FROM table" prefix
func (b *TableQueryBuilder) selectSQL(fields []schema.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	key := "select:" + b.rt.dialect.Name() + ":" + b.model.Name + ":" + strings.Join(names, ",")
	return b.rt.cache.GetOrBuild(key, func() string {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = b.table() + "." + b.rt.dialect.QuoteIdentifier(name)
		}
		return "SELECT " + strings.Join(cols, ", ") + " FROM " + b.table()
	})
}

// columns returns the fields to read: all of them, or the selection plus the
// keys needed by relations and distinct
func (b *TableQueryBuilder) columns(sel []string, inc Include, distinct []string) ([]schema.Field, error) {
	if len(sel) == 0 {
		return b.model.Fields, nil
	}
	if len(sel) > limits.MaxSelectFields {
		return nil, invalid("select", "more than %d fields", limits.MaxSelectFields)
	}
	if err := checkScalars(b.model, "select", sel); err != nil {
		return nil, err
	}
	need := map[string]bool{b.model.PrimaryKey: true}
	for _, name := range sel {
		need[name] = true
	}
	for _, name := range distinct {
		need[name] = true
	}
	for name := range inc {
		if rel, ok := b.model.Relation(name); ok {
			need[rel.LocalField] = true
		}
	}
	var fields []schema.Field
	for _, f := range b.model.Fields {
		if need[f.Name] {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (b *TableQueryBuilder) checkQuery(opts *QueryOptions) error {
	if opts.Skip != nil && *opts.Skip < 0 {
		return invalid("skip", "must not be negative")
	}
	if err := checkScalars(b.model, "distinct", opts.Distinct); err != nil {
		return err
	}
	for _, name := range opts.Count {
		rel, ok := b.model.Relation(name)
		if !ok || !rel.IsList() {
			return invalid(name, "is not a list relation of %s", b.model.Name)
		}
	}
	for name := range opts.Include {
		if _, ok := b.model.Relation(name); !ok {
			return invalid(name, "is not a relation of %s", b.model.Name)
		}
	}
	return nil
}

// order validates orderBy and appends the primary key as a tie-breaker. With
// no order, ordering is left to the database unless a default is required.
func (b *TableQueryBuilder) order(orderBy []OrderBy, needDefault bool) ([]OrderBy, error) {
	if len(orderBy) > limits.MaxOrderByFields {
		return nil, invalid("orderBy", "more than %d fields", limits.MaxOrderByFields)
	}
	if len(orderBy) == 0 && !needDefault {
		return nil, nil
	}
	out := make([]OrderBy, 0, len(orderBy)+1)
	hasPK := false
	for _, o := range orderBy {
		if o.Aggregate != "" {
			return nil, invalid(o.Field, "aggregate ordering is only valid in GroupBy")
		}
		f, ok := b.model.Field(o.Field)
		if !ok {
			return nil, invalid(o.Field, "unknown field in orderBy of %s", b.model.Name)
		}
		if !f.Kind.IsComparable() {
			return nil, invalid(o.Field, "%s fields cannot be ordered", f.Kind)
		}
		if err := checkDirection(o); err != nil {
			return nil, err
		}
		if f.Name == b.model.PrimaryKey {
			hasPK = true
		}
		out = append(out, o)
	}
	if !hasPK {
		out = append(out, OrderBy{Field: b.model.PrimaryKey, Order: "ASC"})
	}
	return out, nil
}

func checkDirection(o OrderBy) error {
	switch strings.ToLower(o.Order) {
	case "", "asc", "desc":
	default:
		return invalid(o.Field, "invalid order direction %q", o.Order)
	}
	switch strings.ToLower(o.Nulls) {
	case "", "first", "last":
	default:
		return invalid(o.Field, "invalid nulls position %q", o.Nulls)
	}
	return nil
}

func flip(order []OrderBy) []OrderBy {
	out := make([]OrderBy, len(order))
	for i, o := range order {
		if strings.EqualFold(o.Order, "desc") {
			o.Order = "ASC"
		} else {
			o.Order = "DESC"
		}
		switch strings.ToLower(o.Nulls) {
		case "first":
			o.Nulls = "last"
		case "last":
			o.Nulls = "first"
		}
		out[i] = o
	}
	return out
}

func (c *compiler) orderBy(m *schema.Model, qual string, order []OrderBy) string {
	terms := make([]string, len(order))
	for i, o := range order {
		terms[i] = c.d.OrderBy(c.operand(qual, m.MustField(o.Field)), o.Order, o.Nulls)
	}
	return strings.Join(terms, ", ")
}

// cursor renders the rows at or after the cursor record in the given order,
// comparing against the cursor's values read by subqueries. Rows with a NULL
// in an order column never match.
func (c *compiler) cursor(m *schema.Model, qual string, cursor Where, order []OrderBy) (string, error) {
	var terms []string
	for i := 0; i <= len(order); i++ {
		var ands []string
		for j := 0; j < len(order) && j <= i; j++ {
			f := m.MustField(order[j].Field)
			op := "="
			if j == i {
				op = ">"
				if strings.EqualFold(order[j].Order, "desc") {
					op = "<"
				}
			}
			value, err := c.cursorValue(m, f, cursor)
			if err != nil {
				return "", err
			}
			ands = append(ands, fmt.Sprintf("%s %s %s", c.operand(qual, f), op, value))
		}
		terms = append(terms, "("+strings.Join(ands, " AND ")+")")
	}
	return "(" + strings.Join(terms, " OR ") + ")", nil
}

func (c *compiler) cursorValue(m *schema.Model, f schema.Field, cursor Where) (string, error) {
	alias := c.nextAlias()
	cond, err := c.where(m, alias, cursor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(SELECT %s FROM %s AS %s WHERE %s)",
		c.operand(alias, f), c.d.QuoteIdentifier(m.Name), alias, cond), nil
}

// uniqueWhere expands compound unique keys ("agent_id_language_code") and
// checks that the filter pins one record by equality
func (b *TableQueryBuilder) uniqueWhere(w Where) (Where, error) {
	if len(w) == 0 {
		return nil, invalid("where", "a unique filter is required")
	}
	expanded := make(Where, len(w))
	for key, value := range w {
		if set, ok := b.compoundKey(key); ok {
			inner, ok := value.(Where)
			if m, isMap := value.(map[string]any); isMap {
				inner, ok = Where(m), true
			}
			if !ok {
				return nil, invalid(key, "compound unique key expects a Where")
			}
			for _, name := range set {
				v, present := inner[name]
				if !present {
					return nil, invalid(key, "missing %s", name)
				}
				expanded[name] = v
			}
			continue
		}
		expanded[key] = value
	}

	var pinned []string
	for key, value := range expanded {
		if _, ok := b.model.Field(key); !ok {
			continue
		}
		if isEquality(value) {
			pinned = append(pinned, key)
		}
	}
	if _, ok := b.model.UniqueKeyFor(pinned); !ok {
		return nil, invalid("where", "%s needs the primary key or a unique field set by equality", b.model.Name)
	}
	return expanded, nil
}

func (b *TableQueryBuilder) compoundKey(name string) ([]string, bool) {
	for _, set := range b.model.UniqueSets {
		if strings.Join(set, "_") == name {
			return set, true
		}
	}
	return nil, false
}

func isEquality(value any) bool {
	switch v := value.(type) {
	case WhereOperator:
		return v.op == opEquals && v.mode != ModeInsensitive && !isNil(v.value)
	case FieldFilter, []WhereOperator, JSONFilter, types.NullSentinel, Where, map[string]any, RelationFilter:
		return false
	}
	return !isNil(value)
}

// distinct keeps the first record of each combination of the fields
func distinct(recs []Record, fields []string) []Record {
	seen := make(map[string]bool, len(recs))
	out := recs[:0:0]
	for _, rec := range recs {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprintf("%#v", rec[f])
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

// window applies skip and take in memory. A negative take counts from the
// end, after skipping from the end.
func window(recs []Record, skip, take *int) []Record {
	n := len(recs)
	s := 0
	if skip != nil {
		s = min(*skip, n)
	}
	if take == nil {
		return recs[s:]
	}
	if *take < 0 {
		end := n - s
		start := max(end+*take, 0)
		return recs[start:end]
	}
	return recs[s:min(s+*take, n)]
}

func reverse(recs []Record) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}

// project keeps the selected fields, the included relations and _count
func project(recs []Record, sel []string, inc Include, count []string) []Record {
	if len(sel) == 0 {
		return recs
	}
	for i, rec := range recs {
		out := make(Record, len(sel)+len(inc)+1)
		for _, name := range sel {
			out[name] = rec[name]
		}
		for name := range inc {
			out[name] = rec[name]
		}
		if len(count) > 0 {
			out[countKey] = rec[countKey]
		}
		recs[i] = out
	}
	return recs
}

func toInt64(raw any) (int64, error) {
	v, err := mapper.Decode(schema.Field{Name: "count", Kind: schema.BigInt}, raw)
	if err != nil {
		return 0, err
	}
	n, _ := v.(int64)
	return n, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
