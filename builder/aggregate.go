package builder

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
)

const (
	aggCount = "_count"
	aggAvg   = "_avg"
	aggSum   = "_sum"
	aggMin   = "_min"
	aggMax   = "_max"

	// allRows is the _count target of COUNT(*)
	allRows = "_all"
)

// aggTerm is one aggregate of one field
type aggTerm struct {
	fn    string
	field string
}

// Aggregate computes counts, averages, sums, minimums and maximums over the
// records matching the filter. Cursor, Skip and Take restrict the set first.
func (b *TableQueryBuilder) Aggregate(ctx context.Context, opts AggregateOptions) (AggregateResult, error) {
	terms, err := b.aggTerms(opts.Count, opts.Avg, opts.Sum, opts.Min, opts.Max)
	if err != nil {
		return AggregateResult{}, err
	}
	if len(terms) == 0 {
		return AggregateResult{}, invalid("", "aggregate needs at least one of _count, _avg, _sum, _min, _max")
	}
	if opts.Skip != nil && *opts.Skip < 0 {
		return AggregateResult{}, invalid("skip", "must not be negative")
	}

	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)
	qual := b.table()
	var from string

	if opts.Cursor != nil || opts.Skip != nil || opts.Take != nil {
		fields := b.termFields(terms)
		inner, err := b.windowSQL(c, fields, opts.Where, opts.OrderBy, opts.Cursor, opts.Skip, opts.Take)
		if err != nil {
			return AggregateResult{}, err
		}
		qual = b.rt.dialect.QuoteIdentifier("sub")
		from = fmt.Sprintf(" FROM (%s) AS %s", inner, qual)
	} else {
		if _, err := b.order(opts.OrderBy, false); err != nil {
			return AggregateResult{}, err
		}
		cond, err := c.where(b.model, b.table(), opts.Where)
		if err != nil {
			return AggregateResult{}, err
		}
		from = " FROM " + b.table()
		if cond != "" {
			from += " WHERE " + cond
		}
	}

	exprs := make([]string, len(terms))
	for i, t := range terms {
		exprs[i] = b.aggExpr(c, qual, t)
	}
	sql := "SELECT " + strings.Join(exprs, ", ") + from

	row, err := b.rt.scanOne(ctx, b.model.Name, errs.OpAggregate, sql, st.args, len(terms))
	if err != nil {
		return AggregateResult{}, err
	}
	res := newAggregateResult(terms)
	if row == nil {
		return res, nil
	}
	if err := b.fillAggregates(&res, terms, row); err != nil {
		return AggregateResult{}, err
	}
	return res, nil
}

// GroupBy groups the records matching the filter by the By fields and
// computes the requested aggregates per group
func (b *TableQueryBuilder) GroupBy(ctx context.Context, opts GroupByOptions) ([]GroupByResult, error) {
	if err := b.checkGroupBy(opts); err != nil {
		return nil, err
	}
	terms, err := b.aggTerms(opts.Count, opts.Avg, opts.Sum, opts.Min, opts.Max)
	if err != nil {
		return nil, err
	}
	if opts.Take != nil && *opts.Take == 0 {
		return []GroupByResult{}, nil
	}

	d := b.rt.dialect
	st := newStmt(d)
	c := newCompiler(b.rt, st)
	qual := b.table()

	byCols := make([]string, len(opts.By))
	for i, name := range opts.By {
		byCols[i] = c.column(qual, name)
	}
	cols := append([]string{}, byCols...)
	for _, t := range terms {
		cols = append(cols, b.aggExpr(c, qual, t))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(cols, ", ") + " FROM " + qual)
	cond, err := c.where(b.model, qual, opts.Where)
	if err != nil {
		return nil, err
	}
	if cond != "" {
		sb.WriteString(" WHERE " + cond)
	}
	sb.WriteString(" GROUP BY " + strings.Join(byCols, ", "))

	having, err := b.having(c, qual, opts.By, opts.Having)
	if err != nil {
		return nil, err
	}
	if having != "" {
		sb.WriteString(" HAVING " + having)
	}

	if len(opts.OrderBy) > 0 {
		order := make([]string, len(opts.OrderBy))
		for i, o := range opts.OrderBy {
			var expr string
			if o.Aggregate != "" {
				t, _ := b.aggTerm(o.Aggregate, o.Field)
				expr = b.aggExpr(c, qual, t)
			} else {
				expr = c.operand(qual, b.model.MustField(o.Field))
			}
			order[i] = d.OrderBy(expr, o.Order, o.Nulls)
		}
		sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}

	limit, offset := -1, 0
	if opts.Take != nil {
		limit = *opts.Take
	}
	if opts.Skip != nil {
		offset = *opts.Skip
	}
	if page := d.GetLimitOffsetSyntax(limit, offset); page != "" {
		sb.WriteString(" " + page)
	}

	rows, err := b.rt.scanAll(ctx, b.model.Name, errs.OpGroupBy, sb.String(), st.args, len(cols))
	if err != nil {
		return nil, err
	}

	out := make([]GroupByResult, 0, len(rows))
	for _, row := range rows {
		g := GroupByResult{Fields: make(Record, len(opts.By)), AggregateResult: newAggregateResult(terms)}
		for i, name := range opts.By {
			v, err := mapper.Decode(b.model.MustField(name), row[i])
			if err != nil {
				return nil, err
			}
			g.Fields[name] = v
		}
		if err := b.fillAggregates(&g.AggregateResult, terms, row[len(opts.By):]); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (b *TableQueryBuilder) checkGroupBy(opts GroupByOptions) error {
	if len(opts.By) == 0 {
		return invalid("by", "groupBy needs at least one field")
	}
	if err := checkScalars(b.model, "by", opts.By); err != nil {
		return err
	}
	grouped := make(map[string]bool, len(opts.By))
	for _, name := range opts.By {
		if b.model.MustField(name).Kind == schema.StringList {
			return invalid(name, "String[] fields cannot be grouped")
		}
		grouped[name] = true
	}
	if (opts.Skip != nil || opts.Take != nil) && len(opts.OrderBy) == 0 {
		return invalid("orderBy", "skip and take need an orderBy in groupBy")
	}
	if opts.Skip != nil && *opts.Skip < 0 {
		return invalid("skip", "must not be negative")
	}
	if opts.Take != nil && *opts.Take < 0 {
		return invalid("take", "must not be negative in groupBy")
	}
	for _, o := range opts.OrderBy {
		if err := checkDirection(o); err != nil {
			return err
		}
		if o.Aggregate == "" {
			if !grouped[o.Field] {
				return invalid(o.Field, "orderBy field must be part of by")
			}
			continue
		}
		if _, err := b.aggTerm(o.Aggregate, o.Field); err != nil {
			return err
		}
	}
	return nil
}

// aggTerms validates the requested aggregates and returns them in a fixed order
func (b *TableQueryBuilder) aggTerms(count, avg, sum, minimum, maximum []string) ([]aggTerm, error) {
	var terms []aggTerm
	for _, group := range []struct {
		fn     string
		fields []string
	}{
		{aggCount, count},
		{aggAvg, avg},
		{aggSum, sum},
		{aggMin, minimum},
		{aggMax, maximum},
	} {
		for _, name := range group.fields {
			t, err := b.aggTerm(group.fn, name)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
	}
	return terms, nil
}

func (b *TableQueryBuilder) aggTerm(fn, name string) (aggTerm, error) {
	if fn == aggCount && (name == allRows || name == "") {
		return aggTerm{fn: fn, field: allRows}, nil
	}
	f, ok := b.model.Field(name)
	if !ok {
		return aggTerm{}, invalid(name, "unknown field in %s of %s", fn, b.model.Name)
	}
	switch fn {
	case aggCount:
	case aggAvg, aggSum:
		if !f.Kind.IsNumeric() {
			return aggTerm{}, invalid(name, "%s applies to numeric fields only", fn)
		}
	case aggMin, aggMax:
		if f.Kind == schema.JSON || f.Kind == schema.StringList {
			return aggTerm{}, invalid(name, "%s does not apply to %s fields", fn, f.Kind)
		}
	default:
		return aggTerm{}, invalid(name, "unknown aggregate %q", fn)
	}
	return aggTerm{fn: fn, field: name}, nil
}

// termFields returns the columns a windowed aggregate reads
func (b *TableQueryBuilder) termFields(terms []aggTerm) []schema.Field {
	need := map[string]bool{b.model.PrimaryKey: true}
	for _, t := range terms {
		need[t.field] = true
	}
	var fields []schema.Field
	for _, f := range b.model.Fields {
		if need[f.Name] {
			fields = append(fields, f)
		}
	}
	return fields
}

func (b *TableQueryBuilder) aggExpr(c *compiler, qual string, t aggTerm) string {
	if t.field == allRows {
		return "COUNT(*)"
	}
	f := b.model.MustField(t.field)
	switch t.fn {
	case aggCount:
		return "COUNT(" + c.column(qual, f.Name) + ")"
	case aggAvg:
		return "AVG(" + c.operand(qual, f) + ")"
	case aggSum:
		return "SUM(" + c.operand(qual, f) + ")"
	}

	fn := strings.ToUpper(strings.TrimPrefix(t.fn, "_"))
	col := c.operand(qual, f)
	if c.d.Name() == "postgresql" {
		switch f.Kind {
		case schema.Boolean:
			if t.fn == aggMin {
				return "BOOL_AND(" + col + ")"
			}
			return "BOOL_OR(" + col + ")"
		case schema.UUID:
			col = "CAST(" + col + " AS TEXT)"
		}
	}
	return fn + "(" + col + ")"
}

func newAggregateResult(terms []aggTerm) AggregateResult {
	var res AggregateResult
	for _, t := range terms {
		switch t.fn {
		case aggCount:
			if res.Count == nil {
				res.Count = map[string]int64{}
			}
		case aggAvg:
			if res.Avg == nil {
				res.Avg = map[string]any{}
			}
		case aggSum:
			if res.Sum == nil {
				res.Sum = map[string]any{}
			}
		case aggMin:
			if res.Min == nil {
				res.Min = map[string]any{}
			}
		case aggMax:
			if res.Max == nil {
				res.Max = map[string]any{}
			}
		}
	}
	return res
}

// fillAggregates decodes one row of aggregate values. NULL aggregates (an
// empty set, or only NULL values) stay nil.
func (b *TableQueryBuilder) fillAggregates(res *AggregateResult, terms []aggTerm, row []any) error {
	for i, t := range terms {
		raw := row[i]
		if t.fn == aggCount {
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			res.Count[t.field] = n
			continue
		}

		f := b.model.MustField(t.field)
		v, err := mapper.Decode(aggField(t.fn, f), raw)
		if err != nil {
			return err
		}
		switch t.fn {
		case aggAvg:
			res.Avg[t.field] = v
		case aggSum:
			res.Sum[t.field] = v
		case aggMin:
			res.Min[t.field] = v
		case aggMax:
			res.Max[t.field] = v
		}
	}
	return nil
}

// aggField is the field an aggregate result decodes as: averages are floats
// except over decimals, and the other aggregates keep the field kind
func aggField(fn string, f schema.Field) schema.Field {
	if fn == aggAvg && f.Kind != schema.Decimal {
		return schema.Field{Name: f.Name, Kind: schema.Float, Nullable: true}
	}
	return f
}

// having compiles group filters. Scalar keys must be grouped fields;
// Aggregates values filter on aggregates of any scalar field.
func (b *TableQueryBuilder) having(c *compiler, qual string, by []string, h Having) (string, error) {
	grouped := make(map[string]bool, len(by))
	for _, name := range by {
		grouped[name] = true
	}

	var parts []string
	for _, key := range sortedKeys(h) {
		value := h[key]
		var (
			sql string
			err error
		)
		switch key {
		case AND, OR, NOT:
			var list []Having
			list, err = toHavingList(key, value)
			if err != nil {
				return "", err
			}
			var subs []string
			for _, sub := range list {
				s, err := b.having(c, qual, by, sub)
				if err != nil {
					return "", err
				}
				subs = append(subs, s)
			}
			sql = joinHaving(key, subs)
		default:
			f, ok := b.model.Field(key)
			if !ok {
				return "", invalid(key, "unknown field in having of %s", b.model.Name)
			}
			if aggs, isAgg := value.(Aggregates); isAgg {
				sql, err = b.havingAggregates(c, qual, f, aggs)
			} else {
				if !grouped[key] {
					return "", invalid(key, "having on a field that is not part of by needs an aggregate")
				}
				sql, err = c.field(qual, f, value)
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

func toHavingList(key string, value any) ([]Having, error) {
	switch v := value.(type) {
	case Having:
		return []Having{v}, nil
	case []Having:
		return v, nil
	case nil:
		return nil, nil
	}
	return nil, invalid(key, "expects Having or []Having, got %T", value)
}

func joinHaving(key string, subs []string) string {
	switch key {
	case OR:
		if len(subs) == 0 {
			return "1=0"
		}
		for i, s := range subs {
			if s == "" {
				return "1=1"
			}
			subs[i] = "(" + s + ")"
		}
		return "(" + strings.Join(subs, " OR ") + ")"
	case NOT:
		var parts []string
		for _, s := range subs {
			if s == "" {
				return "1=0"
			}
			parts = append(parts, "NOT ("+s+")")
		}
		return strings.Join(parts, " AND ")
	}
	var parts []string
	for _, s := range subs {
		if s != "" {
			parts = append(parts, "("+s+")")
		}
	}
	return strings.Join(parts, " AND ")
}

func (b *TableQueryBuilder) havingAggregates(c *compiler, qual string, f schema.Field, aggs Aggregates) (string, error) {
	var parts []string
	for _, fn := range sortedKeys(aggs) {
		t, err := b.aggTerm(fn, f.Name)
		if err != nil {
			return "", err
		}
		expr := b.aggExpr(c, qual, t)

		var ops []WhereOperator
		switch v := aggs[fn].(type) {
		case WhereOperator:
			ops = []WhereOperator{v}
		case FieldFilter:
			ops = v
		case []WhereOperator:
			ops = v
		default:
			ops = []WhereOperator{Equals(v)}
		}
		for _, op := range ops {
			if err := c.count(); err != nil {
				return "", err
			}
			sql, err := c.aggPredicate(expr, t, f, op)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
	}
	return strings.Join(parts, " AND "), nil
}

// aggPredicate compares an aggregate expression with bound values
func (c *compiler) aggPredicate(expr string, t aggTerm, f schema.Field, op WhereOperator) (string, error) {
	arg := func(v any) (any, error) {
		switch t.fn {
		case aggCount:
			return toInt64(v)
		case aggAvg, aggSum:
			// decimal aggregates are compared as floating point
			return mapper.ToFloat(v)
		}
		a, err := mapper.Encode(c.d, f, v)
		if err != nil {
			return nil, invalid(f.Name, "%v", err)
		}
		return a, nil
	}

	switch op.op {
	case opIsNull:
		return expr + " IS NULL", nil
	case opIsNotNull:
		return expr + " IS NOT NULL", nil
	case opEquals, opNotEquals, opGt, opGte, opLt, opLte:
		if op.value == nil {
			if op.op == opNotEquals {
				return expr + " IS NOT NULL", nil
			}
			return expr + " IS NULL", nil
		}
		a, err := arg(op.value)
		if err != nil {
			return "", invalid(f.Name, "%s: %v", t.fn, err)
		}
		sym := op.op
		if sym == opNotEquals {
			sym = "<>"
		}
		return fmt.Sprintf("%s %s %s", expr, sym, c.st.bind(a)), nil
	case opIn, opNotIn:
		values := flatten(asSlice(op.value))
		if len(values) == 0 {
			if op.op == opIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		phs := make([]string, len(values))
		for i, v := range values {
			a, err := arg(v)
			if err != nil {
				return "", invalid(f.Name, "%s: %v", t.fn, err)
			}
			phs[i] = c.st.bind(a)
		}
		kw := " IN "
		if op.op == opNotIn {
			kw = " NOT IN "
		}
		return expr + kw + "(" + strings.Join(phs, ", ") + ")", nil
	}
	return "", invalid(f.Name, "operator %q is not supported on aggregates", op.op)
}

func asSlice(v any) []any {
	if values, ok := v.([]any); ok {
		return values
	}
	return []any{v}
}
