package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
)

// on returns the same table builder bound to rt
func (b *TableQueryBuilder) on(rt *Runtime) *TableQueryBuilder {
	return &TableQueryBuilder{rt: rt, model: b.model}
}

func (b *TableQueryBuilder) pkField() schema.Field {
	return b.model.MustField(b.model.PrimaryKey)
}

// Create inserts one record and returns it
func (b *TableQueryBuilder) Create(ctx context.Context, opts CreateOptions) (Record, error) {
	cols, vals, err := b.insertRow(opts.Data)
	if err != nil {
		return nil, err
	}

	var out Record
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		pk, err := tb.insertOne(ctx, cols, vals)
		if err != nil {
			return err
		}
		out, err = tb.findByPK(ctx, pk, opts.Select, opts.Include, opts.Count, errs.OpCreate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMany inserts records in batches and returns how many were inserted.
// Rows are grouped by the set of columns they provide.
func (b *TableQueryBuilder) CreateMany(ctx context.Context, opts CreateManyOptions) (BatchPayload, error) {
	if len(opts.Data) == 0 {
		return BatchPayload{}, nil
	}
	batches, err := b.insertBatches(opts.Data)
	if err != nil {
		return BatchPayload{}, err
	}

	var total int64
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		for _, batch := range batches {
			st := newStmt(rt.dialect)
			sql := b.insertSQL(st, batch, opts.SkipDuplicates, false)
			res, err := rt.exec(ctx, b.model.Name, errs.OpCreateMany, sql, st.args)
			if err != nil {
				return err
			}
			total += res.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return BatchPayload{}, err
	}
	return BatchPayload{Count: total}, nil
}

// CreateManyAndReturn is CreateMany returning the inserted records. MySQL
// cannot return inserted rows.
func (b *TableQueryBuilder) CreateManyAndReturn(ctx context.Context, opts CreateManyOptions) ([]Record, error) {
	if !b.rt.dialect.SupportsReturning() {
		return nil, invalid("", "createManyAndReturn is not supported on %s", b.rt.dialect.Name())
	}
	if len(opts.Data) == 0 {
		return []Record{}, nil
	}
	batches, err := b.insertBatches(opts.Data)
	if err != nil {
		return nil, err
	}

	var out []Record
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		var pks []any
		for _, batch := range batches {
			st := newStmt(rt.dialect)
			sql := b.insertSQL(st, batch, opts.SkipDuplicates, true)
			rows, err := rt.scanAll(ctx, b.model.Name, errs.OpCreateMany, sql, st.args, 1)
			if err != nil {
				return err
			}
			for _, row := range rows {
				pk, err := mapper.Decode(b.pkField(), row[0])
				if err != nil {
					return err
				}
				pks = append(pks, pk)
			}
		}
		var err error
		out, err = tb.findByPKs(ctx, pks, opts.Select, opts.Include, errs.OpCreateMany)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates the record identified by a unique filter and returns it
func (b *TableQueryBuilder) Update(ctx context.Context, opts UpdateOptions) (Record, error) {
	where, err := b.uniqueWhere(opts.Where)
	if err != nil {
		return nil, err
	}
	if err := checkData(b.model, opts.Data); err != nil {
		return nil, err
	}

	var out Record
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		pk, err := tb.lockOne(ctx, where, errs.OpUpdate)
		if err != nil {
			return err
		}
		if pk, err = tb.updateByPK(ctx, pk, opts.Data, errs.OpUpdate); err != nil {
			return err
		}
		out, err = tb.findByPK(ctx, pk, opts.Select, opts.Include, opts.Count, errs.OpUpdate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMany updates every record matching the filter, up to Limit
func (b *TableQueryBuilder) UpdateMany(ctx context.Context, opts UpdateManyOptions) (BatchPayload, error) {
	if err := checkData(b.model, opts.Data); err != nil {
		return BatchPayload{}, err
	}
	if err := checkLimit(opts.Limit); err != nil {
		return BatchPayload{}, err
	}
	if (opts.Limit != nil && *opts.Limit == 0) || len(opts.Data) == 0 {
		return BatchPayload{}, nil
	}

	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)
	sets, err := b.assignments(c, opts.Data)
	if err != nil {
		return BatchPayload{}, err
	}
	cond, err := b.limitedWhere(c, opts.Where, opts.Limit)
	if err != nil {
		return BatchPayload{}, err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s%s", b.table(), strings.Join(sets, ", "), cond)
	res, err := b.rt.exec(ctx, b.model.Name, errs.OpUpdateMany, sql, st.args)
	if err != nil {
		return BatchPayload{}, err
	}
	return BatchPayload{Count: res.RowsAffected()}, nil
}

// UpdateManyAndReturn is UpdateMany returning the updated records. It is not
// available on MySQL.
func (b *TableQueryBuilder) UpdateManyAndReturn(ctx context.Context, opts UpdateManyOptions) ([]Record, error) {
	if !b.rt.dialect.SupportsReturning() {
		return nil, invalid("", "updateManyAndReturn is not supported on %s", b.rt.dialect.Name())
	}
	if err := checkData(b.model, opts.Data); err != nil {
		return nil, err
	}
	if err := checkLimit(opts.Limit); err != nil {
		return nil, err
	}
	if opts.Limit != nil && *opts.Limit == 0 {
		return []Record{}, nil
	}

	var out []Record
	err := b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		pks, err := tb.selectPKs(ctx, opts.Where, opts.Limit, errs.OpUpdateMany)
		if err != nil {
			return err
		}
		if len(opts.Data) > 0 {
			for start := 0; start < len(pks); start += limits.MaxInValues {
				chunk := pks[start:min(start+limits.MaxInValues, len(pks))]
				st := newStmt(rt.dialect)
				c := newCompiler(rt, st)
				sets, err := tb.assignments(c, opts.Data)
				if err != nil {
					return err
				}
				cond, err := c.where(tb.model, tb.table(), Where{tb.model.PrimaryKey: In(chunk...)})
				if err != nil {
					return err
				}
				sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tb.table(), strings.Join(sets, ", "), cond)
				if _, err := rt.exec(ctx, tb.model.Name, errs.OpUpdateMany, sql, st.args); err != nil {
					return err
				}
			}
		}
		out, err = tb.findByPKs(ctx, pks, opts.Select, opts.Include, errs.OpUpdateMany)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert updates the record identified by Where, or creates it. A filter on
// exactly one unique key whose values Create repeats, and that Update leaves
// alone, compiles to a single INSERT ... ON CONFLICT / ON DUPLICATE KEY
// statement; other upserts run a find-then-write transaction retried once on
// a unique collision.
func (b *TableQueryBuilder) Upsert(ctx context.Context, opts UpsertOptions) (Record, error) {
	where, err := b.uniqueWhere(opts.Where)
	if err != nil {
		return nil, err
	}
	if err := checkData(b.model, opts.Create); err != nil {
		return nil, err
	}
	if err := checkData(b.model, opts.Update); err != nil {
		return nil, err
	}
	if key, ok := b.nativeUpsertKey(where, opts.Create); ok && !touches(opts.Update, key) {
		return b.upsertNative(ctx, key, where, opts)
	}
	return b.upsertEmulated(ctx, where, opts)
}

func (b *TableQueryBuilder) upsertNative(ctx context.Context, key []string, where Where, opts UpsertOptions) (Record, error) {
	cols, vals, err := b.insertRow(opts.Create)
	if err != nil {
		return nil, err
	}

	var out Record
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		d := rt.dialect
		st := newStmt(d)
		c := newCompiler(rt, st)

		phs := make([]string, len(vals))
		for i, v := range vals {
			phs[i] = st.bind(v)
		}
		sets, err := tb.assignments(c, opts.Update)
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			sets = []string{d.QuoteIdentifier(key[0]) + " = " + d.ExcludedColumn(key[0])}
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
			tb.table(), tb.quoteAll(cols), strings.Join(phs, ", "), d.UpsertClause(key, sets))
		if _, err := rt.exec(ctx, tb.model.Name, errs.OpUpsert, sql, st.args); err != nil {
			return err
		}

		rec, err := tb.FindUnique(ctx, UniqueOptions{Where: where, Select: opts.Select, Include: opts.Include, Count: opts.Count})
		if err != nil {
			return err
		}
		if rec == nil {
			return errs.NewNotFoundError(tb.model.Name, errs.OpUpsert)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *TableQueryBuilder) upsertEmulated(ctx context.Context, where Where, opts UpsertOptions) (Record, error) {
	for attempt := 0; ; attempt++ {
		var out Record
		err := b.rt.atomic(ctx, func(rt *Runtime) error {
			tb := b.on(rt)
			pk, err := tb.lockOne(ctx, where, errs.OpUpsert)
			if errs.IsNotFound(err) {
				out, err = tb.Create(ctx, CreateOptions{Data: opts.Create, Select: opts.Select, Include: opts.Include, Count: opts.Count})
				return err
			}
			if err != nil {
				return err
			}
			if pk, err = tb.updateByPK(ctx, pk, opts.Update, errs.OpUpsert); err != nil {
				return err
			}
			out, err = tb.findByPK(ctx, pk, opts.Select, opts.Include, opts.Count, errs.OpUpsert)
			return err
		})
		if err == nil {
			return out, nil
		}
		// a concurrent create won the race: the second attempt updates it
		if attempt == 0 && errs.IsUniqueConstraint(err) && !b.rt.inTx {
			continue
		}
		return nil, err
	}
}

// nativeUpsertKey returns the unique key Where pins when the upsert can run as
// one statement
func (b *TableQueryBuilder) nativeUpsertKey(where Where, create Record) ([]string, bool) {
	names := make([]string, 0, len(where))
	for key, value := range where {
		f, ok := b.model.Field(key)
		if !ok || !isEquality(value) {
			return nil, false
		}
		want, err := mapper.Encode(b.rt.dialect, f, equalityValue(value))
		if err != nil {
			return nil, false
		}
		got, ok := create[key]
		if !ok {
			return nil, false
		}
		have, err := mapper.Encode(b.rt.dialect, f, got)
		if err != nil || fmt.Sprint(want) != fmt.Sprint(have) {
			return nil, false
		}
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range b.model.UniqueKeys() {
		sorted := append([]string{}, key...)
		sort.Strings(sorted)
		if strings.Join(sorted, ",") == strings.Join(names, ",") {
			return key, true
		}
	}
	return nil, false
}

// touches reports whether data writes any of cols. The native statement
// re-reads the row through the key, which must not move.
func touches(data Record, cols []string) bool {
	for _, col := range cols {
		if _, ok := data[col]; ok {
			return true
		}
	}
	return false
}

func equalityValue(value any) any {
	if op, ok := value.(WhereOperator); ok {
		return op.value
	}
	return value
}

// Delete deletes the record identified by a unique filter and returns it
func (b *TableQueryBuilder) Delete(ctx context.Context, opts UniqueOptions) (Record, error) {
	where, err := b.uniqueWhere(opts.Where)
	if err != nil {
		return nil, err
	}

	var out Record
	err = b.rt.atomic(ctx, func(rt *Runtime) error {
		tb := b.on(rt)
		pk, err := tb.lockOne(ctx, where, errs.OpDelete)
		if err != nil {
			return err
		}
		if out, err = tb.findByPK(ctx, pk, opts.Select, opts.Include, opts.Count, errs.OpDelete); err != nil {
			return err
		}
		st := newStmt(rt.dialect)
		c := newCompiler(rt, st)
		cond, err := c.where(tb.model, tb.table(), Where{tb.model.PrimaryKey: pk})
		if err != nil {
			return err
		}
		_, err = rt.exec(ctx, tb.model.Name, errs.OpDelete, "DELETE FROM "+tb.table()+" WHERE "+cond, st.args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMany deletes every record matching the filter, up to Limit
func (b *TableQueryBuilder) DeleteMany(ctx context.Context, opts DeleteManyOptions) (BatchPayload, error) {
	if err := checkLimit(opts.Limit); err != nil {
		return BatchPayload{}, err
	}
	if opts.Limit != nil && *opts.Limit == 0 {
		return BatchPayload{}, nil
	}
	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)
	cond, err := b.limitedWhere(c, opts.Where, opts.Limit)
	if err != nil {
		return BatchPayload{}, err
	}
	res, err := b.rt.exec(ctx, b.model.Name, errs.OpDeleteMany, "DELETE FROM "+b.table()+cond, st.args)
	if err != nil {
		return BatchPayload{}, err
	}
	return BatchPayload{Count: res.RowsAffected()}, nil
}

// insertRow validates and encodes a create payload in field order. Fields
// flagged UpdatedAt are stamped when absent.
func (b *TableQueryBuilder) insertRow(data Record) ([]string, []any, error) {
	if err := checkData(b.model, data); err != nil {
		return nil, nil, err
	}
	if err := checkRequired(b.model, data); err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	var (
		cols []string
		vals []any
	)
	for _, f := range b.model.Fields {
		v, ok := data[f.Name]
		if !ok {
			if f.UpdatedAt {
				cols = append(cols, f.Name)
				vals = append(vals, now)
			}
			continue
		}
		if op, isOp := v.(UpdateOp); isOp {
			if op.op != updSet {
				return nil, nil, invalid(f.Name, "%s is only valid in updates", op.op)
			}
			v = op.value
		}
		arg, err := mapper.Encode(b.rt.dialect, f, v)
		if err != nil {
			return nil, nil, invalid(f.Name, "%v", err)
		}
		if arg == nil && !f.Nullable {
			return nil, nil, invalid(f.Name, "cannot be null")
		}
		cols = append(cols, f.Name)
		vals = append(vals, arg)
	}
	return cols, vals, nil
}

// insertOne inserts one row and returns its primary key
func (b *TableQueryBuilder) insertOne(ctx context.Context, cols []string, vals []any) (any, error) {
	d := b.rt.dialect
	st := newStmt(d)
	sql := b.insertSQL(st, insertBatch{cols: cols, rows: [][]any{vals}}, false, d.SupportsReturning())

	if d.SupportsReturning() {
		row, err := b.rt.scanOne(ctx, b.model.Name, errs.OpCreate, sql, st.args, 1)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, errs.Wrap(errs.ErrUnknownRequest, fmt.Errorf("insert into %s returned no row", b.model.Name))
		}
		return mapper.Decode(b.pkField(), row[0])
	}

	res, err := b.rt.exec(ctx, b.model.Name, errs.OpCreate, sql, st.args)
	if err != nil {
		return nil, err
	}
	for i, col := range cols {
		if col == b.model.PrimaryKey {
			return vals[i], nil
		}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errs.MapDriverError(err, errs.OpCreate)
	}
	return id, nil
}

type insertBatch struct {
	cols []string
	rows [][]any
}

// insertBatches groups rows by column set and splits each group so one
// statement stays under the row and bind-parameter limits
func (b *TableQueryBuilder) insertBatches(data []Record) ([]insertBatch, error) {
	var order []string
	groups := make(map[string]*insertBatch)
	for i, rec := range data {
		cols, vals, err := b.insertRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		key := strings.Join(cols, ",")
		g, ok := groups[key]
		if !ok {
			g = &insertBatch{cols: cols}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, vals)
	}

	var out []insertBatch
	for _, key := range order {
		g := groups[key]
		per := limits.MaxBatchSize
		if n := len(g.cols); n > 0 {
			per = min(per, limits.MaxBindParams/n)
		} else {
			per = 1
		}
		for start := 0; start < len(g.rows); start += per {
			out = append(out, insertBatch{cols: g.cols, rows: g.rows[start:min(start+per, len(g.rows))]})
		}
	}
	return out, nil
}

// insertSQL renders a multi-row INSERT
func (b *TableQueryBuilder) insertSQL(st *stmt, batch insertBatch, skipDuplicates, returning bool) string {
	d := b.rt.dialect
	var sql string
	if len(batch.cols) == 0 {
		sql = d.EmptyInsert(b.table())
	} else {
		tuples := make([]string, len(batch.rows))
		for i, row := range batch.rows {
			phs := make([]string, len(row))
			for j, v := range row {
				phs[j] = st.bind(v)
			}
			tuples[i] = "(" + strings.Join(phs, ", ") + ")"
		}
		sql = fmt.Sprintf("%s %s (%s) VALUES %s", d.InsertKeyword(skipDuplicates), b.table(), b.quoteAll(batch.cols), strings.Join(tuples, ", "))
		if skipDuplicates {
			sql += d.SkipDuplicatesSuffix()
		}
	}
	if returning {
		sql += " RETURNING " + d.QuoteIdentifier(b.model.PrimaryKey)
	}
	return sql
}

func (b *TableQueryBuilder) quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = b.rt.dialect.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

var arithmetic = map[string]string{
	updIncrement: "+",
	updDecrement: "-",
	updMultiply:  "*",
	updDivide:    "/",
}

// assignments renders the SET list of an update in field order. UpdatedAt
// fields are stamped unless data sets them or data is empty.
func (b *TableQueryBuilder) assignments(c *compiler, data Record) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if err := checkData(b.model, data); err != nil {
		return nil, err
	}
	d := c.d
	now := time.Now().UTC()
	var sets []string
	for _, f := range b.model.Fields {
		lhs := d.QuoteIdentifier(f.Name)
		v, ok := data[f.Name]
		if !ok {
			if f.UpdatedAt {
				sets = append(sets, lhs+" = "+c.st.bind(now))
			}
			continue
		}

		op, isOp := v.(UpdateOp)
		if !isOp || op.op == updSet {
			if isOp {
				v = op.value
			}
			arg, err := mapper.Encode(d, f, v)
			if err != nil {
				return nil, invalid(f.Name, "%v", err)
			}
			if arg == nil && !f.Nullable {
				return nil, invalid(f.Name, "cannot be null")
			}
			sets = append(sets, lhs+" = "+c.st.bind(arg))
			continue
		}

		switch op.op {
		case updIncrement, updDecrement, updMultiply, updDivide:
			if !f.Kind.IsNumeric() {
				return nil, invalid(f.Name, "%s applies to numeric fields only", op.op)
			}
			arg, err := mapper.Encode(d, f, op.value)
			if err != nil || arg == nil {
				return nil, invalid(f.Name, "%s needs a number", op.op)
			}
			sets = append(sets, fmt.Sprintf("%s = %s %s %s", lhs, c.operand(b.table(), f), arithmetic[op.op], c.st.bind(arg)))
		case updPush:
			if f.Kind != schema.StringList {
				return nil, invalid(f.Name, "push applies to String[] fields only")
			}
			values, _ := op.value.([]string)
			expr, err := d.ArrayPush(c.column(b.table(), f.Name), values, c.st.bind)
			if err != nil {
				return nil, invalid(f.Name, "%v", err)
			}
			sets = append(sets, lhs+" = "+expr)
		default:
			return nil, invalid(f.Name, "unsupported update operation %q", op.op)
		}
	}
	return sets, nil
}

// limitedWhere renders the WHERE of UpdateMany and DeleteMany. Without
// UPDATE ... LIMIT support the limit goes through a primary-key subquery.
func (b *TableQueryBuilder) limitedWhere(c *compiler, where Where, limit *int) (string, error) {
	cond, err := c.where(b.model, b.table(), where)
	if err != nil {
		return "", err
	}
	clause := ""
	if cond != "" {
		clause = " WHERE " + cond
	}
	if limit == nil {
		return clause, nil
	}
	if c.d.SupportsUpdateLimit() {
		return fmt.Sprintf("%s LIMIT %d", clause, *limit), nil
	}
	pk := c.column(b.table(), b.model.PrimaryKey)
	return fmt.Sprintf(" WHERE %s IN (SELECT %s FROM %s%s %s)", pk, pk, b.table(), clause, c.d.GetLimitOffsetSyntax(*limit, 0)), nil
}

// lockOne returns the primary key of the first record matching where, locking
// the row where the dialect can
func (b *TableQueryBuilder) lockOne(ctx context.Context, where Where, op errs.OperationType) (any, error) {
	pks, err := b.selectPKs(ctx, where, Ptr(1), op)
	if err != nil {
		return nil, err
	}
	if len(pks) == 0 {
		return nil, errs.NewNotFoundError(b.model.Name, op)
	}
	return pks[0], nil
}

func (b *TableQueryBuilder) selectPKs(ctx context.Context, where Where, limit *int, op errs.OperationType) ([]any, error) {
	pk := b.pkField()
	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)
	sql, err := b.windowSQL(c, []schema.Field{pk}, where, nil, nil, nil, limit)
	if err != nil {
		return nil, err
	}
	sql += b.rt.dialect.ForUpdate()
	recs, err := b.rt.fetch(ctx, b.model.Name, op, sql, st.args, []schema.Field{pk})
	if err != nil {
		return nil, err
	}
	pks := make([]any, len(recs))
	for i, rec := range recs {
		pks[i] = rec[pk.Name]
	}
	return pks, nil
}

// updateByPK applies data to one row and returns its (possibly new) primary key
func (b *TableQueryBuilder) updateByPK(ctx context.Context, pk any, data Record, op errs.OperationType) (any, error) {
	st := newStmt(b.rt.dialect)
	c := newCompiler(b.rt, st)
	sets, err := b.assignments(c, data)
	if err != nil || len(sets) == 0 {
		return pk, err
	}
	cond, err := c.where(b.model, b.table(), Where{b.model.PrimaryKey: pk})
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", b.table(), strings.Join(sets, ", "), cond)
	if _, err := b.rt.exec(ctx, b.model.Name, op, sql, st.args); err != nil {
		return nil, err
	}
	v, ok := data[b.model.PrimaryKey]
	if !ok {
		return pk, nil
	}
	if set, isOp := v.(UpdateOp); isOp {
		if set.op == updSet {
			return set.value, nil
		}
		return pk, nil
	}
	return v, nil
}

func (b *TableQueryBuilder) findByPK(ctx context.Context, pk any, sel []string, inc Include, count []string, op errs.OperationType) (Record, error) {
	q := QueryOptions{Where: Where{b.model.PrimaryKey: pk}, Take: Ptr(1), Select: sel, Include: inc, Count: count}
	recs, err := b.findMany(ctx, &q, op, 0)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errs.NewNotFoundError(b.model.Name, op)
	}
	return recs[0], nil
}

// findByPKs reads records by primary key, keeping the order of pks
func (b *TableQueryBuilder) findByPKs(ctx context.Context, pks []any, sel []string, inc Include, op errs.OperationType) ([]Record, error) {
	byKey := make(map[string]Record, len(pks))
	for start := 0; start < len(pks); start += limits.MaxInValues {
		chunk := pks[start:min(start+limits.MaxInValues, len(pks))]
		q := QueryOptions{Where: Where{b.model.PrimaryKey: In(chunk...)}, Select: sel, Include: inc}
		// the primary key is needed to restore the order
		if len(sel) > 0 {
			q.Select = append(append([]string{}, sel...), b.model.PrimaryKey)
		}
		recs, err := b.findMany(ctx, &q, op, 0)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			byKey[keyOf(rec[b.model.PrimaryKey])] = rec
		}
	}
	out := make([]Record, 0, len(pks))
	for _, pk := range pks {
		if rec, ok := byKey[keyOf(pk)]; ok {
			out = append(out, project([]Record{rec}, sel, inc, nil)[0])
		}
	}
	return out, nil
}
