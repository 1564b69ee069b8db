package builder

import (
	"context"
	"fmt"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/mapper"
	"github.com/carlosnayan/agentdb/schema"
)

// countKey holds relation counts in a record
const countKey = "_count"

// loadRelations fills the includes and relation counts of recs. Each relation
// costs one query per level (chunked over limits.MaxInValues keys), whatever
// the number of parents.
func (b *TableQueryBuilder) loadRelations(ctx context.Context, recs []Record, inc Include, count []string, depth int) error {
	if len(inc) == 0 && len(count) == 0 {
		return nil
	}
	if depth+1 > limits.MaxIncludeDepth {
		return invalid("include", "nested deeper than %d levels", limits.MaxIncludeDepth)
	}

	for _, name := range sortedKeys(inc) {
		rel, _ := b.model.Relation(name)
		opts := inc[name]
		if opts == nil {
			opts = &QueryOptions{}
		}
		if err := b.include(ctx, recs, rel, opts, depth); err != nil {
			return err
		}
	}

	if len(count) > 0 {
		if err := b.countRelations(ctx, recs, count); err != nil {
			return err
		}
	}
	return nil
}

func (b *TableQueryBuilder) include(ctx context.Context, recs []Record, rel schema.Relation, opts *QueryOptions, depth int) error {
	target, err := b.rt.Table(rel.Target)
	if err != nil {
		return err
	}
	if opts.Cursor != nil {
		return invalid(rel.Name, "cursor is not supported in includes")
	}
	if !rel.IsList() && (opts.Where != nil || len(opts.OrderBy) > 0 || opts.Skip != nil || opts.Take != nil || len(opts.Distinct) > 0) {
		return invalid(rel.Name, "single relations only accept select, include and count")
	}
	if err := target.checkQuery(opts); err != nil {
		return err
	}

	keys := parentKeys(recs, rel.LocalField)
	children, err := target.loadChildren(ctx, keys, rel, opts)
	if err != nil {
		return err
	}

	groups := make(map[string][]Record, len(keys))
	for _, child := range children {
		k := keyOf(child[rel.ForeignField])
		groups[k] = append(groups[k], child)
	}

	var kept []Record
	for _, rec := range recs {
		group := groups[keyOf(rec[rel.LocalField])]
		if rec[rel.LocalField] == nil {
			group = nil
		}
		if rel.IsList() {
			if len(opts.Distinct) > 0 {
				group = distinct(group, opts.Distinct)
			}
			group = window(group, opts.Skip, opts.Take)
			if group == nil {
				group = []Record{}
			}
			rec[rel.Name] = group
			kept = append(kept, group...)
			continue
		}
		if len(group) == 0 {
			rec[rel.Name] = nil
			continue
		}
		rec[rel.Name] = group[0]
		kept = append(kept, group[0])
	}

	// a record reached through several parents is loaded once
	kept = uniqueRecords(kept)
	if err := target.loadRelations(ctx, kept, opts.Include, opts.Count, depth+1); err != nil {
		return err
	}

	if len(opts.Select) > 0 {
		for _, rec := range recs {
			switch v := rec[rel.Name].(type) {
			case []Record:
				rec[rel.Name] = projectCopy(v, opts)
			case Record:
				rec[rel.Name] = projectCopy([]Record{v}, opts)[0]
			}
		}
	}
	return nil
}

// loadChildren reads the related records of every key, in chunks
func (b *TableQueryBuilder) loadChildren(ctx context.Context, keys []any, rel schema.Relation, opts *QueryOptions) ([]Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	sel := opts.Select
	if len(sel) > 0 {
		sel = append(append([]string{}, sel...), rel.ForeignField)
	}
	fields, err := b.columns(sel, opts.Include, opts.Distinct)
	if err != nil {
		return nil, err
	}

	var out []Record
	for start := 0; start < len(keys); start += limits.MaxInValues {
		chunk := keys[start:min(start+limits.MaxInValues, len(keys))]
		where := Where{rel.ForeignField: In(chunk...)}
		if opts.Where != nil {
			where = Where{AND: []Where{opts.Where, where}}
		}
		st := newStmt(b.rt.dialect)
		c := newCompiler(b.rt, st)
		sql, err := b.windowSQL(c, fields, where, opts.OrderBy, nil, nil, nil)
		if err != nil {
			return nil, err
		}
		recs, err := b.rt.fetch(ctx, b.model.Name, errs.OpFindMany, sql, st.args, fields)
		if err != nil {
			return nil, err
		}
		if len(out)+len(recs) > limits.MaxScanRows {
			return nil, errs.Wrap(errs.ErrTooManyRows, fmt.Errorf("include %s loads more than %d rows", rel.Name, limits.MaxScanRows))
		}
		out = append(out, recs...)
	}
	return out, nil
}

// countRelations adds "_count" with one grouped COUNT per relation
func (b *TableQueryBuilder) countRelations(ctx context.Context, recs []Record, names []string) error {
	counts := make(map[string]map[string]int64, len(names))
	for _, name := range names {
		rel, _ := b.model.Relation(name)
		target, err := b.rt.Table(rel.Target)
		if err != nil {
			return err
		}
		fk := target.model.MustField(rel.ForeignField)
		byKey := make(map[string]int64)
		keys := parentKeys(recs, rel.LocalField)

		for start := 0; start < len(keys); start += limits.MaxInValues {
			chunk := keys[start:min(start+limits.MaxInValues, len(keys))]
			st := newStmt(b.rt.dialect)
			c := newCompiler(b.rt, st)
			cond, err := c.where(target.model, target.table(), Where{rel.ForeignField: In(chunk...)})
			if err != nil {
				return err
			}
			col := target.table() + "." + b.rt.dialect.QuoteIdentifier(fk.Name)
			sql := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s WHERE %s GROUP BY %s", col, target.table(), cond, col)
			rows, err := b.rt.scanAll(ctx, target.model.Name, errs.OpCount, sql, st.args, 2)
			if err != nil {
				return err
			}
			for _, row := range rows {
				key, err := mapper.Decode(fk, row[0])
				if err != nil {
					return err
				}
				n, err := toInt64(row[1])
				if err != nil {
					return err
				}
				byKey[keyOf(key)] = n
			}
		}
		counts[name] = byKey
	}

	for _, rec := range recs {
		out, _ := rec[countKey].(map[string]int64)
		if out == nil {
			out = make(map[string]int64, len(names))
		}
		for _, name := range names {
			rel, _ := b.model.Relation(name)
			out[name] = counts[name][keyOf(rec[rel.LocalField])]
		}
		rec[countKey] = out
	}
	return nil
}

// Related loads a list relation of one record on demand. opts filter, order
// and paginate the related records as in FindMany, cursor included.
//
//	agent, _ := agents.FindUnique(ctx, UniqueOptions{Where: Where{"slug": "ava"}})
//	recent, err := agents.Related(ctx, agent, "rentals", QueryOptions{
//		OrderBy: []OrderBy{{Field: "start_date", Order: "DESC"}},
//		Take:    Ptr(5),
//	})
func (b *TableQueryBuilder) Related(ctx context.Context, rec Record, relation string, opts QueryOptions) ([]Record, error) {
	rel, target, key, err := b.related(rec, relation)
	if err != nil {
		return nil, err
	}
	if !rel.IsList() {
		return nil, invalid(relation, "is a single relation, use RelatedOne")
	}
	if key == nil {
		return []Record{}, nil
	}

	where := Where{rel.ForeignField: key}
	if opts.Where != nil {
		where = Where{AND: []Where{opts.Where, where}}
	}
	opts.Where = where
	recs, err := target.findMany(ctx, &opts, errs.OpFindMany, 0)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// RelatedOne loads a single relation of one record on demand, or nil when
// the record points nowhere. Only select, include and count apply.
func (b *TableQueryBuilder) RelatedOne(ctx context.Context, rec Record, relation string, opts QueryOptions) (Record, error) {
	rel, target, key, err := b.related(rec, relation)
	if err != nil {
		return nil, err
	}
	if rel.IsList() {
		return nil, invalid(relation, "is a list relation, use Related")
	}
	if opts.Where != nil || len(opts.OrderBy) > 0 || opts.Cursor != nil || opts.Skip != nil || opts.Take != nil || len(opts.Distinct) > 0 {
		return nil, invalid(relation, "single relations only accept select, include and count")
	}
	if key == nil {
		return nil, nil
	}

	q := QueryOptions{Where: Where{rel.ForeignField: key}, Take: Ptr(1), Select: opts.Select, Include: opts.Include, Count: opts.Count}
	recs, err := target.findMany(ctx, &q, errs.OpFindFirst, 0)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// related resolves relation and the key rec joins it by. A nil key means the
// record has no related rows.
func (b *TableQueryBuilder) related(rec Record, relation string) (schema.Relation, *TableQueryBuilder, any, error) {
	rel, ok := b.model.Relation(relation)
	if !ok {
		return rel, nil, nil, invalid(relation, "unknown relation on %s", b.model.Name)
	}
	target, err := b.rt.Table(rel.Target)
	if err != nil {
		return rel, nil, nil, err
	}
	key, ok := rec[rel.LocalField]
	if !ok {
		return rel, nil, nil, invalid(relation, "record has no %s, select it to load the relation", rel.LocalField)
	}
	return rel, target, key, nil
}

// parentKeys returns the distinct non-null values of field
func parentKeys(recs []Record, field string) []any {
	seen := make(map[string]bool, len(recs))
	var keys []any
	for _, rec := range recs {
		v := rec[field]
		if v == nil {
			continue
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// keyOf renders a key value as a map key
func keyOf(v any) string {
	return fmt.Sprint(v)
}

func uniqueRecords(recs []Record) []Record {
	seen := make(map[string]bool, len(recs))
	out := recs[:0:0]
	for _, rec := range recs {
		k := fmt.Sprintf("%p", rec)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec)
	}
	return out
}

func projectCopy(recs []Record, opts *QueryOptions) []Record {
	names := append(append([]string{}, opts.Select...), sortedKeys(opts.Include)...)
	if len(opts.Count) > 0 {
		names = append(names, countKey)
	}
	out := make([]Record, len(recs))
	for i, rec := range recs {
		cp := make(Record, len(names))
		for _, name := range names {
			cp[name] = rec[name]
		}
		out[i] = cp
	}
	return out
}
