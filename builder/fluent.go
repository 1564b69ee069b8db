package builder

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/internal/limits"
	"github.com/carlosnayan/agentdb/internal/mapper"
)

// Query is a chainable FindMany over one table.
//
//	var agents []models.Agent
//	err := rt.MustTable("agents").Query().
//		Where(builder.Where{"status": "active"}).
//		Order("rating DESC").
//		Take(10).
//		Find(ctx, &agents)
type Query struct {
	b    *TableQueryBuilder
	opts QueryOptions
}

// Query starts a chainable query on the table
func (b *TableQueryBuilder) Query() *Query {
	return &Query{b: b}
}

// Where adds conditions; successive calls are combined with AND
func (q *Query) Where(w Where) *Query {
	if len(w) == 0 {
		return q
	}
	if q.opts.Where == nil {
		q.opts.Where = w
		return q
	}
	q.opts.Where = Where{AND: []Where{q.opts.Where, w}}
	return q
}

// Order adds a sort term written as "field" or "field DESC"
func (q *Query) Order(order string) *Query {
	if len(q.opts.OrderBy) >= limits.MaxOrderByFields {
		return q
	}

	parts := strings.Fields(order)
	if len(parts) == 2 {
		q.opts.OrderBy = append(q.opts.OrderBy, OrderBy{
			Field: parts[0],
			Order: strings.ToUpper(parts[1]),
		})
	} else if len(parts) == 1 {
		q.opts.OrderBy = append(q.opts.OrderBy, OrderBy{
			Field: parts[0],
			Order: "ASC",
		})
	}
	return q
}

// OrderBy adds sort terms
func (q *Query) OrderBy(order ...OrderBy) *Query {
	q.opts.OrderBy = append(q.opts.OrderBy, order...)
	return q
}

// Cursor starts the page at the record matching a unique filter
func (q *Query) Cursor(w Where) *Query {
	q.opts.Cursor = w
	return q
}

// Take limits the number of records, negative values take from the end
func (q *Query) Take(take int) *Query {
	q.opts.Take = &take
	return q
}

// Skip skips records
func (q *Query) Skip(skip int) *Query {
	q.opts.Skip = &skip
	return q
}

// Select restricts the returned fields
func (q *Query) Select(fields ...string) *Query {
	q.opts.Select = append(q.opts.Select, fields...)
	return q
}

// Distinct drops records repeating the values of fields
func (q *Query) Distinct(fields ...string) *Query {
	q.opts.Distinct = append(q.opts.Distinct, fields...)
	return q
}

// Include loads a relation, opts may be nil
func (q *Query) Include(relation string, opts *QueryOptions) *Query {
	if q.opts.Include == nil {
		q.opts.Include = Include{}
	}
	q.opts.Include[relation] = opts
	return q
}

// WithCount adds "_count" for the given list relations
func (q *Query) WithCount(relations ...string) *Query {
	q.opts.Count = append(q.opts.Count, relations...)
	return q
}

// Options returns the accumulated options
func (q *Query) Options() QueryOptions {
	return q.opts
}

// Records runs the query and returns plain records
func (q *Query) Records(ctx context.Context) ([]Record, error) {
	return q.b.FindMany(ctx, q.opts)
}

// Find runs the query and fills dest, a pointer to a slice of structs or of
// struct pointers
func (q *Query) Find(ctx context.Context, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find: destination must be a pointer to a slice, got %T", dest)
	}
	recs, err := q.Records(ctx)
	if err != nil {
		return err
	}

	slice := rv.Elem()
	elem := slice.Type().Elem()
	ptr := elem.Kind() == reflect.Pointer
	if ptr {
		elem = elem.Elem()
	}
	out := reflect.MakeSlice(slice.Type(), 0, len(recs))
	for _, rec := range recs {
		item := reflect.New(elem)
		if err := mapper.ToStruct(rec, item.Interface()); err != nil {
			return err
		}
		if ptr {
			out = reflect.Append(out, item)
		} else {
			out = reflect.Append(out, item.Elem())
		}
	}
	slice.Set(out)
	return nil
}

// First runs the query with Take(1) and fills dest, a pointer to a struct.
// It returns a NotFound error when nothing matches.
func (q *Query) First(ctx context.Context, dest any) error {
	rec, err := q.b.FindFirst(ctx, q.opts)
	if err != nil {
		return err
	}
	if rec == nil {
		return errs.NewNotFoundError(q.b.model.Name, errs.OpFindFirst)
	}
	return mapper.ToStruct(rec, dest)
}

// Count counts the records the query would return
func (q *Query) Count(ctx context.Context) (int64, error) {
	return q.b.Count(ctx, CountOptions{
		Where:   q.opts.Where,
		OrderBy: q.opts.OrderBy,
		Cursor:  q.opts.Cursor,
		Skip:    q.opts.Skip,
		Take:    q.opts.Take,
	})
}
