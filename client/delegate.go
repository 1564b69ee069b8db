package client

import (
	"context"

	"github.com/carlosnayan/agentdb/builder"
	"github.com/carlosnayan/agentdb/internal/mapper"
)

// Delegate is the typed entry point of one table. Results are mapped onto T
// by the `db` tags of its fields; relations and counts are filled when they
// were included.
type Delegate[T any] struct {
	tb *builder.TableQueryBuilder
}

func newDelegate[T any](rt *builder.Runtime, table string) *Delegate[T] {
	return &Delegate[T]{tb: rt.MustTable(table)}
}

// Table returns the untyped builder, whose methods return plain records
func (d *Delegate[T]) Table() *builder.TableQueryBuilder {
	return d.tb
}

// Query starts a fluent query
//
//	var agents []models.Agent
//	err := c.Agents.Query().Where(builder.Where{"is_active": true}).Order("rating DESC").Take(10).Find(ctx, &agents)
func (d *Delegate[T]) Query() *builder.Query {
	return d.tb.Query()
}

func (d *Delegate[T]) FindMany(ctx context.Context, opts builder.QueryOptions) ([]T, error) {
	recs, err := d.tb.FindMany(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapper.ToStructs[T](recs)
}

// FindFirst returns nil when nothing matches
func (d *Delegate[T]) FindFirst(ctx context.Context, opts builder.QueryOptions) (*T, error) {
	return one[T](d.tb.FindFirst(ctx, opts))
}

func (d *Delegate[T]) FindFirstOrThrow(ctx context.Context, opts builder.QueryOptions) (*T, error) {
	return one[T](d.tb.FindFirstOrThrow(ctx, opts))
}

// FindUnique returns nil when nothing matches. Where must name the primary
// key or a unique field set.
func (d *Delegate[T]) FindUnique(ctx context.Context, opts builder.UniqueOptions) (*T, error) {
	return one[T](d.tb.FindUnique(ctx, opts))
}

func (d *Delegate[T]) FindUniqueOrThrow(ctx context.Context, opts builder.UniqueOptions) (*T, error) {
	return one[T](d.tb.FindUniqueOrThrow(ctx, opts))
}

func (d *Delegate[T]) Count(ctx context.Context, opts builder.CountOptions) (int64, error) {
	return d.tb.Count(ctx, opts)
}

func (d *Delegate[T]) Create(ctx context.Context, opts builder.CreateOptions) (*T, error) {
	return one[T](d.tb.Create(ctx, opts))
}

func (d *Delegate[T]) CreateMany(ctx context.Context, opts builder.CreateManyOptions) (builder.BatchPayload, error) {
	return d.tb.CreateMany(ctx, opts)
}

// CreateManyAndReturn is not available on MySQL
func (d *Delegate[T]) CreateManyAndReturn(ctx context.Context, opts builder.CreateManyOptions) ([]T, error) {
	recs, err := d.tb.CreateManyAndReturn(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapper.ToStructs[T](recs)
}

func (d *Delegate[T]) Update(ctx context.Context, opts builder.UpdateOptions) (*T, error) {
	return one[T](d.tb.Update(ctx, opts))
}

func (d *Delegate[T]) UpdateMany(ctx context.Context, opts builder.UpdateManyOptions) (builder.BatchPayload, error) {
	return d.tb.UpdateMany(ctx, opts)
}

// UpdateManyAndReturn is not available on MySQL
func (d *Delegate[T]) UpdateManyAndReturn(ctx context.Context, opts builder.UpdateManyOptions) ([]T, error) {
	recs, err := d.tb.UpdateManyAndReturn(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapper.ToStructs[T](recs)
}

func (d *Delegate[T]) Upsert(ctx context.Context, opts builder.UpsertOptions) (*T, error) {
	return one[T](d.tb.Upsert(ctx, opts))
}

// Delete removes one record and returns it as it was
func (d *Delegate[T]) Delete(ctx context.Context, opts builder.UniqueOptions) (*T, error) {
	return one[T](d.tb.Delete(ctx, opts))
}

func (d *Delegate[T]) DeleteMany(ctx context.Context, opts builder.DeleteManyOptions) (builder.BatchPayload, error) {
	return d.tb.DeleteMany(ctx, opts)
}

func (d *Delegate[T]) Aggregate(ctx context.Context, opts builder.AggregateOptions) (builder.AggregateResult, error) {
	return d.tb.Aggregate(ctx, opts)
}

func (d *Delegate[T]) GroupBy(ctx context.Context, opts builder.GroupByOptions) ([]builder.GroupByResult, error) {
	return d.tb.GroupBy(ctx, opts)
}

// Related loads a list relation of parent on demand. opts filter, order and
// paginate the related records.
func (d *Delegate[T]) Related(ctx context.Context, parent *T, relation string, opts builder.QueryOptions) ([]builder.Record, error) {
	return d.tb.Related(ctx, d.joinKey(parent, relation), relation, opts)
}

// RelatedOne loads a single relation of parent on demand, or nil
func (d *Delegate[T]) RelatedOne(ctx context.Context, parent *T, relation string, opts builder.QueryOptions) (builder.Record, error) {
	return d.tb.RelatedOne(ctx, d.joinKey(parent, relation), relation, opts)
}

// joinKey returns the column of parent that relation joins on. Unknown
// relations and untagged fields yield an empty record the builder rejects.
func (d *Delegate[T]) joinKey(parent *T, relation string) builder.Record {
	rel, ok := d.tb.Model().Relation(relation)
	if !ok {
		return builder.Record{}
	}
	v, ok := mapper.FieldValue(parent, rel.LocalField)
	if !ok {
		return builder.Record{}
	}
	return builder.Record{rel.LocalField: v}
}

// LoadRelated is Delegate.Related with the records mapped onto C
//
//	rentals, err := client.LoadRelated[models.Rental](ctx, c.Agents, agent, "rentals", builder.QueryOptions{Take: builder.Ptr(5)})
func LoadRelated[C, P any](ctx context.Context, d *Delegate[P], parent *P, relation string, opts builder.QueryOptions) ([]C, error) {
	recs, err := d.Related(ctx, parent, relation, opts)
	if err != nil {
		return nil, err
	}
	return mapper.ToStructs[C](recs)
}

// LoadRelatedOne is Delegate.RelatedOne mapped onto C
func LoadRelatedOne[C, P any](ctx context.Context, d *Delegate[P], parent *P, relation string, opts builder.QueryOptions) (*C, error) {
	return one[C](d.RelatedOne(ctx, parent, relation, opts))
}

func one[T any](rec builder.Record, err error) (*T, error) {
	if err != nil || rec == nil {
		return nil, err
	}
	out := new(T)
	if err := mapper.ToStruct(rec, out); err != nil {
		return nil, err
	}
	return out, nil
}
