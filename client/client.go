// Package client is the entry point of agentdb: one typed delegate per
// marketplace table, transactions, batches and raw SQL over a single
// connection pool.
//
//	c, err := client.Open(ctx, "postgresql", os.Getenv("DATABASE_URL"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	agent, err := c.Agents.FindUnique(ctx, builder.UniqueOptions{Where: builder.Where{"slug": "ava"}})
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carlosnayan/agentdb/builder"
	"github.com/carlosnayan/agentdb/internal/cache"
	"github.com/carlosnayan/agentdb/internal/config"
	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/driver"
	"github.com/carlosnayan/agentdb/internal/logger"
	"github.com/carlosnayan/agentdb/internal/migrations"
	"github.com/carlosnayan/agentdb/internal/query"
	"github.com/carlosnayan/agentdb/models"
	"github.com/carlosnayan/agentdb/raw"
	"github.com/carlosnayan/agentdb/schema"
)

// Client is the main agentdb client. A Client handed to a Transaction
// callback runs everything inside that transaction.
type Client struct {
	Agents                  *Delegate[models.Agent]
	AgentsCustom            *Delegate[models.AgentCustom]
	AgentFeedback           *Delegate[models.AgentFeedback]
	AgentLanguages          *Delegate[models.AgentLanguage]
	AgentPerformanceMetrics *Delegate[models.AgentPerformanceMetric]
	AgentUsageEvents        *Delegate[models.AgentUsageEvent]
	Rentals                 *Delegate[models.Rental]
	UserInteractions        *Delegate[models.UserInteraction]
	VoiceSamples            *Delegate[models.VoiceSample]
	ContractorContext       *Delegate[models.ContractorContext]
	Subscriptions           *Delegate[models.Subscription]
	SystemHealthMetrics     *Delegate[models.SystemHealthMetric]

	rt  *builder.Runtime
	db  driver.DB
	raw *raw.Executor
	log *logger.Logger

	closeOnce sync.Once
	stop      context.CancelFunc
}

// Open connects to the database and returns a client. An empty provider is
// detected from the URL.
func Open(ctx context.Context, provider, databaseURL string, opts ...Option) (*Client, error) {
	o := collect(opts)
	if provider == "" {
		provider = migrations.DetectProvider(databaseURL)
	}
	db, err := migrations.ConnectDatabase(ctx, provider, databaseURL, o.pool)
	if err != nil {
		return nil, err
	}
	return newClient(db, dialect.GetDialect(provider), o), nil
}

// OpenFromConfig reads agentdb.conf (searched upwards from the working
// directory when path is empty), connects, and keeps watching the file:
// log level changes apply without a restart.
func OpenFromConfig(ctx context.Context, path string, opts ...Option) (*Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	c, err := Open(ctx, cfg.GetProvider(), cfg.GetDatabaseURL(), append(fromConfig(cfg), opts...)...)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	stopMonitors := c.stop
	c.stop = func() {
		cancel()
		stopMonitors()
	}
	err = config.Watch(watchCtx, cfg.Path(), func(next *config.Config) {
		c.log.SetLevels(next.Log)
		c.log.Info("Reloaded %s", next.Path())
	}, func(err error) {
		c.log.Warn("Config reload failed: %v", err)
	})
	if err != nil {
		c.log.Warn("Config hot reload disabled: %v", err)
	}
	return c, nil
}

// New wraps an open connection. Closing the client closes db.
func New(db driver.DB, d dialect.Dialect, opts ...Option) *Client {
	return newClient(db, d, collect(opts))
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(db driver.DB, d dialect.Dialect, o *options) *Client {
	log := o.logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if o.levels != nil {
		log.SetLevels(o.levels)
	}

	stmts := cache.DefaultStmtCache()
	rt := builder.NewRuntime(db, d, o.registry).
		SetLogger(log).
		SetStmtCache(stmts).
		SetQueryTimeout(o.queryTimeout).
		SetTransactionDefaults(o.txDefaults)

	ctx, cancel := context.WithCancel(context.Background())
	stmts.StartCleanup(ctx, time.Minute)
	if o.n1Threshold > 0 {
		window := o.n1Window
		if window <= 0 {
			window = time.Second
		}
		detector := query.NewN1Detector(o.n1Threshold, window)
		rt.SetN1Detector(detector)
		detector.StartMonitoring(ctx, window, func(alerts []query.N1Alert) {
			for _, a := range alerts {
				log.Warn("%s", a)
			}
		})
	}

	c := bind(rt, log)
	c.db = db
	c.stop = cancel
	return c
}

// bind builds the delegates over rt
func bind(rt *builder.Runtime, log *logger.Logger) *Client {
	return &Client{
		Agents:                  newDelegate[models.Agent](rt, schema.Agents),
		AgentsCustom:            newDelegate[models.AgentCustom](rt, schema.AgentsCustom),
		AgentFeedback:           newDelegate[models.AgentFeedback](rt, schema.AgentFeedback),
		AgentLanguages:          newDelegate[models.AgentLanguage](rt, schema.AgentLanguages),
		AgentPerformanceMetrics: newDelegate[models.AgentPerformanceMetric](rt, schema.AgentPerformanceMetrics),
		AgentUsageEvents:        newDelegate[models.AgentUsageEvent](rt, schema.AgentUsageEvents),
		Rentals:                 newDelegate[models.Rental](rt, schema.Rentals),
		UserInteractions:        newDelegate[models.UserInteraction](rt, schema.UserInteractions),
		VoiceSamples:            newDelegate[models.VoiceSample](rt, schema.VoiceSamples),
		ContractorContext:       newDelegate[models.ContractorContext](rt, schema.ContractorContext),
		Subscriptions:           newDelegate[models.Subscription](rt, schema.Subscriptions),
		SystemHealthMetrics:     newDelegate[models.SystemHealthMetric](rt, schema.SystemHealthMetrics),

		rt:  rt,
		raw: raw.New(rt.Querier(), rt.Dialect()).WithLogger(log).WithTimeout(rt.QueryTimeout()),
		log: log,
	}
}

// Runtime returns the untyped runtime the delegates run on
func (c *Client) Runtime() *builder.Runtime {
	return c.rt
}

// Raw returns the raw SQL executor
func (c *Client) Raw() *raw.Executor {
	return c.raw
}

// ExecuteRaw runs one statement with `?` placeholders
func (c *Client) ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	return c.raw.ExecuteRaw(ctx, sql, args...)
}

// ExecuteRawUnsafe runs sql exactly as given
func (c *Client) ExecuteRawUnsafe(ctx context.Context, sql string, args ...any) (int64, error) {
	return c.raw.ExecuteRawUnsafe(ctx, sql, args...)
}

// QueryRaw runs one query with `?` placeholders
func (c *Client) QueryRaw(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return c.raw.QueryRaw(ctx, sql, args...)
}

// QueryRawUnsafe runs sql exactly as given
func (c *Client) QueryRawUnsafe(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return c.raw.QueryRawUnsafe(ctx, sql, args...)
}

// Transaction executes fn within a database transaction. It commits when fn
// returns nil and rolls back on an error or a panic.
//
//	err := c.Transaction(ctx, func(tx *client.Client) error {
//	    agent, err := tx.Agents.Create(ctx, builder.CreateOptions{Data: builder.Record{"name": "Ava", "slug": "ava"}})
//	    if err != nil {
//	        return err
//	    }
//	    _, err = tx.Rentals.Create(ctx, builder.CreateOptions{Data: builder.Record{"agent_id": agent.ID, "plan": "pro"}})
//	    return err
//	})
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error, opts ...builder.TxOptions) error {
	return c.rt.Transaction(ctx, func(rt *builder.Runtime) error {
		return fn(bind(rt, c.log))
	}, opts...)
}

// Op is one pending operation of a Batch
type Op func(ctx context.Context, tx *Client) (any, error)

// Batch runs ops in order inside one transaction and returns their results.
// The first failing operation rolls the whole batch back.
func (c *Client) Batch(ctx context.Context, ops ...Op) ([]any, error) {
	results := make([]any, len(ops))
	err := c.Transaction(ctx, func(tx *Client) error {
		for i, op := range ops {
			res, err := op(ctx, tx)
			if err != nil {
				return fmt.Errorf("batch operation %d: %w", i, err)
			}
			results[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close stops background monitors and closes the connection pool. It is a
// no-op on a transaction client.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		if c.stop != nil {
			c.stop()
		}
		err = c.db.Close()
	})
	return err
}
