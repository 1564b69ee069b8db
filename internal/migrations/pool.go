package migrations

import (
	"database/sql"

	"github.com/carlosnayan/agentdb/internal/driver"
)

// PoolStats is a snapshot of a connection pool
type PoolStats struct {
	Open  int `json:"open"`
	Idle  int `json:"idle"`
	InUse int `json:"in_use"`
	Max   int `json:"max"`
}

// ConfigureSQLPool applies pool settings to a database/sql pool. Zero fields
// keep the defaults.
func ConfigureSQLPool(db *sql.DB, config *driver.PoolConfig) {
	defaults := driver.DefaultPoolConfig()
	if config == nil {
		config = defaults
	}
	maxConns := config.MaxConns
	if maxConns <= 0 {
		maxConns = defaults.MaxConns
	}
	minConns := config.MinConns
	if minConns <= 0 {
		minConns = defaults.MinConns
	}
	lifetime := config.MaxConnLifetime
	if lifetime <= 0 {
		lifetime = defaults.MaxConnLifetime
	}
	idle := config.MaxConnIdleTime
	if idle <= 0 {
		idle = defaults.MaxConnIdleTime
	}

	db.SetMaxOpenConns(int(maxConns))
	db.SetMaxIdleConns(int(min(minConns, maxConns)))
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idle)
}

// Stats returns pool statistics, or nil when the adapter exposes none
func Stats(db driver.DB) *PoolStats {
	if pg, ok := db.(*driver.PgxPoolAdapter); ok {
		s := pg.Pool().Stat()
		return &PoolStats{
			Open:  int(s.TotalConns()),
			Idle:  int(s.IdleConns()),
			InUse: int(s.AcquiredConns()),
			Max:   int(s.MaxConns()),
		}
	}
	sqlDB := db.SQLDB()
	if sqlDB == nil {
		return nil
	}
	s := sqlDB.Stats()
	return &PoolStats{
		Open:  s.OpenConnections,
		Idle:  s.Idle,
		InUse: s.InUse,
		Max:   s.MaxOpenConnections,
	}
}
