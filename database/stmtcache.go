package database

import (
	"database/sql"
	"sync"
)

// to cache prepared sql statement, which maps query string to stmt.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.Prepare(query)
		if err != nil {
			return nil, err
		}
		sc.m.Store(query, stmt)
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

func (sc *StmtCache) MustPrepare(query string) *sql.Stmt {
	stmt, err := sc.Prepare(query)
	if err != nil {
		panic(err)
	}
	return stmt
}

// Warm prepares all queries up front. Statements must be cached before a
// transaction is opened, otherwise Tx falls back to an uncached prepare.
func (sc *StmtCache) Warm(queries ...string) error {
	for _, q := range queries {
		if _, err := sc.Prepare(q); err != nil {
			return err
		}
	}
	return nil
}

// Tx returns a statement bound to tx. A cached statement is rebound to the
// connection held by tx; an unknown query is prepared on tx directly and is
// released when tx ends.
func (sc *StmtCache) Tx(tx *sql.Tx, query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		return tx.Prepare(query)
	}
	return tx.Stmt(cached.(*sql.Stmt)), nil
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
