// Package eventlog keeps the observations of committed bridge operations
// and fans them out to in-process observers.
package eventlog

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/state"
)

const (
	queryAppend = `INSERT INTO event_log (name, payload, createdAt) VALUES (?, ?, ?)`
	queryList   = `SELECT seq, name, payload, createdAt FROM event_log WHERE seq > ? ORDER BY seq LIMIT ?`
)

// Record is a persisted observation.
type Record struct {
	Seq       int64           `json:"seq"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Store struct {
	stmtCache *database.StmtCache
}

func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(eventTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryAppend, queryList); err != nil {
		return nil, err
	}
	return &Store{stmtCache: sc}, nil
}

func (s *Store) Close() {
	s.stmtCache.Clear()
}

// Append writes the observations buffered in b. It is meant to run as
// state.StateDB.BeforeCommit so the log commits with the operation.
func (s *Store) Append(b *state.Batch) error {
	events := b.Events()
	if len(events) == 0 {
		return nil
	}

	stmt, err := s.stmtCache.Tx(b.Tx(), queryAppend)
	if err != nil {
		return err
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(ev.EventName(), string(payload), b.Now().Unix()); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit records with a sequence number after afterSeq.
func (s *Store) List(b *state.Batch, afterSeq int64, limit int) ([]*Record, error) {
	stmt, err := s.stmtCache.Tx(b.Tx(), queryList)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r         Record
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&r.Seq, &r.Name, &payload, &createdAt); err != nil {
			return nil, err
		}
		r.Payload = json.RawMessage(payload)
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &r)
	}
	return records, rows.Err()
}
