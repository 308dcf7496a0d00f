package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a sqlite database at path. ":memory:" gives a private
// in-memory database.
//
// The pool is limited to one connection: sqlite allows a single writer and
// an in-memory database is only visible to the connection that created it.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
