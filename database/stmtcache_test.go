package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStmtCacheTx(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	assert.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (k TEXT PRIMARY KEY, v INTEGER)`)
	assert.NoError(t, err)

	sc := NewStmtCache(db)
	defer sc.Clear()
	insert := `INSERT INTO t (k, v) VALUES (?, ?)`
	assert.NoError(t, sc.Warm(insert))

	tx, err := db.Begin()
	assert.NoError(t, err)

	stmt, err := sc.Tx(tx, insert)
	assert.NoError(t, err)
	_, err = stmt.Exec("a", 1)
	assert.NoError(t, err)

	// not warmed, prepared on the tx itself
	stmt, err = sc.Tx(tx, `SELECT v FROM t WHERE k = ?`)
	assert.NoError(t, err)
	var v int
	assert.NoError(t, stmt.QueryRow("a").Scan(&v))
	assert.Equal(t, 1, v)

	assert.NoError(t, tx.Rollback())

	var n int
	assert.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 0, n)
}
