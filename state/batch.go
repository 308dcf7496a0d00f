package state

import (
	"database/sql"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
)

// Batch is the unit of work of one bridge operation. Every component reads
// and writes through the same sql transaction and buffers its observations
// here; the observations are only published once the transaction commits.
type Batch struct {
	tx     *sql.Tx
	now    time.Time
	events []agreement.Event
}

func NewBatch(tx *sql.Tx, now time.Time) *Batch {
	return &Batch{tx: tx, now: now}
}

func (b *Batch) Tx() *sql.Tx {
	return b.tx
}

// Now is the operation timestamp. It is fixed for the whole batch.
func (b *Batch) Now() time.Time {
	return b.now
}

func (b *Batch) Emit(ev agreement.Event) {
	b.events = append(b.events, ev)
}

func (b *Batch) Events() []agreement.Event {
	return b.events
}
