package ledger

import "strings"

var (
	strZeroBytes20 = strings.Repeat("0", 40)

	// token balances, one row per (asset, account)
	balanceTable = `CREATE TABLE IF NOT EXISTS balance (
		asset VARCHAR(16) NOT NULL,
		account CHAR(40) NOT NULL,
		amount INTEGER NOT NULL,
		PRIMARY KEY (asset, account),
		CONSTRAINT chk_amount CHECK (amount >= 0)
	);`

	// tokens held by the bridge on behalf of a pending request
	escrowTable = `CREATE TABLE IF NOT EXISTS escrow (
		id CHAR(64) PRIMARY KEY NOT NULL,
		asset VARCHAR(16) NOT NULL,
		owner CHAR(40) NOT NULL,
		amount INTEGER NOT NULL,
		CONSTRAINT chk_amount CHECK (amount > 0),
		CONSTRAINT chk_owner CHECK (owner != '` + strZeroBytes20 + `')
	);`
)
