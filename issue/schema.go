package issue

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)

	// life cycle of an issue request
	issueTable = `CREATE TABLE IF NOT EXISTS issue_request (
		id CHAR(64) PRIMARY KEY NOT NULL,
		requester CHAR(40) NOT NULL,
		vaultId CHAR(40) NOT NULL,
		requested INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL,
		depositAddress VARCHAR(62) UNIQUE NOT NULL,
		createdAt INTEGER NOT NULL,
		status VARCHAR(10) NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		btcTxId CHAR(64),
		CONSTRAINT chk_status CHECK (status IN ('pending', 'completed', 'cancelled')),
		CONSTRAINT chk_amount CHECK (amount > 0 AND requested = amount + fee),
		CONSTRAINT chk_id CHECK (id != '` + strZeroBytes32 + `')
	);
	CREATE INDEX IF NOT EXISTS idx_issue_status ON issue_request (status, createdAt);`

	issueParamList = " id, requester, vaultId, requested, amount, fee, depositAddress, createdAt, status, paid, btcTxId "
)
