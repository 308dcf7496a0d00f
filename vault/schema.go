package vault

import "strings"

var (
	strZeroBytes20 = strings.Repeat("0", 40)

	vaultTable = `CREATE TABLE IF NOT EXISTS vault (
		id CHAR(40) PRIMARY KEY NOT NULL,
		pubKey CHAR(130) NOT NULL,
		collateral INTEGER NOT NULL,
		issued INTEGER NOT NULL,
		toBeIssued INTEGER NOT NULL,
		toBeRedeemed INTEGER NOT NULL,
		createdAt INTEGER NOT NULL,
		CONSTRAINT chk_id CHECK (id != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_counters CHECK (collateral >= 0 AND issued >= 0 AND toBeIssued >= 0 AND toBeRedeemed >= 0)
	);`

	vaultParamList = " id, pubKey, collateral, issued, toBeIssued, toBeRedeemed, createdAt "
)
