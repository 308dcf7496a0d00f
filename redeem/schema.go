package redeem

var (
	redeemTable = `CREATE TABLE IF NOT EXISTS redeem_request (
		id CHAR(64) PRIMARY KEY NOT NULL,
		requester CHAR(40) NOT NULL,
		vaultId CHAR(40) NOT NULL,
		requested INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL,
		btcAddress VARCHAR(62) NOT NULL,
		createdAt INTEGER NOT NULL,
		period INTEGER NOT NULL,
		status VARCHAR(10) NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		btcTxId CHAR(64),
		CONSTRAINT chk_status CHECK (status IN ('pending', 'completed', 'cancelled')),
		CONSTRAINT chk_amount CHECK (amount > 0 AND requested = amount + fee)
	);
	CREATE INDEX IF NOT EXISTS idx_redeem_expiry ON redeem_request (status, createdAt + period);`

	redeemParamList = " id, requester, vaultId, requested, amount, fee, btcAddress, createdAt, period, status, paid, btcTxId "
)
