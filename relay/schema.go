package relay

// header of every main chain block the relay knows, by height
var headerTable = `CREATE TABLE IF NOT EXISTS btc_header (
	height INTEGER PRIMARY KEY NOT NULL,
	hash CHAR(64) UNIQUE NOT NULL,
	header BLOB NOT NULL,
	CONSTRAINT chk_height CHECK (height >= 0),
	CONSTRAINT chk_header CHECK (length(header) = 80)
);`
