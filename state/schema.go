package state

// table stores key-value pairs. Both key and value are a 32-byte hex string without prefix '0x'
var kvTable = `CREATE TABLE IF NOT EXISTS kv (
	key CHAR(64) PRIMARY KEY NOT NULL,
	value CHAR(64) NOT NULL
);`
