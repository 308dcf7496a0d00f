package eventlog

var eventTable = `CREATE TABLE IF NOT EXISTS event_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(32) NOT NULL,
	payload TEXT NOT NULL,
	createdAt INTEGER NOT NULL
);`
