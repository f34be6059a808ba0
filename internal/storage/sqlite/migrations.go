package sqlite

import "database/sql"

// schema sets up the client state tables. Each table holds a single row
// (id = 1): the client stores one session, one preference set and one rate
// table, mirroring the keyed blobs the browser client kept in localStorage.
const schema = `
CREATE TABLE IF NOT EXISTS session (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    user_json TEXT NOT NULL,
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    token_type TEXT NOT NULL DEFAULT 'bearer',
    saved_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    display_currency TEXT NOT NULL,
    theme TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rates (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    fetched_at INTEGER NOT NULL,
    base TEXT NOT NULL,
    rates_json TEXT NOT NULL,
    last_updated TEXT NOT NULL
);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
