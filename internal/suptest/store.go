package suptest

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout keeps fractional seconds fixed-width so string comparison of
// timestamps stays chronological, like the real store's output.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// jsonColumns are stored as serialized text and surfaced as raw JSON.
var jsonColumns = map[string]map[string]bool{
	"messages":    {"attachments": true},
	"dm_messages": {"attachments": true},
	"roles":       {"permissions": true},
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS auth_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password BLOB NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		avatar_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'online',
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon_url TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'text',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		attachments TEXT,
		FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '#99aab5',
		permissions TEXT NOT NULL DEFAULT '{}',
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS server_members (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role_id TEXT,
		joined_at TEXT NOT NULL,
		UNIQUE (server_id, user_id),
		FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE SET NULL
	);`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		friend_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		UNIQUE (user_id, friend_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (friend_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS direct_messages (
		id TEXT PRIMARY KEY,
		user1_id TEXT NOT NULL,
		user2_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user1_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (user2_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS dm_messages (
		id TEXT PRIMARY KEY,
		dm_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		attachments TEXT,
		FOREIGN KEY (dm_id) REFERENCES direct_messages(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
}

func openStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps the in-process store serialized, like the
	// single-writer sqlite it is
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// clock hands out strictly increasing timestamps so rows inserted in the
// same microsecond still order deterministically.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := time.Now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t.Format(timeLayout)
}
