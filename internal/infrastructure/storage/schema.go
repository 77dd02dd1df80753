package storage

// Schema per driver. Statements run one by one on Open; every statement is
// idempotent so restarting against an existing database is safe.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author TEXT NOT NULL,
		title TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS article_reviewers (
		article_id INTEGER NOT NULL,
		principal TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (article_id, principal)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		article_id INTEGER NOT NULL,
		reviewer TEXT NOT NULL,
		decision TEXT NOT NULL,
		comments TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (article_id, reviewer)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		principal TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		expertise TEXT NOT NULL DEFAULT '',
		reputation INTEGER NOT NULL DEFAULT 0,
		reviewing_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recipient TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient)`,
	`CREATE TABLE IF NOT EXISTS change_feed (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO change_feed (id, version) VALUES (1, 0)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		author TEXT NOT NULL,
		title TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS article_reviewers (
		article_id BIGINT NOT NULL,
		principal TEXT NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (article_id, principal)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		article_id BIGINT NOT NULL,
		reviewer TEXT NOT NULL,
		decision TEXT NOT NULL,
		comments TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (article_id, reviewer)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		principal TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		expertise TEXT NOT NULL DEFAULT '',
		reputation INT NOT NULL DEFAULT 0,
		reviewing_count INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		recipient TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient)`,
	`CREATE TABLE IF NOT EXISTS change_feed (
		id INT PRIMARY KEY CHECK (id = 1),
		version BIGINT NOT NULL
	)`,
	`INSERT INTO change_feed (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
}
