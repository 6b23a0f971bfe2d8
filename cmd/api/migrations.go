// cmd/api/migrations.go
// Schema bootstrap run at startup. Statements are idempotent so the
// server can start against a fresh or an existing database.

package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         VARCHAR(64) NOT NULL UNIQUE,
		username      VARCHAR(64) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL,
		confirmed     BOOLEAN NOT NULL DEFAULT FALSE,
		name          VARCHAR(64),
		location      VARCHAR(64),
		about_me      TEXT,
		member_since  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		avatar_hash   VARCHAR(32) NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_search
		ON users USING GIN (to_tsvector('simple', username || ' ' || COALESCE(name, '')))`,

	`CREATE TABLE IF NOT EXISTS relationships (
		requester_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		addressee_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		relationship_type VARCHAR(10) NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (requester_id, addressee_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_relationships_addressee
		ON relationships (addressee_id)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id           UUID PRIMARY KEY,
		sender_id    BIGINT REFERENCES users(id) ON DELETE SET NULL,
		recipient_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// One conversation per unordered pair
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair
		ON conversations (LEAST(sender_id, recipient_id), GREATEST(sender_id, recipient_id))`,

	`CREATE TABLE IF NOT EXISTS messages (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id       BIGINT REFERENCES users(id) ON DELETE SET NULL,
		body            TEXT NOT NULL,
		read            TIMESTAMPTZ,
		deleted_by      BIGINT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at DESC)`,
}

func runMigrations(db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
