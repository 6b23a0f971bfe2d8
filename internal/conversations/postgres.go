// internal/conversations/postgres.go

package conversations

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when a concurrent
// create loses the unordered-pair uniqueness race
const uniqueViolation = "23505"

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateWithFirstMessage(ctx context.Context, conv *Conversation, msg *Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	convQuery := `
        INSERT INTO conversations (id, sender_id, recipient_id)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	err = tx.QueryRowContext(ctx, convQuery, conv.ID, conv.SenderID, conv.RecipientID).
		Scan(&conv.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConversationExists
		}
		return err
	}

	msgQuery := `
        INSERT INTO messages (id, conversation_id, sender_id, body)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	err = tx.QueryRowContext(ctx, msgQuery, msg.ID, msg.ConversationID, msg.SenderID, msg.Body).
		Scan(&msg.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `
        SELECT id, sender_id, recipient_id, created_at
        FROM conversations
        WHERE id = $1`

	var conv Conversation
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID int64) ([]*Conversation, error) {
	query := `
        SELECT id, sender_id, recipient_id, created_at
        FROM conversations
        WHERE sender_id = $1 OR recipient_id = $1
        ORDER BY created_at`

	var convs []*Conversation
	if err := r.db.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *postgresRepository) PairExists(ctx context.Context, a, b int64) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM conversations
            WHERE (sender_id = $1 AND recipient_id = $2)
               OR (sender_id = $2 AND recipient_id = $1)
        )`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, a, b).Scan(&exists)
	return exists, err
}

// DeleteCascade removes messages before the conversation row so the
// cascade does not depend on storage-engine foreign key behavior
func (r *postgresRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) PeerIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
        SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END
        FROM conversations
        WHERE sender_id = $1 OR recipient_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []int64
	for rows.Next() {
		var peer sql.NullInt64
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		if peer.Valid {
			peers = append(peers, peer.Int64)
		}
	}

	return peers, rows.Err()
}

func (r *postgresRepository) CreateMessage(ctx context.Context, msg *Message) error {
	query := `
        INSERT INTO messages (id, conversation_id, sender_id, body)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	return r.db.QueryRowContext(ctx, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Body).
		Scan(&msg.CreatedAt)
}

func (r *postgresRepository) GetMessagesByIDs(ctx context.Context, ids []uuid.UUID) ([]Message, error) {
	query := `
        SELECT id, conversation_id, sender_id, body, read, created_at, deleted_by
        FROM messages
        WHERE id = ANY($1)`

	var msgs []Message
	if err := r.db.SelectContext(ctx, &msgs, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *postgresRepository) ListMessages(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) ([]Message, error) {
	var msgs []Message
	var err error

	if before != nil {
		query := `
            SELECT id, conversation_id, sender_id, body, read, created_at, deleted_by
            FROM messages
            WHERE conversation_id = $1
              AND created_at < $2
              AND (deleted_by IS NULL OR deleted_by <> $3)
            ORDER BY created_at DESC
            LIMIT $4`
		err = r.db.SelectContext(ctx, &msgs, query, convID, *before, requesterID, limit)
	} else {
		query := `
            SELECT id, conversation_id, sender_id, body, read, created_at, deleted_by
            FROM messages
            WHERE conversation_id = $1
              AND (deleted_by IS NULL OR deleted_by <> $2)
            ORDER BY created_at DESC
            LIMIT $3`
		err = r.db.SelectContext(ctx, &msgs, query, convID, requesterID, limit)
	}

	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *postgresRepository) CountMessages(ctx context.Context, convID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, convID).Scan(&count)
	return count, err
}

func (r *postgresRepository) MarkRead(ctx context.Context, ids []uuid.UUID, readAt time.Time) error {
	query := `UPDATE messages SET read = $1 WHERE id = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, readAt, pq.Array(ids))
	return err
}

func (r *postgresRepository) ApplyDeletions(ctx context.Context, userID int64, markIDs, destroyIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(markIDs) > 0 {
		query := `UPDATE messages SET deleted_by = $1 WHERE id = ANY($2)`
		if _, err := tx.ExecContext(ctx, query, userID, pq.Array(markIDs)); err != nil {
			return err
		}
	}

	if len(destroyIDs) > 0 {
		query := `DELETE FROM messages WHERE id = ANY($1)`
		if _, err := tx.ExecContext(ctx, query, pq.Array(destroyIDs)); err != nil {
			return err
		}
	}

	return tx.Commit()
}
