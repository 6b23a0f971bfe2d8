// internal/users/postgres.go

package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, username, password_hash, confirmed, name, member_since, last_seen, avatar_hash)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), $6)
		RETURNING id, member_since, last_seen`

	return r.db.QueryRowxContext(ctx, query,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Confirmed,
		user.Name,
		user.AvatarHash,
	).Scan(&user.ID, &user.MemberSince, &user.LastSeen)
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = $1`, username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	return taken, err
}

func (r *postgresRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	return taken, err
}

func (r *postgresRepository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, location = $3, about_me = $4, last_seen = $5
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Location, user.AboutMe, user.LastSeen)
	return err
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	return err
}

func (r *postgresRepository) Confirm(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET confirmed = TRUE WHERE id = $1`, userID)
	return err
}

func (r *postgresRepository) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, userID, at)
	return err
}

func (r *postgresRepository) GetSummariesByIDs(ctx context.Context, ids []int64, private bool) ([]Summary, error) {
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	var rows []User
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*User, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	// Preserve caller order, drop unknown ids
	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			summaries = append(summaries, u.ToSummary(private))
		}
	}

	return summaries, nil
}

func (r *postgresRepository) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	sqlQuery := `
		SELECT * FROM users
		WHERE to_tsvector('simple', username || ' ' || COALESCE(name, '')) @@ plainto_tsquery('simple', $1)
		   OR username ILIKE $2
		ORDER BY username
		LIMIT $3`

	var rows []User
	err := r.db.SelectContext(ctx, &rows, sqlQuery, query, query+"%", limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, rows[i].ToSummary(false))
	}

	return summaries, nil
}

// DeleteCascade removes the account inside one transaction. The user's
// relationship edges go first, then the user is detached from its
// conversation sides; a conversation whose both sides are gone is
// destroyed with its messages. Messages the user sent into surviving
// conversations stay with a null sender.
func (r *postgresRepository) DeleteCascade(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		query string
		args  []interface{}
	}{
		{`DELETE FROM relationships WHERE requester_id = $1 OR addressee_id = $1`, []interface{}{userID}},
		{`UPDATE messages SET sender_id = NULL WHERE sender_id = $1`, []interface{}{userID}},
		{`UPDATE conversations SET sender_id = NULL WHERE sender_id = $1`, []interface{}{userID}},
		{`UPDATE conversations SET recipient_id = NULL WHERE recipient_id = $1`, []interface{}{userID}},
		{`DELETE FROM messages WHERE conversation_id IN (
			SELECT id FROM conversations WHERE sender_id IS NULL AND recipient_id IS NULL)`, nil},
		{`DELETE FROM conversations WHERE sender_id IS NULL AND recipient_id IS NULL`, nil},
		{`DELETE FROM users WHERE id = $1`, []interface{}{userID}},
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
	}

	return tx.Commit()
}
