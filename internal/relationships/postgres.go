// internal/relationships/postgres.go

package relationships

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ListBetween(ctx context.Context, a, b int64) ([]Relationship, error) {
	query := `
        SELECT requester_id, addressee_id, relationship_type, created_at
        FROM relationships
        WHERE (requester_id = $1 AND addressee_id = $2)
           OR (requester_id = $2 AND addressee_id = $1)`

	var edges []Relationship
	if err := r.db.SelectContext(ctx, &edges, query, a, b); err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *postgresRepository) ListFriendEdges(ctx context.Context, userID int64) ([]Relationship, error) {
	query := `
        SELECT requester_id, addressee_id, relationship_type, created_at
        FROM relationships
        WHERE (requester_id = $1 OR addressee_id = $1)
          AND relationship_type = 'FRIEND'`

	var edges []Relationship
	if err := r.db.SelectContext(ctx, &edges, query, userID); err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *postgresRepository) Create(ctx context.Context, rel *Relationship) error {
	query := `
        INSERT INTO relationships (requester_id, addressee_id, relationship_type)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	return r.db.QueryRowContext(ctx, query, rel.RequesterID, rel.AddresseeID, rel.Type).
		Scan(&rel.CreatedAt)
}

func (r *postgresRepository) DeleteBetween(ctx context.Context, a, b int64) error {
	query := `
        DELETE FROM relationships
        WHERE (requester_id = $1 AND addressee_id = $2)
           OR (requester_id = $2 AND addressee_id = $1)`

	_, err := r.db.ExecContext(ctx, query, a, b)
	return err
}

func (r *postgresRepository) ReplaceWithBlock(ctx context.Context, requesterID, addresseeID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	deleteQuery := `
        DELETE FROM relationships
        WHERE (requester_id = $1 AND addressee_id = $2)
           OR (requester_id = $2 AND addressee_id = $1)`

	if _, err := tx.ExecContext(ctx, deleteQuery, requesterID, addresseeID); err != nil {
		return err
	}

	insertQuery := `
        INSERT INTO relationships (requester_id, addressee_id, relationship_type)
        VALUES ($1, $2, 'BLOCK')`

	if _, err := tx.ExecContext(ctx, insertQuery, requesterID, addresseeID); err != nil {
		return err
	}

	return tx.Commit()
}
