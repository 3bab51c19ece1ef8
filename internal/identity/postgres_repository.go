package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// GetOrCreate is a single-statement upsert. The unique constraint on
// (table_name, external_key) makes concurrent first-references converge on
// one row; there is no read-then-write window. DO UPDATE (not DO NOTHING)
// matters: a conflicting insert that lost the race to a just-committed row
// still locks that row and returns it, whereas a chained SELECT would read
// from a snapshot predating the winner's commit and come back empty.
// xmax = 0 distinguishes a freshly inserted row from an updated one.
func (r *postgresRepository) GetOrCreate(ctx context.Context, table, externalKey string) (Resolution, error) {
	query := `
		INSERT INTO identity_mappings (id, table_name, external_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_name, external_key) DO UPDATE
		SET external_key = EXCLUDED.external_key
		RETURNING id, (xmax = 0) AS created`

	var res Resolution
	err := r.db.QueryRowContext(ctx, query, uuid.New(), table, externalKey).
		Scan(&res.LocalID, &res.Created)
	if err != nil {
		return Resolution{}, fmt.Errorf("get or create mapping (%s, %s): %w", table, externalKey, err)
	}
	return res, nil
}

func (r *postgresRepository) ExternalKey(ctx context.Context, table, localID string) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`SELECT external_key FROM identity_mappings WHERE table_name = $1 AND id = $2`,
		table, localID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMappingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query external key: %w", err)
	}
	return key, nil
}
