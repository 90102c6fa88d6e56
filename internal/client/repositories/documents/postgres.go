package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
)

// Channel is the NOTIFY channel raised by the vault_items trigger.
const Channel = "vault_items_changed"

type Repository interface {
	Upsert(ctx context.Context, item models.Item) (models.Item, error)
	SelectAll(ctx context.Context) ([]models.Item, error)
	DeleteByID(ctx context.Context, id string) error
}

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the item by id and returns it with UpdatedAt set to the
// server-side timestamp. Inline payload bytes are never written.
func (r *PostgresRepository) Upsert(ctx context.Context, item models.Item) (models.Item, error) {
	query := `
		INSERT INTO vault_items (id, kind, content, name, byte_size, media_type, payload_ref, is_important, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id)
		DO UPDATE SET
			content = EXCLUDED.content,
			name = EXCLUDED.name,
			byte_size = EXCLUDED.byte_size,
			media_type = EXCLUDED.media_type,
			payload_ref = EXCLUDED.payload_ref,
			is_important = EXCLUDED.is_important,
			updated_at = now()
		RETURNING updated_at
	`
	var updated time.Time
	err := r.db.QueryRowContext(ctx, query,
		item.ID, string(item.Kind), item.Content, item.Name, item.ByteSize, item.MediaType,
		item.Payload.Ref, item.IsImportant, item.CreatedAt.UTC(),
	).Scan(&updated)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to upsert document %s: %w", item.ID, err)
	}
	item.UpdatedAt = updated.UTC()
	return item, nil
}

// SelectAll returns every document ordered by id descending.
func (r *PostgresRepository) SelectAll(ctx context.Context) ([]models.Item, error) {
	query := `
		SELECT id, kind, content, name, byte_size, media_type, payload_ref, is_important, created_at, updated_at
		FROM vault_items
		ORDER BY id DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []models.Item{}
	for rows.Next() {
		var (
			it               models.Item
			kind             string
			created, updated time.Time
		)
		if err := rows.Scan(&it.ID, &kind, &it.Content, &it.Name, &it.ByteSize, &it.MediaType,
			&it.Payload.Ref, &it.IsImportant, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		it.Kind = models.Kind(kind)
		it.IsRemote = it.Kind == models.KindFile
		it.CreatedAt = created.UTC()
		it.UpdatedAt = updated.UTC()
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document rows: %w", err)
	}
	return result, nil
}

// DeleteByID removes the document. Deleting an absent id is not an error.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vault_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}
