package items

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
)

// DB is satisfied by *sql.DB.
type DB interface {
	dbx.DBTX
	dbx.TxBeginner
}

type SQLiteRepository struct {
	db DB
}

func NewSQLiteRepository(db DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const insertItem = `
	INSERT INTO items (id, position, kind, content, name, byte_size, media_type,
		payload, payload_ref, is_remote, is_important, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, items []models.Item) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		for pos, it := range items {
			var payload []byte
			if it.HasInlinePayload() {
				payload = it.Payload.Inline
				if payload == nil {
					payload = []byte{}
				}
			}
			_, err := tx.ExecContext(ctx, insertItem,
				it.ID, pos, string(it.Kind), it.Content, it.Name, it.ByteSize, it.MediaType,
				payload, it.Payload.Ref, it.IsRemote, it.IsImportant,
				toUnix(it.CreatedAt), toUnix(it.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert item %s: %w", it.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace items: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, content, name, byte_size, media_type, payload, payload_ref,
			is_remote, is_important, created_at, updated_at
		FROM items
		ORDER BY created_at DESC, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := []models.Item{}
	for rows.Next() {
		var (
			it               models.Item
			kind             string
			payload          []byte
			created, updated int64
		)
		err := rows.Scan(&it.ID, &kind, &it.Content, &it.Name, &it.ByteSize, &it.MediaType,
			&payload, &it.Payload.Ref, &it.IsRemote, &it.IsImportant, &created, &updated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		it.Kind = models.Kind(kind)
		it.CreatedAt = fromUnix(created)
		it.UpdatedAt = fromUnix(updated)
		if it.HasInlinePayload() {
			if payload == nil {
				payload = []byte{}
			}
			it.Payload.Inline = payload
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// Usage reports the bytes held locally: note text plus inline file payloads.
// Files promoted to the blob store only cost their reference.
func (r *SQLiteRepository) Usage(ctx context.Context) (models.Usage, error) {
	var u models.Usage
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(length(CAST(content AS BLOB)) + COALESCE(length(payload), 0) + length(payload_ref)), 0)
		FROM items`).Scan(&u.Items, &u.Bytes)
	if err != nil {
		return models.Usage{}, fmt.Errorf("failed to compute usage: %w", err)
	}
	return u, nil
}
