package items

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
)

type Repository interface {
	ReplaceAll(ctx context.Context, items []models.Item) error
	ReadAll(ctx context.Context) ([]models.Item, error)
	Count(ctx context.Context) (int, error)
	Usage(ctx context.Context) (models.Usage, error)
}
