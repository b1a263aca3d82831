package menu

import (
	"context"
	"database/sql"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

// MenuRepository reads and seeds the catalog in PostgreSQL.
type MenuRepository struct {
	db *sql.DB
}

func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, image, category
		FROM menu_items
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Image, &item.Category); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Upsert inserts or replaces catalog entries by id in one transaction.
func (r *MenuRepository) Upsert(ctx context.Context, items []domain.MenuItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, name, description, price, image, category)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    price = EXCLUDED.price,
			    image = EXCLUDED.image,
			    category = EXCLUDED.category
		`, item.ID, item.Name, item.Description, item.Price, item.Image, item.Category)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
