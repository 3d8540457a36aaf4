package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"order-management-service/internal/apperr"
	"order-management-service/internal/stores/postgres"
)

const foreignKeyViolation = "23503"

// InsertProduct adds a product owned by staffID.
func (c *Conf) InsertProduct(ctx context.Context, staffID string, np NewProduct) (Product, error) {
	category, err := ParseCategory(np.Category)
	if err != nil {
		return Product{}, apperr.Wrap(apperr.KindValidation, err, "Unknown category.")
	}

	p := Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
		Category:    category,
		StaffID:     staffID,
	}
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, stock, category, staff_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, string(p.Category), p.StaffID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies the set fields of up. Only the owning staff member may
// change a product.
func (c *Conf) UpdateProduct(ctx context.Context, staffID, id string, up UpdateProduct) (Product, error) {
	var p Product
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var err error
		p, err = ownedForUpdate(ctx, tx, staffID, id)
		if err != nil {
			return err
		}

		if up.Name != nil {
			p.Name = *up.Name
		}
		if up.Description != nil {
			p.Description = *up.Description
		}
		if up.Price != nil {
			p.Price = *up.Price
		}
		if up.Stock != nil {
			p.Stock = *up.Stock
		}
		if up.Category != nil {
			category, err := ParseCategory(*up.Category)
			if err != nil {
				return apperr.Wrap(apperr.KindValidation, err, "Unknown category.")
			}
			p.Category = category
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE products
			SET name = $1, description = $2, price = $3, stock = $4, category = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING updated_at`,
			p.Name, p.Description, p.Price, p.Stock, string(p.Category), p.ID).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product that no order references.
func (c *Conf) DeleteProduct(ctx context.Context, staffID, id string) error {
	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := ownedForUpdate(ctx, tx, staffID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to remove product from carts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return apperr.Wrap(apperr.KindConflict, err, "Product appears in orders and cannot be deleted.")
			}
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

func ownedForUpdate(ctx context.Context, tx *sql.Tx, staffID, id string) (Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, selectProduct+" WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperr.Wrap(apperr.KindNotFound, err, "Product not found.")
		}
		return Product{}, err
	}
	if p.StaffID != staffID {
		return Product{}, apperr.New(apperr.KindAuthorization, "You can only change your own products.")
	}
	return p, nil
}
