// Package inventory guards product stock. CheckAvailable is the cheap check
// used while building a cart; Reserve is the authoritative check-and-decrement
// run inside the checkout transaction.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"order-management-service/internal/apperr"
	"order-management-service/internal/products"
	"order-management-service/internal/stores/postgres"
)

// Line is a requested quantity of one product.
type Line struct {
	ProductID string
	Quantity  int
}

func CheckAvailable(p products.Product, quantity int) error {
	if p.Stock < quantity {
		return apperr.Newf(apperr.KindInsufficientStock,
			"Insufficient stock for %s: requested %d, available %d.", p.Name, quantity, p.Stock)
	}
	return nil
}

// Reserve locks every product in lines, verifies all of them, then decrements
// stock. Nothing is written unless every line can be satisfied. It returns the
// locked products keyed by id with their stock as it was before the decrement.
func Reserve(ctx context.Context, tx postgres.DBTX, lines []Line) (map[string]products.Product, error) {
	wanted := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Newf(apperr.KindValidation, "Quantity for product %s must be at least 1.", l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	catalog, err := products.ByIDs(ctx, tx, ids, true)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return nil, apperr.Newf(apperr.KindProductUnavailable, "Product %s is no longer available.", id)
		}
		if err := CheckAvailable(p, wanted[id]); err != nil {
			return nil, err
		}
	}

	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`,
			wanted[id], id)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n != 1 {
			return nil, apperr.Newf(apperr.KindInsufficientStock, "Insufficient stock for %s.", catalog[id].Name)
		}
	}
	return catalog, nil
}
