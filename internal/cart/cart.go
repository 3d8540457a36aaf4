package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"order-management-service/internal/apperr"
	"order-management-service/internal/inventory"
	"order-management-service/internal/products"
	"order-management-service/internal/stores/postgres"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func validateItems(items []NewItem) error {
	if len(items) == 0 {
		return apperr.New(apperr.KindValidation, "Items are required.")
	}
	for _, it := range items {
		if it.ProductID == "" {
			return apperr.New(apperr.KindValidation, "Each item needs a productId.")
		}
		if it.Quantity <= 0 {
			return apperr.Newf(apperr.KindValidation, "Quantity for product %s must be at least 1.", it.ProductID)
		}
	}
	return nil
}

// AddItems merges items into the customer's cart, creating the cart on first
// use. Re-adding a product sums the quantities and the combined amount is
// checked against stock.
func (c *Conf) AddItems(ctx context.Context, userID string, items []NewItem) (View, error) {
	if err := validateItems(items); err != nil {
		return View{}, err
	}

	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		// Upsert so concurrent first adds agree on one cart row, and hold its lock.
		var cartID string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO cart (id, user_id, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
			RETURNING id`, uuid.NewString(), userID).Scan(&cartID)
		if err != nil {
			return fmt.Errorf("failed to get or create cart: %w", err)
		}

		existing, err := loadItems(ctx, tx, cartID)
		if err != nil {
			return err
		}
		byProduct := make(map[string]Item, len(existing))
		for _, it := range existing {
			byProduct[it.ProductID] = it
		}

		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		catalog, err := products.ByIDs(ctx, tx, ids, false)
		if err != nil {
			return err
		}

		for _, it := range items {
			p, ok := catalog[it.ProductID]
			if !ok {
				return apperr.Newf(apperr.KindNotFound, "Product %s not found.", it.ProductID)
			}

			current, inCart := byProduct[it.ProductID]
			newQuantity := current.Quantity + it.Quantity
			if err := inventory.CheckAvailable(p, newQuantity); err != nil {
				return err
			}

			if inCart {
				_, err = tx.ExecContext(ctx,
					`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2`,
					newQuantity, current.ID)
				if err != nil {
					return fmt.Errorf("failed to update cart item quantity: %w", err)
				}
			} else {
				current = Item{ID: uuid.NewString(), ProductID: it.ProductID}
				_, err = tx.ExecContext(ctx,
					`INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
					current.ID, cartID, it.ProductID, newQuantity)
				if err != nil {
					return fmt.Errorf("failed to add product to cart: %w", err)
				}
			}
			current.Quantity = newQuantity
			byProduct[it.ProductID] = current
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.GetCart(ctx, userID)
}

// GetCart returns the customer's cart joined with live product data, or an
// empty view when the customer has no cart.
func (c *Conf) GetCart(ctx context.Context, userID string) (View, error) {
	cart, err := loadCart(ctx, c.db, userID)
	if err != nil {
		return View{}, err
	}
	if cart == nil {
		return Compose(userID, nil, nil), nil
	}

	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	catalog, err := products.ByIDs(ctx, c.db, ids, false)
	if err != nil {
		return View{}, err
	}
	return Compose(userID, cart, catalog), nil
}

// UpdateQuantity replaces the quantity of one line. Stock is not re-checked
// here; checkout validates it again.
func (c *Conf) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (View, error) {
	if quantity < 1 {
		return View{}, apperr.New(apperr.KindValidation, "Quantity must be at least 1.")
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE cart_items ci SET quantity = $1, updated_at = NOW()
		FROM cart c
		WHERE ci.cart_id = c.id AND c.user_id = $2 AND ci.id = $3`,
		quantity, userID, itemID)
	if err != nil {
		return View{}, fmt.Errorf("failed to update cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return View{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return View{}, apperr.New(apperr.KindNotFound, "Cart item not found.")
	}
	return c.GetCart(ctx, userID)
}

// RemoveItem drops the line for productID. Removing an absent product is not
// an error.
func (c *Conf) RemoveItem(ctx context.Context, userID, productID string) (View, error) {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM cart_items ci
		USING cart c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2`,
		userID, productID)
	if err != nil {
		return View{}, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return c.GetCart(ctx, userID)
}

func (c *Conf) Clear(ctx context.Context, userID string) error {
	return ClearTx(ctx, c.db, userID)
}

// ClearTx deletes the customer's cart and, by cascade, its items. Checkout
// calls it with its own transaction.
func ClearTx(ctx context.Context, q postgres.DBTX, userID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func loadCart(ctx context.Context, q postgres.DBTX, userID string) (*Cart, error) {
	var cart Cart
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM cart WHERE user_id = $1`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	cart.Items, err = loadItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func loadItems(ctx context.Context, q postgres.DBTX, cartID string) ([]Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}
