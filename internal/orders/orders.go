package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"order-management-service/internal/apperr"
	"order-management-service/internal/cart"
	"order-management-service/internal/inventory"
	"order-management-service/internal/products"
	"order-management-service/internal/scope"
	"order-management-service/internal/stores/postgres"
	"order-management-service/internal/users"
)

const selectOrder = `SELECT id, customer_id, status, locked, payment_collected, created_at, updated_at FROM orders`

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// mergeItems validates checkout lines and folds repeated products into one
// line, keeping first-seen order.
func mergeItems(items []NewItem) ([]inventory.Line, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "Items array is required and cannot be empty.")
	}
	index := make(map[string]int, len(items))
	lines := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, apperr.New(apperr.KindValidation, "Each item must have productId and quantity.")
		}
		if it.Quantity <= 0 {
			return nil, apperr.Newf(apperr.KindValidation, "Quantity for product %s must be at least 1.", it.ProductID)
		}
		if i, ok := index[it.ProductID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(lines)
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}

// CreateOrder checks out items for customerID. Stock is reserved, the order
// and its lines are written and the customer's cart is removed in a single
// transaction. New orders are PLACED and locked.
func (c *Conf) CreateOrder(ctx context.Context, customerID string, items []NewItem) (View, error) {
	lines, err := mergeItems(items)
	if err != nil {
		return View{}, err
	}

	var view View
	err = postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		catalog, err := inventory.Reserve(ctx, tx, lines)
		if err != nil {
			return err
		}

		o := Order{
			ID:         uuid.NewString(),
			CustomerID: customerID,
			Status:     StatusPlaced,
			Locked:     true,
			Items:      make([]Item, 0, len(lines)),
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (id, customer_id, status, locked, payment_collected, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, FALSE, NOW(), NOW())
			RETURNING created_at, updated_at`,
			o.ID, o.CustomerID, string(o.Status)).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i, l := range lines {
			p := catalog[l.ProductID]
			it := Item{Position: i + 1, ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: p.Price}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, position, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`,
				o.ID, it.Position, it.ProductID, it.Quantity, it.UnitPrice)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			o.Items = append(o.Items, it)

			// reflect the decrement in the returned view
			p.Stock -= l.Quantity
			catalog[l.ProductID] = p
		}

		if err := cart.ClearTx(ctx, tx, customerID); err != nil {
			return err
		}

		customers, err := customersByID(ctx, tx, []string{customerID})
		if err != nil {
			return err
		}
		view = Compose(o, customers, catalog, "")
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (c *Conf) ListForCustomer(ctx context.Context, customerID string) ([]View, error) {
	list, err := loadOrders(ctx, c.db, selectOrder+" WHERE customer_id = $1 ORDER BY created_at DESC, id", customerID)
	if err != nil {
		return nil, err
	}
	return c.composeAll(ctx, list, "")
}

func (c *Conf) GetForCustomer(ctx context.Context, customerID, orderID string) (View, error) {
	o, err := loadOrder(ctx, c.db, orderID, false)
	if err != nil {
		return View{}, err
	}
	if o.CustomerID != customerID {
		return View{}, apperr.New(apperr.KindAuthorization, "You do not have access to this order.")
	}
	views, err := c.composeAll(ctx, []Order{o}, "")
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// ListForStaff returns every order containing at least one product owned by
// staffID. Each order carries its full item list with ownership marked.
func (c *Conf) ListForStaff(ctx context.Context, staffID string) ([]View, error) {
	list, err := loadOrders(ctx, c.db, selectOrder+` o WHERE EXISTS (
		SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = o.id AND p.staff_id = $1
	) ORDER BY o.created_at DESC, o.id`, staffID)
	if err != nil {
		return nil, err
	}
	return c.composeAll(ctx, list, staffID)
}

func (c *Conf) DetailForStaff(ctx context.Context, staffID, orderID string) (StaffDetail, error) {
	o, err := loadOrder(ctx, c.db, orderID, false)
	if err != nil {
		return StaffDetail{}, err
	}
	catalog, err := products.ByIDs(ctx, c.db, o.productIDs(), false)
	if err != nil {
		return StaffDetail{}, err
	}
	customers, err := customersByID(ctx, c.db, []string{o.CustomerID})
	if err != nil {
		return StaffDetail{}, err
	}
	return ComposeStaffDetail(o, customers, catalog, staffID)
}

// UpdateStatus moves an order along the status graph on behalf of a staff
// member who owns at least one of its products. Locked orders are rejected
// whatever the requested status.
func (c *Conf) UpdateStatus(ctx context.Context, staffID, orderID, status string) (StaffSummary, error) {
	return c.mutate(ctx, staffID, orderID, func(tx *sql.Tx, o *Order) error {
		if o.Locked {
			return apperr.New(apperr.KindOrderLocked, "Cannot update status of a locked order. Please unlock the order first.")
		}
		next, err := ParseStatus(status)
		if err != nil {
			return err
		}
		if err := CanTransition(o.Status, next); err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
			string(next), o.ID).Scan(&o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		o.Status = next
		return nil
	})
}

// Lock is idempotent and allowed in every status.
func (c *Conf) Lock(ctx context.Context, staffID, orderID string) (StaffSummary, error) {
	return c.mutate(ctx, staffID, orderID, func(tx *sql.Tx, o *Order) error {
		return setLocked(ctx, tx, o, true)
	})
}

func (c *Conf) Unlock(ctx context.Context, staffID, orderID string) (StaffSummary, error) {
	return c.mutate(ctx, staffID, orderID, func(tx *sql.Tx, o *Order) error {
		if err := CanUnlock(o.Status); err != nil {
			return err
		}
		return setLocked(ctx, tx, o, false)
	})
}

// mutate loads the order row under lock, checks that staffID owns one of its
// products and applies fn in the same transaction.
func (c *Conf) mutate(ctx context.Context, staffID, orderID string, fn func(*sql.Tx, *Order) error) (StaffSummary, error) {
	var summary StaffSummary
	err := postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		o, err := loadOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		catalog, err := products.ByIDs(ctx, tx, o.productIDs(), false)
		if err != nil {
			return err
		}
		if err := scope.Authorize(o.Items, ownersOf(catalog), staffID); err != nil {
			return err
		}

		previous := o.Status
		if err := fn(tx, &o); err != nil {
			return err
		}

		customers, err := customersByID(ctx, tx, []string{o.CustomerID})
		if err != nil {
			return err
		}
		summary = summarize(o, customers, catalog, staffID)
		summary.PreviousStatus = previous
		return nil
	})
	if err != nil {
		return StaffSummary{}, err
	}
	return summary, nil
}

func setLocked(ctx context.Context, tx *sql.Tx, o *Order, locked bool) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE orders SET locked = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		locked, o.ID).Scan(&o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order lock: %w", err)
	}
	o.Locked = locked
	return nil
}

// composeAll batches the product and customer lookups for a set of orders.
func (c *Conf) composeAll(ctx context.Context, list []Order, staffID string) ([]View, error) {
	views := make([]View, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	var productIDs, customerIDs []string
	seen := make(map[string]bool)
	for _, o := range list {
		productIDs = append(productIDs, o.productIDs()...)
		if !seen[o.CustomerID] {
			seen[o.CustomerID] = true
			customerIDs = append(customerIDs, o.CustomerID)
		}
	}

	catalog, err := products.ByIDs(ctx, c.db, productIDs, false)
	if err != nil {
		return nil, err
	}
	customers, err := customersByID(ctx, c.db, customerIDs)
	if err != nil {
		return nil, err
	}
	for _, o := range list {
		views = append(views, Compose(o, customers, catalog, staffID))
	}
	return views, nil
}

func customersByID(ctx context.Context, q postgres.DBTX, ids []string) (map[string]Customer, error) {
	found, err := users.ByIDs(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Customer, len(found))
	for id, u := range found {
		out[id] = Customer{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	return out, nil
}

func loadOrder(ctx context.Context, q postgres.DBTX, id string, forUpdate bool) (Order, error) {
	query := selectOrder + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, apperr.New(apperr.KindNotFound, "Order not found.")
		}
		return Order{}, err
	}

	items, err := loadItems(ctx, q, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func loadOrders(ctx context.Context, q postgres.DBTX, query string, args ...any) ([]Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]string, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	items, err := loadItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Items = items[list[i].ID]
	}
	return list, nil
}

func loadItems(ctx context.Context, q postgres.DBTX, orderIDs []string) (map[string][]Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, position, product_id, quantity, unit_price FROM order_items WHERE order_id IN (`+
			postgres.Placeholders(1, len(orderIDs))+`) ORDER BY order_id, position`,
		postgres.Args(orderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.Position, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var (
		o      Order
		status string
	)
	err := s.Scan(&o.ID, &o.CustomerID, &status, &o.Locked, &o.PaymentCollected, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Status = Status(status)
	return o, nil
}
