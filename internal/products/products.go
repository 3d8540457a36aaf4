package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"order-management-service/internal/apperr"
	"order-management-service/internal/stores/postgres"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

const selectProduct = `SELECT id, name, description, price, stock, category, staff_id, created_at, updated_at FROM products`

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func (c *Conf) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where = append(where, "name ILIKE $"+strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := selectProduct
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	list := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return list, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id string) (Product, error) {
	row := c.db.QueryRowContext(ctx, selectProduct+" WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperr.Wrap(apperr.KindNotFound, err, "Product not found.")
		}
		return Product{}, err
	}
	return p, nil
}

// ByIDs fetches the given products in one query, keyed by id. Missing ids are
// simply absent from the map. The query runs on q so it can join a transaction;
// forUpdate locks the returned rows in id order.
func ByIDs(ctx context.Context, q postgres.DBTX, ids []string, forUpdate bool) (map[string]Product, error) {
	ids = uniqueSorted(ids)
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := selectProduct + " WHERE id IN (" + postgres.Placeholders(1, len(ids)) + ") ORDER BY id"
	if forUpdate {
		query += " FOR UPDATE"
	}
	rows, err := q.QueryContext(ctx, query, postgres.Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (Product, error) {
	var (
		p        Product
		category string
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &category, &p.StaffID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("failed to scan product: %w", err)
	}
	p.Category = Category(category)
	return p, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
