package products

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-management-service/internal/apperr"
)

var productColumns = []string{"id", "name", "description", "price", "stock", "category", "staff_id", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Books ")
	require.NoError(t, err)
	assert.Equal(t, CategoryBooks, c)

	_, err = ParseCategory("weapons")
	assert.Error(t, err)

	c, err = ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryElectronics, c)

	c, err = ParseCategory("Mobile Accessories")
	require.NoError(t, err)
	assert.Equal(t, CategoryMobileAccessories, c)
}

func TestListProductsWithFilters(t *testing.T) {
	db, mock := newMock(t)
	conf, err := NewConf(db)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE name ILIKE $1 AND category = $2 ORDER BY created_at DESC, id LIMIT $3 OFFSET $4")).
		WithArgs("%lamp%", "home", 10, 5).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("p-1", "Desk lamp", "LED", 19.99, 4, "home", "s-1", now, now))

	list, err := conf.ListProducts(context.Background(), Filter{Name: "lamp", Category: CategoryHome, Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Desk lamp", list[0].Name)
	assert.Equal(t, CategoryHome, list[0].Category)
	assert.Equal(t, "s-1", list[0].StaffID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsClampsLimit(t *testing.T) {
	db, mock := newMock(t)
	conf, _ := NewConf(db)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(MaxLimit, 0).
		WillReturnRows(sqlmock.NewRows(productColumns))

	list, err := conf.ListProducts(context.Background(), Filter{Limit: 10_000, Offset: -3})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	conf, _ := NewConf(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := conf.GetProductByID(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestByIDsDedupesAndLocks(t *testing.T) {
	db, mock := newMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN ($1, $2) ORDER BY id FOR UPDATE")).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("a", "A", "", 10.0, 5, "other", "s-1", now, now).
			AddRow("b", "B", "", 20.0, 1, "other", "s-2", now, now))

	m, err := ByIDs(context.Background(), db, []string{"b", "a", "b"}, true)
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, 10.0, m["a"].Price)
	assert.Equal(t, "s-2", m["b"].StaffID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestByIDsEmpty(t *testing.T) {
	db, mock := newMock(t)
	m, err := ByIDs(context.Background(), db, nil, false)
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}
