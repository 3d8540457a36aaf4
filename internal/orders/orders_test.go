package orders

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

var (
	productColumns = []string{"id", "name", "description", "price", "stock", "category", "staff_id", "created_at", "updated_at"}
	orderColumns   = []string{"id", "customer_id", "status", "locked", "payment_collected", "created_at", "updated_at"}
	itemColumns    = []string{"order_id", "position", "product_id", "quantity", "unit_price"}
	userColumns    = []string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}
)

const (
	decrement     = "UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1"
	orderForUpdate = "FROM orders WHERE id = $1 FOR UPDATE"
)

func newConf(t *testing.T) (Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conf, err := NewConf(db)
	require.NoError(t, err)
	return conf, mock
}

func expectCustomer(mock sqlmock.Sqlmock) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id IN ($1) ORDER BY id")).WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("c-1", "cora", "cora@x.io", "h", "customer", now, now))
}

// expectLockedOrder queues the reads every staff mutation starts with: the
// order row under lock, its lines and their products. P1 belongs to S and P2
// to S2.
func expectLockedOrder(mock sqlmock.Sqlmock, status Status, locked bool) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(orderForUpdate)).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow("o-1", "c-1", string(status), locked, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id IN ($1) ORDER BY order_id, position")).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("o-1", 1, "P1", 3, 4.99).
			AddRow("o-1", 2, "P2", 1, 100.0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id IN ($1, $2) ORDER BY id")).WithArgs("P1", "P2").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("P1", "Pen", "", 4.99, 10, "other", "S", now, now).
			AddRow("P2", "Desk", "", 100.0, 2, "home", "S2", now, now))
}

func TestCreateOrder(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id IN ($1, $2) ORDER BY id FOR UPDATE")).WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("A", "Alpha", "", 10.0, 5, "other", "S", now, now).
			AddRow("B", "Beta", "", 20.0, 1, "other", "S2", now, now))
	mock.ExpectExec(regexp.QuoteMeta(decrement)).WithArgs(2, "A").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrement)).WithArgs(1, "B").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).WithArgs(sqlmock.AnyArg(), "c-1", "PLACED").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(sqlmock.AnyArg(), 1, "A", 2, 10.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(sqlmock.AnyArg(), 2, "B", 1, 20.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart WHERE user_id = $1")).WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCustomer(mock)
	mock.ExpectCommit()

	price := 1.0
	v, err := conf.CreateOrder(context.Background(), "c-1", []NewItem{
		{ProductID: "A", Quantity: 1, Price: &price},
		{ProductID: "B", Quantity: 1},
		{ProductID: "A", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPlaced, v.Status)
	assert.True(t, v.Locked)
	assert.False(t, v.PaymentCollected)
	assert.Equal(t, 40.0, v.Total)
	assert.Equal(t, "cora", v.Customer.Username)
	require.Len(t, v.Items, 2)
	assert.Equal(t, 10.0, v.Items[0].ProductPrice)
	assert.Equal(t, 3, v.Items[0].Stock)
	assert.Equal(t, 0, v.Items[1].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id IN ($1, $2) ORDER BY id FOR UPDATE")).WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("A", "Alpha", "", 10.0, 5, "other", "S", now, now).
			AddRow("B", "Beta", "", 20.0, 0, "other", "S2", now, now))
	mock.ExpectRollback()

	_, err := conf.CreateOrder(context.Background(), "c-1", []NewItem{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderValidation(t *testing.T) {
	conf, mock := newConf(t)

	for _, items := range [][]NewItem{nil, {{Quantity: 1}}, {{ProductID: "A"}}} {
		_, err := conf.CreateOrder(context.Background(), "c-1", items)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusLockedOrder(t *testing.T) {
	for _, status := range []string{"PROCESSING", "cancelled", "bogus"} {
		t.Run(status, func(t *testing.T) {
			conf, mock := newConf(t)
			mock.ExpectBegin()
			expectLockedOrder(mock, StatusPlaced, true)
			mock.ExpectRollback()

			_, err := conf.UpdateStatus(context.Background(), "S", "o-1", status)
			assert.True(t, apperr.Is(err, apperr.KindOrderLocked))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateStatusForbidden(t *testing.T) {
	conf, mock := newConf(t)
	mock.ExpectBegin()
	expectLockedOrder(mock, StatusPlaced, false)
	mock.ExpectRollback()

	_, err := conf.UpdateStatus(context.Background(), "S3", "o-1", "SHIPPED")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNotFound(t *testing.T) {
	conf, mock := newConf(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(orderForUpdate)).WithArgs("o-9").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := conf.UpdateStatus(context.Background(), "S", "o-9", "SHIPPED")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUnlockThenUpdateToTerminal(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectBegin()
	expectLockedOrder(mock, StatusPlaced, true)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET locked = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at")).
		WithArgs(false, "o-1").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	expectCustomer(mock)
	mock.ExpectCommit()

	s, err := conf.Unlock(context.Background(), "S", "o-1")
	require.NoError(t, err)
	assert.False(t, s.Locked)
	assert.Equal(t, "cora", s.Customer)
	assert.Equal(t, 1, s.StaffItems)
	assert.Equal(t, 2, s.TotalItems)

	mock.ExpectBegin()
	expectLockedOrder(mock, StatusPlaced, false)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at")).
		WithArgs("DELIVERED", "o-1").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	expectCustomer(mock)
	mock.ExpectCommit()

	s, err = conf.UpdateStatus(context.Background(), "S", "o-1", "delivered")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, s.Status)
	assert.Equal(t, StatusPlaced, s.PreviousStatus)

	mock.ExpectBegin()
	expectLockedOrder(mock, StatusDelivered, false)
	mock.ExpectRollback()

	_, err = conf.UpdateStatus(context.Background(), "S", "o-1", "PLACED")
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockDeliveredOrder(t *testing.T) {
	conf, mock := newConf(t)
	mock.ExpectBegin()
	expectLockedOrder(mock, StatusDelivered, true)
	mock.ExpectRollback()

	_, err := conf.Unlock(context.Background(), "S", "o-1")
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockIsAllowedInAnyStatus(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectBegin()
	expectLockedOrder(mock, StatusCompleted, true)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET locked = $1")).
		WithArgs(true, "o-1").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	expectCustomer(mock)
	mock.ExpectCommit()

	s, err := conf.Lock(context.Background(), "S2", "o-1")
	require.NoError(t, err)
	assert.True(t, s.Locked)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForCustomerOtherCustomer(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow("o-1", "c-1", "PLACED", true, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id IN ($1)")).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow("o-1", 1, "P1", 1, 4.99))

	_, err := conf.GetForCustomer(context.Background(), "c-2", "o-1")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForStaff(t *testing.T) {
	conf, mock := newConf(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE oi.order_id = o.id AND p.staff_id = $1")).WithArgs("S").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow("o-1", "c-1", "SHIPPED", false, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id IN ($1)")).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("o-1", 1, "P1", 3, 4.99).
			AddRow("o-1", 2, "P2", 1, 100.0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id IN ($1, $2) ORDER BY id")).WithArgs("P1", "P2").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("P1", "Pen", "", 4.99, 10, "other", "S", now, now).
			AddRow("P2", "Desk", "", 100.0, 2, "home", "S2", now, now))
	expectCustomer(mock)

	list, err := conf.ListForStaff(context.Background(), "S")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)
	assert.Equal(t, 1, list[0].StaffRelatedItems)
	assert.True(t, list[0].Items[0].IsStaffProduct)
	assert.False(t, list[0].Items[1].IsStaffProduct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForCustomerEmpty(t *testing.T) {
	conf, mock := newConf(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE customer_id = $1")).WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	list, err := conf.ListForCustomer(context.Background(), "c-1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
