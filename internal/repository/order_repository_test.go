package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Course{}, &models.Order{}); err != nil {
		t.Fatalf("migrate order models failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func makeTestOrder(t *testing.T, db *gorm.DB, userID, courseID uint, status string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:     fmt.Sprintf("CM-%d-%d-%d", userID, courseID, time.Now().UnixNano()),
		UserID:      userID,
		CourseID:    courseID,
		Status:      status,
		Provider:    constants.PaymentProviderRazorpay,
		Currency:    "INR",
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
		FinalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create test order failed: %v", err)
	}
	return order
}

func TestTransitionStatusGuardsOnCurrentStatus(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)

	ok, err := repo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCompleted, nil)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected transition to be applied")
	}

	// 第二次转移必须落空，completed 为终态
	ok, err = repo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, nil)
	if err != nil {
		t.Fatalf("second transition errored: %v", err)
	}
	if ok {
		t.Fatalf("completed order must not transition again")
	}

	stored, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCompleted {
		t.Fatalf("unexpected status: %s", stored.Status)
	}
}

func TestGetByGatewayOrderID(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)
	if err := repo.SetGatewayOrderID(order.ID, "order_rzp_1"); err != nil {
		t.Fatalf("set gateway order id failed: %v", err)
	}

	found, err := repo.GetByGatewayOrderID("order_rzp_1")
	if err != nil {
		t.Fatalf("get by gateway order id failed: %v", err)
	}
	if found == nil || found.ID != order.ID {
		t.Fatalf("expected to find order %d, got %+v", order.ID, found)
	}

	missing, err := repo.GetByGatewayOrderID("order_unknown")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown gateway order id")
	}
}

func TestGatewayOrderIDUniqueOnceSet(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	first := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)
	second := makeTestOrder(t, db, 2, 8, constants.OrderStatusPending)

	if err := repo.SetGatewayOrderID(first.ID, "order_rzp_dup"); err != nil {
		t.Fatalf("set gateway order id failed: %v", err)
	}
	if err := repo.SetGatewayOrderID(second.ID, "order_rzp_dup"); err == nil {
		t.Fatalf("expected unique violation for duplicate gateway order id")
	}
}

func TestGetLatestPendingByUserAndCourse(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	makeTestOrder(t, db, 1, 7, constants.OrderStatusFailed)
	older := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)
	newest := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)

	found, err := repo.GetLatestPendingByUserAndCourse(1, 7)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found == nil || found.ID != newest.ID {
		t.Fatalf("expected newest pending order %d, got %+v", newest.ID, found)
	}
	if found.ID == older.ID {
		t.Fatalf("should not return superseded order")
	}

	none, err := repo.GetLatestPendingByUserAndCourse(2, 7)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no pending order for other user")
	}
}

func TestListPendingByIDsAndUserRevalidates(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	mine := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)
	completed := makeTestOrder(t, db, 1, 8, constants.OrderStatusCompleted)
	other := makeTestOrder(t, db, 2, 9, constants.OrderStatusPending)

	orders, err := repo.ListPendingByIDsAndUser([]uint{mine.ID, completed.ID, other.ID}, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != mine.ID {
		t.Fatalf("expected only owned pending order, got %d rows", len(orders))
	}
}

func TestListByGatewayOrderIDScopesToUser(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	mine := makeTestOrder(t, db, 1, 7, constants.OrderStatusPending)
	other := makeTestOrder(t, db, 2, 8, constants.OrderStatusPending)
	if err := repo.SetGatewayOrderID(mine.ID, "gw_batch_1"); err != nil {
		t.Fatalf("set gateway order id failed: %v", err)
	}
	if err := repo.SetGatewayOrderID(other.ID, "gw_batch_2"); err != nil {
		t.Fatalf("set gateway order id failed: %v", err)
	}

	orders, err := repo.ListByGatewayOrderID("gw_batch_1", 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != mine.ID {
		t.Fatalf("expected own batch order, got %d rows", len(orders))
	}

	orders, err = repo.ListByGatewayOrderID("gw_batch_1", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("foreign user should see no rows, got %d", len(orders))
	}

	orders, err = repo.ListByGatewayOrderID("", 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("empty gateway order id should return no rows, got %d", len(orders))
	}
}
