package businessflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptichkin/brooder/app/dto"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	brootesting "github.com/ptichkin/brooder/testing"
)

type noopNotifier struct{}

func (noopNotifier) NotifyOrderConfirmed(context.Context, *models.Order) error       { return nil }
func (noopNotifier) NotifyOrderCancelled(context.Context, *models.Order, bool) error { return nil }
func (noopNotifier) NotifyOrderIssued(context.Context, *models.Order) error          { return nil }

type noopExporter struct{}

func (noopExporter) ExportIssuedOrder(context.Context, *models.Order) error { return nil }

func testGuardConfig() config.GuardConfig {
	return config.GuardConfig{
		MaxAttempts:           2,
		AttemptWindow:         24 * time.Hour,
		BlockDuration:         24 * time.Hour,
		UnverifiedMaxQuantity: 50,
	}
}

type flowEnv struct {
	db        *brootesting.TestDB
	fixtures  *brootesting.TestFixtures
	stockRepo repository.StockRepository
	orderRepo repository.OrderRepository
	phoneRepo repository.PhoneRepository
	orderFlow businessflow.OrderFlow
	stockFlow businessflow.StockFlow
	guard     businessflow.PhoneGuardFlow
}

func setupFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	tdb, err := brootesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	stockRepo := repository.NewStockRepository(tdb.DB)
	orderRepo := repository.NewOrderRepository(tdb.DB)
	phoneRepo := repository.NewPhoneRepository(tdb.DB)
	userRepo := repository.NewUserRepository(tdb.DB)

	guard := businessflow.NewPhoneGuardFlow(phoneRepo, testGuardConfig())
	orderFlow := businessflow.NewOrderFlow(orderRepo, stockRepo, userRepo, guard, noopNotifier{}, noopExporter{}, tdb.DB)
	stockFlow := businessflow.NewStockFlow(stockRepo, orderRepo, noopNotifier{}, tdb.DB)

	return &flowEnv{
		db:        tdb,
		fixtures:  brootesting.NewTestFixtures(tdb),
		stockRepo: stockRepo,
		orderRepo: orderRepo,
		phoneRepo: phoneRepo,
		orderFlow: orderFlow,
		stockFlow: stockFlow,
		guard:     guard,
	}
}

func placeReq(stockID uint, userID int64, qty int) *dto.PlaceOrderRequest {
	return &dto.PlaceOrderRequest{
		UserID:   userID,
		FullName: "Test Customer",
		Phone:    brootesting.RandomPhone(),
		StockID:  stockID,
		Quantity: qty,
	}
}

func TestPlaceOrderReservesStock(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)

	resp, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 100, 4))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending.String(), resp.Status)
	assert.Equal(t, 4, resp.Quantity)
	assert.Equal(t, stock.Price, resp.Price)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.AvailableQuantity)
	assert.Equal(t, 10, reloaded.Quantity)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Leghorn", 3, 7)
	require.NoError(t, err)

	_, err = env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 101, 5))
	require.Error(t, err)
	assert.True(t, businessflow.IsInsufficientStock(err))

	var insufficientErr *businessflow.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 3, insufficientErr.Available)
	assert.Equal(t, 5, insufficientErr.Requested)

	// A rejected attempt must leave the batch untouched.
	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.AvailableQuantity)
}

func TestPlaceOrderConcurrentOversell(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Orpington", 10, 7)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, int64(200+i), 6))
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			failed++
			assert.True(t, businessflow.IsInsufficientStock(err) || businessflow.IsConcurrentModification(err),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.AvailableQuantity)
}

func TestPlaceOrderSoldOutDeactivatesBatch(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Cochin", 5, 7)
	require.NoError(t, err)

	_, err = env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 300, 5))
	require.NoError(t, err)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableQuantity)
	assert.Equal(t, models.StockStatusInactive, reloaded.Status)

	// Sold-out batches must not appear in the customer listing.
	listing, err := env.stockFlow.ListAvailable(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, listing.Stocks)
}

func TestConfirmOrderGrantsTrust(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)

	req := placeReq(stock.ID, 400, 2)
	placed, err := env.orderFlow.PlaceOrder(ctx, req)
	require.NoError(t, err)

	confirmed, err := env.orderFlow.ConfirmOrder(ctx, admin, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusActive.String(), confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	trusted, err := env.guard.IsTrusted(ctx, req.Phone)
	require.NoError(t, err)
	assert.True(t, trusted)

	// Confirming twice must fail: the order is no longer pending.
	_, err = env.orderFlow.ConfirmOrder(ctx, admin, placed.ID)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidStateTransition(err))
}

func TestConfirmOrderOwnership(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Cochin", 10, 7)
	require.NoError(t, err)

	req := placeReq(stock.ID, 450, 2)
	placed, err := env.orderFlow.PlaceOrder(ctx, req)
	require.NoError(t, err)

	// Another customer cannot confirm someone else's order.
	stranger := &businessflow.Actor{UserID: 451}
	_, err = env.orderFlow.ConfirmOrder(ctx, stranger, placed.ID)
	require.Error(t, err)
	assert.True(t, businessflow.IsNotAuthorized(err))

	// The owner can, and the confirmation grants trust as usual.
	owner := &businessflow.Actor{UserID: 450}
	confirmed, err := env.orderFlow.ConfirmOrder(ctx, owner, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusActive.String(), confirmed.Status)

	trusted, err := env.guard.IsTrusted(ctx, req.Phone)
	require.NoError(t, err)
	assert.True(t, trusted)
}

func TestCancelOrderByOwner(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)

	placed, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 550, 4))
	require.NoError(t, err)

	// A different customer is rejected before any state changes.
	stranger := &businessflow.Actor{UserID: 551}
	_, err = env.orderFlow.CancelOrder(ctx, stranger, placed.ID)
	require.Error(t, err)
	assert.True(t, businessflow.IsNotAuthorized(err))

	owner := &businessflow.Actor{UserID: 550}
	cancelled, err := env.orderFlow.CancelOrder(ctx, owner, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled.String(), cancelled.Status)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.AvailableQuantity)
}

func TestCancelOrderReleasesStockAndIsIdempotent(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	stock, err := env.fixtures.CreateTestStock("Leghorn", 10, 7)
	require.NoError(t, err)

	placed, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 500, 4))
	require.NoError(t, err)

	cancelled, err := env.orderFlow.CancelOrder(ctx, admin, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled.String(), cancelled.Status)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.AvailableQuantity)

	// Second cancel is a no-op success and must not release again.
	again, err := env.orderFlow.CancelOrder(ctx, admin, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled.String(), again.Status)

	reloaded, err = env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.AvailableQuantity)
}

func TestIssueOrderRequiresActive(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	stock, err := env.fixtures.CreateTestStock("Orpington", 10, 7)
	require.NoError(t, err)

	placed, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 600, 2))
	require.NoError(t, err)

	// Pending orders cannot be issued directly.
	_, err = env.orderFlow.IssueOrder(ctx, admin, placed.ID)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidStateTransition(err))

	_, err = env.orderFlow.ConfirmOrder(ctx, admin, placed.ID)
	require.NoError(t, err)

	issued, err := env.orderFlow.IssueOrder(ctx, admin, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusIssued.String(), issued.Status)

	// Issued orders keep their units held.
	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.AvailableQuantity)

	// Issued is terminal: no cancel afterwards.
	_, err = env.orderFlow.CancelOrder(ctx, admin, placed.ID)
	require.Error(t, err)
	assert.True(t, businessflow.IsInvalidStateTransition(err))
}

func TestEditOrderQuantityRevalidatesAvailability(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	stock, err := env.fixtures.CreateTestStock("Cochin", 7, 7)
	require.NoError(t, err)

	placed, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 700, 5))
	require.NoError(t, err)
	_, err = env.orderFlow.ConfirmOrder(ctx, admin, placed.ID)
	require.NoError(t, err)

	// 2 units free; growing 5 -> 8 needs 3 and must be rejected.
	_, err = env.orderFlow.EditOrderQuantity(ctx, admin, placed.ID, &dto.EditOrderRequest{Quantity: 8})
	require.Error(t, err)
	assert.True(t, businessflow.IsInsufficientStock(err))

	// Growing 5 -> 7 exactly consumes the free units.
	edited, err := env.orderFlow.EditOrderQuantity(ctx, admin, placed.ID, &dto.EditOrderRequest{Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, edited.Quantity)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableQuantity)

	// Shrinking returns units.
	edited, err = env.orderFlow.EditOrderQuantity(ctx, admin, placed.ID, &dto.EditOrderRequest{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, edited.Quantity)

	reloaded, err = env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.AvailableQuantity)
}

func TestPlaceOrderUnverifiedQuantityCap(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 200, 7)
	require.NoError(t, err)

	req := placeReq(stock.ID, 800, 70)

	// Two oversized attempts are rejected by the cap but not yet blocked.
	_, err = env.orderFlow.PlaceOrder(ctx, req)
	require.Error(t, err)
	assert.True(t, businessflow.IsUnverifiedQuantityCap(err))

	_, err = env.orderFlow.PlaceOrder(ctx, req)
	require.Error(t, err)
	assert.True(t, businessflow.IsUnverifiedQuantityCap(err))

	// The third attempt exceeds the threshold and blocks the phone, even
	// though the order itself is small.
	small := placeReq(stock.ID, 800, 1)
	small.Phone = req.Phone
	_, err = env.orderFlow.PlaceOrder(ctx, small)
	require.Error(t, err)
	assert.True(t, businessflow.IsPhoneBlocked(err))

	// And stays rejected while the block lasts.
	_, err = env.orderFlow.PlaceOrder(ctx, small)
	require.Error(t, err)
	assert.True(t, businessflow.IsPhoneBlocked(err))

	// No stock was ever reserved.
	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, reloaded.AvailableQuantity)
}

func TestPlaceOrderTrustedPhoneSkipsCap(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Orpington", 200, 7)
	require.NoError(t, err)

	// Trust is established server side; nothing in the request can claim it.
	req := placeReq(stock.ID, 810, 70)
	require.NoError(t, env.guard.GrantTrust(ctx, req.Phone, 810, nil, models.TrustSourceAuto))

	resp, err := env.orderFlow.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 70, resp.Quantity)
}

func TestArchiveExpiredCascadesCancellation(t *testing.T) {
	env := setupFlowEnv(t)
	ctx := context.Background()
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	// Yesterday's batch with one pending and one active order.
	stock, err := env.fixtures.CreateTestStock("Leghorn", 20, -1)
	require.NoError(t, err)

	pending, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 900, 3))
	require.NoError(t, err)
	active, err := env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 901, 5))
	require.NoError(t, err)
	_, err = env.orderFlow.ConfirmOrder(ctx, admin, active.ID)
	require.NoError(t, err)

	summary, err := env.stockFlow.ArchiveExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ArchivedBatches)
	assert.Equal(t, 2, summary.CancelledOrders)
	assert.Equal(t, 8, summary.ReturnedUnits)

	reloaded, err := env.stockRepo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusArchived, reloaded.Status)
	assert.Equal(t, 20, reloaded.AvailableQuantity)

	for _, id := range []uint{pending.ID, active.ID} {
		order, err := env.orderRepo.ByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.Status)
	}

	// Archived batches reject new reservations.
	_, err = env.orderFlow.PlaceOrder(ctx, placeReq(stock.ID, 902, 1))
	require.Error(t, err)
}
