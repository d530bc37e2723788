package bot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptichkin/brooder/app/bot"
	"github.com/ptichkin/brooder/app/session"
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

type wizardEnv struct {
	wizard   *bot.Wizard
	fixtures *brootesting.TestFixtures
	guard    businessflow.PhoneGuardFlow
}

func setupWizard(t *testing.T) *wizardEnv {
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

	guardCfg := config.GuardConfig{
		MaxAttempts:           2,
		AttemptWindow:         24 * time.Hour,
		BlockDuration:         24 * time.Hour,
		UnverifiedMaxQuantity: 50,
	}
	guard := businessflow.NewPhoneGuardFlow(phoneRepo, guardCfg)
	orderFlow := businessflow.NewOrderFlow(orderRepo, stockRepo, userRepo, guard, noopNotifier{}, noopExporter{}, tdb.DB)
	stockFlow := businessflow.NewStockFlow(stockRepo, orderRepo, noopNotifier{}, tdb.DB)

	return &wizardEnv{
		wizard:   bot.NewWizard(session.NewStore(30*time.Minute), stockFlow, orderFlow, guard),
		fixtures: brootesting.NewTestFixtures(tdb),
		guard:    guard,
	}
}

func TestWizardFullWalkPlacesOrder(t *testing.T) {
	env := setupWizard(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)
	date := stock.Date.Format("2006-01-02")

	userID := int64(100)
	p := env.wizard.Start(userID)
	assert.Equal(t, session.StepSelectBreed, p.Step)

	p, err = env.wizard.SelectBreed(userID, "Brahma")
	require.NoError(t, err)
	assert.Equal(t, session.StepSelectIncubator, p.Step)

	p, err = env.wizard.SelectIncubator(userID, "TestIncubator")
	require.NoError(t, err)
	assert.Equal(t, session.StepSelectDate, p.Step)

	p, err = env.wizard.SelectDate(ctx, userID, date)
	require.NoError(t, err)
	assert.Equal(t, session.StepEnterQuantity, p.Step)
	assert.Equal(t, stock.ID, p.Draft.StockID)

	p, err = env.wizard.EnterQuantity(ctx, userID, 4)
	require.NoError(t, err)
	assert.Equal(t, session.StepEnterPhone, p.Step)

	p, err = env.wizard.EnterPhone(ctx, userID, "89001234567")
	require.NoError(t, err)
	assert.Equal(t, session.StepConfirm, p.Step)
	assert.Equal(t, "+79001234567", p.Draft.Phone)

	order, err := env.wizard.Confirm(ctx, userID, "Test Customer", "testuser")
	require.NoError(t, err)
	assert.Equal(t, 4, order.Quantity)
	assert.Equal(t, models.OrderStatusPending.String(), order.Status)

	// Wizard is back at the menu, phone preserved.
	p = env.wizard.Current(userID)
	assert.Equal(t, session.StepMenu, p.Step)
	assert.Equal(t, "+79001234567", p.Draft.Phone)
}

func TestWizardBackPreservesEarlierAnswers(t *testing.T) {
	env := setupWizard(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)
	date := stock.Date.Format("2006-01-02")

	userID := int64(200)
	env.wizard.Start(userID)
	_, err = env.wizard.SelectBreed(userID, "Brahma")
	require.NoError(t, err)
	_, err = env.wizard.SelectIncubator(userID, "TestIncubator")
	require.NoError(t, err)
	_, err = env.wizard.SelectDate(ctx, userID, date)
	require.NoError(t, err)

	// Back off quantity entry: batch selection is invalidated, breed and
	// incubator remain.
	p := env.wizard.Back(userID)
	assert.Equal(t, session.StepSelectDate, p.Step)
	assert.Zero(t, p.Draft.StockID)
	assert.Equal(t, "Brahma", p.Draft.Breed)
	assert.Equal(t, "TestIncubator", p.Draft.Incubator)

	// The same date can be re-selected without re-entering anything else.
	p, err = env.wizard.SelectDate(ctx, userID, date)
	require.NoError(t, err)
	assert.Equal(t, session.StepEnterQuantity, p.Step)
	assert.Equal(t, stock.ID, p.Draft.StockID)
}

func TestWizardRejectsOutOfOrderInput(t *testing.T) {
	env := setupWizard(t)
	ctx := context.Background()

	userID := int64(300)
	env.wizard.Start(userID)

	_, err := env.wizard.EnterQuantity(ctx, userID, 5)
	assert.Error(t, err)

	_, err = env.wizard.EnterPhone(ctx, userID, "+79001234567")
	assert.Error(t, err)

	_, err = env.wizard.Confirm(ctx, userID, "Test", "test")
	assert.Error(t, err)
}

func TestWizardSkipsPhoneOnRepeatRun(t *testing.T) {
	env := setupWizard(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)
	date := stock.Date.Format("2006-01-02")

	userID := int64(400)
	walk := func(qty int) {
		env.wizard.Start(userID)
		_, err := env.wizard.SelectBreed(userID, "Brahma")
		require.NoError(t, err)
		_, err = env.wizard.SelectIncubator(userID, "TestIncubator")
		require.NoError(t, err)
		_, err = env.wizard.SelectDate(ctx, userID, date)
		require.NoError(t, err)
	}

	walk(2)
	p, err := env.wizard.EnterQuantity(ctx, userID, 2)
	require.NoError(t, err)
	require.Equal(t, session.StepEnterPhone, p.Step)
	_, err = env.wizard.EnterPhone(ctx, userID, "+79005550000")
	require.NoError(t, err)
	_, err = env.wizard.Confirm(ctx, userID, "Repeat Customer", "repeat")
	require.NoError(t, err)

	// Second run: the preserved phone skips the phone screen entirely.
	walk(3)
	p, err = env.wizard.EnterQuantity(ctx, userID, 3)
	require.NoError(t, err)
	assert.Equal(t, session.StepConfirm, p.Step)
	assert.Equal(t, "+79005550000", p.Draft.Phone)

	order, err := env.wizard.Confirm(ctx, userID, "Repeat Customer", "repeat")
	require.NoError(t, err)
	assert.Equal(t, 3, order.Quantity)
}

func TestWizardQuantityValidatedAgainstAvailability(t *testing.T) {
	env := setupWizard(t)
	ctx := context.Background()

	stock, err := env.fixtures.CreateTestStock("Leghorn", 3, 7)
	require.NoError(t, err)
	date := stock.Date.Format("2006-01-02")

	userID := int64(500)
	env.wizard.Start(userID)
	_, err = env.wizard.SelectBreed(userID, "Leghorn")
	require.NoError(t, err)
	_, err = env.wizard.SelectIncubator(userID, "TestIncubator")
	require.NoError(t, err)
	_, err = env.wizard.SelectDate(ctx, userID, date)
	require.NoError(t, err)

	_, err = env.wizard.EnterQuantity(ctx, userID, 5)
	require.Error(t, err)
	assert.True(t, businessflow.IsInsufficientStock(err))

	// Wizard stays on the quantity screen for a corrected entry.
	p := env.wizard.Current(userID)
	assert.Equal(t, session.StepEnterQuantity, p.Step)

	_, err = env.wizard.EnterQuantity(ctx, userID, 3)
	require.NoError(t, err)
}
