package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	brootesting "github.com/ptichkin/brooder/testing"
	"github.com/ptichkin/brooder/utils"
)

func setupStockRepo(t *testing.T) (repository.StockRepository, *brootesting.TestFixtures) {
	t.Helper()
	tdb, err := brootesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })
	return repository.NewStockRepository(tdb.DB), brootesting.NewTestFixtures(tdb)
}

func TestTryReserveDecrements(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()

	stock, err := fixtures.CreateTestStock("Brahma", 10, 7)
	require.NoError(t, err)

	res, err := repo.TryReserve(ctx, stock.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveOK, res)

	reloaded, err := repo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.AvailableQuantity)
	assert.Equal(t, models.StockStatusActive, reloaded.Status)
}

func TestTryReserveInsufficient(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()

	stock, err := fixtures.CreateTestStock("Leghorn", 3, 7)
	require.NoError(t, err)

	res, err := repo.TryReserve(ctx, stock.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveInsufficient, res)

	reloaded, err := repo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.AvailableQuantity)
}

func TestTryReserveMissingBatch(t *testing.T) {
	repo, _ := setupStockRepo(t)
	ctx := context.Background()

	res, err := repo.TryReserve(ctx, 9999, 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveNotFound, res)
}

func TestTryReserveRetiresSoldOut(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()

	stock, err := fixtures.CreateTestStock("Cochin", 5, 7)
	require.NoError(t, err)

	res, err := repo.TryReserve(ctx, stock.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveOK, res)

	reloaded, err := repo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableQuantity)
	assert.Equal(t, models.StockStatusInactive, reloaded.Status)

	// A retired batch reads as insufficient, not missing: the caller lost
	// a race for the last units, nothing more.
	res, err = repo.TryReserve(ctx, stock.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveInsufficient, res)
}

func TestTryReserveArchivedBatch(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()

	stock, err := fixtures.CreateTestStock("Brahma", 5, -1)
	require.NoError(t, err)
	require.NoError(t, repo.MarkArchived(ctx, stock.ID))

	res, err := repo.TryReserve(ctx, stock.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, repository.ReserveArchived, res)
}

func TestReleaseReactivatesFutureBatch(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()
	today := utils.DateOnly(time.Now())

	stock, err := fixtures.CreateTestStock("Brahma", 5, 7)
	require.NoError(t, err)

	res, err := repo.TryReserve(ctx, stock.ID, 5)
	require.NoError(t, err)
	require.Equal(t, repository.ReserveOK, res)

	require.NoError(t, repo.Release(ctx, stock.ID, 2, today))

	reloaded, err := repo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.AvailableQuantity)
	assert.Equal(t, models.StockStatusActive, reloaded.Status)
}

func TestReleaseLeavesPastBatchInactive(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()
	today := utils.DateOnly(time.Now())

	// Yesterday's batch, fully reserved then cancelled.
	stock, err := fixtures.CreateTestStock("Leghorn", 5, -1)
	require.NoError(t, err)

	res, err := repo.TryReserve(ctx, stock.ID, 5)
	require.NoError(t, err)
	require.Equal(t, repository.ReserveOK, res)

	require.NoError(t, repo.Release(ctx, stock.ID, 5, today))

	reloaded, err := repo.ByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.AvailableQuantity)
	assert.Equal(t, models.StockStatusInactive, reloaded.Status)
}

func TestAvailableOrderingAndFilter(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()

	later, err := fixtures.CreateTestStock("Brahma", 10, 14)
	require.NoError(t, err)
	sooner, err := fixtures.CreateTestStock("Leghorn", 10, 7)
	require.NoError(t, err)
	_, err = fixtures.CreateTestStock("Cochin", 0, 7)
	require.NoError(t, err)

	stocks, err := repo.Available(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, sooner.ID, stocks[0].ID)
	assert.Equal(t, later.ID, stocks[1].ID)

	breed := "Brahma"
	filtered, err := repo.Available(ctx, &breed)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, later.ID, filtered[0].ID)
}

func TestExpiredActiveAndMarkArchived(t *testing.T) {
	repo, fixtures := setupStockRepo(t)
	ctx := context.Background()
	today := utils.DateOnly(time.Now())

	past, err := fixtures.CreateTestStock("Brahma", 10, -2)
	require.NoError(t, err)
	_, err = fixtures.CreateTestStock("Leghorn", 10, 3)
	require.NoError(t, err)

	expired, err := repo.ExpiredActive(ctx, today)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, past.ID, expired[0].ID)

	require.NoError(t, repo.MarkArchived(ctx, past.ID))

	reloaded, err := repo.ByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusArchived, reloaded.Status)

	// Archived batches drop out of the expired listing.
	expired, err = repo.ExpiredActive(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
