package businessflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	brootesting "github.com/ptichkin/brooder/testing"
)

func setupGuard(t *testing.T) (businessflow.PhoneGuardFlow, repository.PhoneRepository) {
	t.Helper()
	tdb, err := brootesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	phoneRepo := repository.NewPhoneRepository(tdb.DB)
	return businessflow.NewPhoneGuardFlow(phoneRepo, testGuardConfig()), phoneRepo
}

func TestAuthorizeAllowsSmallUnverifiedOrders(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	err := guard.Authorize(ctx, "+79001234567", 50)
	assert.NoError(t, err)
}

func TestAuthorizeRejectsInvalidPhone(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	err := guard.Authorize(ctx, "12345", 1)
	assert.ErrorIs(t, err, businessflow.ErrPhoneInvalid)
}

func TestAuthorizeCapAndEscalation(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()
	phone := "+79001112233"

	// Two oversized attempts hit the cap but stay unblocked.
	err := guard.Authorize(ctx, phone, 51)
	assert.True(t, businessflow.IsUnverifiedQuantityCap(err))
	err = guard.Authorize(ctx, phone, 60)
	assert.True(t, businessflow.IsUnverifiedQuantityCap(err))

	// The third attempt exceeds the threshold and escalates to a block,
	// regardless of its quantity.
	err = guard.Authorize(ctx, phone, 1)
	assert.True(t, businessflow.IsPhoneBlocked(err))

	blocked, err := guard.IsBlocked(ctx, phone)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestAuthorizeCountsEveryUntrustedAttempt(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()
	phone := "+79002223344"

	// Within-cap orders are allowed but still count toward the threshold.
	require.NoError(t, guard.Authorize(ctx, phone, 5))
	require.NoError(t, guard.Authorize(ctx, phone, 5))

	err := guard.Authorize(ctx, phone, 5)
	assert.True(t, businessflow.IsPhoneBlocked(err))
}

func TestAuthorizeTrustedBypassesCap(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()
	phone := "+79003334455"

	require.NoError(t, guard.GrantTrust(ctx, phone, 42, nil, models.TrustSourceAuto))

	err := guard.Authorize(ctx, phone, 500)
	assert.NoError(t, err)
}

func TestAdminBlockAndUnblock(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()
	phone := "+79004445566"
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}
	customer := &businessflow.Actor{UserID: 2}

	// Customers cannot manage the block list.
	err := guard.Block(ctx, customer, phone, "spam")
	assert.True(t, businessflow.IsNotAuthorized(err))

	require.NoError(t, guard.Block(ctx, admin, phone, "spam"))

	// Admin blocks have no expiry.
	err = guard.Authorize(ctx, phone, 1)
	assert.True(t, businessflow.IsPhoneBlocked(err))

	require.NoError(t, guard.Unblock(ctx, admin, phone))
	assert.NoError(t, guard.Authorize(ctx, phone, 1))
}

func TestRevokeTrustRestoresCap(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()
	phone := "+79005556677"
	admin := &businessflow.Actor{UserID: 1, IsAdmin: true}

	require.NoError(t, guard.GrantTrust(ctx, phone, 42, &admin.UserID, models.TrustSourceAdmin))
	assert.NoError(t, guard.Authorize(ctx, phone, 200))

	require.NoError(t, guard.RevokeTrust(ctx, admin, phone))
	err := guard.Authorize(ctx, phone, 200)
	assert.True(t, businessflow.IsUnverifiedQuantityCap(err))
}

func TestGrantTrustIsIdempotent(t *testing.T) {
	guard, phoneRepo := setupGuard(t)
	ctx := context.Background()
	phone := "+79006667788"

	require.NoError(t, guard.GrantTrust(ctx, phone, 42, nil, models.TrustSourceAuto))
	require.NoError(t, guard.GrantTrust(ctx, phone, 42, nil, models.TrustSourceAuto))

	trusted, err := phoneRepo.IsTrusted(ctx, phone)
	require.NoError(t, err)
	assert.True(t, trusted)
}
