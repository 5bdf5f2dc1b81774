package service

import (
	"context"
	"testing"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_RequireAdmin(t *testing.T) {
	env := newTestEnv()

	assert.NoError(t, env.admin.RequireAdmin("addr_admin"))

	err := env.admin.RequireAdmin("addr_buyer")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAdminService_RequireAdmin_EmptyConfigDeniesEveryone(t *testing.T) {
	env := newTestEnv()
	env.admin.platform.AdminAddress = ""

	assert.Error(t, env.admin.RequireAdmin(""))
	assert.Error(t, env.admin.RequireAdmin("addr_admin"))
}

func TestAdminService_WhitelistLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.admin.WhitelistToken(ctx, "addr_admin", "USDC"))

	ok, err := env.assets.IsWhitelisted(ctx, "USDC")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, env.admin.RemoveTokenWhitelist(ctx, "addr_admin", "USDC"))

	ok, err = env.assets.IsWhitelisted(ctx, "USDC")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminService_WhitelistToken_NonAdmin(t *testing.T) {
	env := newTestEnv()

	err := env.admin.WhitelistToken(context.Background(), "addr_buyer", "USDC")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAdminService_SetInfraPricing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pricing := &domain.InfraPricing{
		InfraID: "infra-1",
		Model:   domain.PricingModelHourly,
		Rate:    5,
		Asset:   "USDC",
	}
	require.NoError(t, env.admin.SetInfraPricing(ctx, "addr_admin", pricing))

	stored, err := env.pricing.GetInfraPricing(ctx, "infra-1", domain.PricingModelHourly)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(5), stored.Rate)

	t.Run("rejects non-positive rate", func(t *testing.T) {
		bad := &domain.InfraPricing{InfraID: "infra-1", Model: domain.PricingModelHourly, Rate: 0, Asset: "USDC"}
		err := env.admin.SetInfraPricing(ctx, "addr_admin", bad)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "LED_001", appErr.Code)
	})

	t.Run("rejects unknown model", func(t *testing.T) {
		bad := &domain.InfraPricing{InfraID: "infra-1", Model: domain.PricingModel("WEEKLY"), Rate: 5, Asset: "USDC"}
		err := env.admin.SetInfraPricing(ctx, "addr_admin", bad)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VAL_001", appErr.Code)
	})
}

func TestAdminService_SetTierPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.admin.SetTierPrice(ctx, "addr_admin", domain.TierPremium, "USDC", 10))

	price, found, err := env.pricing.GetTierPrice(ctx, domain.TierPremium, "USDC")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(10), price)

	t.Run("basic tier has no price", func(t *testing.T) {
		err := env.admin.SetTierPrice(ctx, "addr_admin", domain.TierBasic, "USDC", 10)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "SUB_001", appErr.Code)
	})
}

func TestAdminService_VerifyAndDeactivateAccount(t *testing.T) {
	env := newTestEnv()
	a := env.addAccount("addr_buyer", nil)
	a.IsVerified = false
	ctx := context.Background()

	require.NoError(t, env.admin.VerifyAccount(ctx, "addr_admin", "addr_buyer"))
	assert.True(t, a.IsVerified)

	require.NoError(t, env.admin.DeactivateAccount(ctx, "addr_admin", "addr_buyer"))
	assert.False(t, a.IsActive)

	t.Run("unknown account", func(t *testing.T) {
		err := env.admin.VerifyAccount(ctx, "addr_admin", "addr_ghost")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "LED_004", appErr.Code)
	})
}
