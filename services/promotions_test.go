package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiprej-bot/models"
)

func TestPromotionsActiveWindow(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	now := time.Now()
	yesterday, tomorrow := now.Add(-24*time.Hour), now.Add(24*time.Hour)

	running, err := svc.Promotions.Create(ctx, models.Promotion{Title: "Running", IsActive: true, StartDate: &yesterday, EndDate: &tomorrow})
	require.NoError(t, err)
	_, err = svc.Promotions.Create(ctx, models.Promotion{Title: "Upcoming", IsActive: true, StartDate: &tomorrow})
	require.NoError(t, err)
	_, err = svc.Promotions.Create(ctx, models.Promotion{Title: "Over", IsActive: true, EndDate: &yesterday})
	require.NoError(t, err)
	off, err := svc.Promotions.Create(ctx, models.Promotion{Title: "Switched off", IsActive: false})
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	active, err := svc.Promotions.Active(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, running.ID, active[0].ID)

	all, err := svc.Promotions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPromotionValidationAndDelete(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	now := time.Now()
	earlier := now.Add(-time.Hour)

	_, err := svc.Promotions.Create(ctx, models.Promotion{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Promotions.Create(ctx, models.Promotion{Title: "Backwards", StartDate: &now, EndDate: &earlier})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.Promotions.Create(ctx, models.Promotion{Title: "Sale", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, svc.Promotions.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Promotions.Delete(ctx, p.ID), ErrNotFound)
}
