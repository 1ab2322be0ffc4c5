package services

import (
	"context"
	"testing"

	. "spruce/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCents(t *testing.T) {
	assert.Equal(t, []int64{10000}, splitCents(10000, 1))
	assert.Equal(t, []int64{5000, 5000}, splitCents(10000, 2))
	assert.Equal(t, []int64{3334, 3333, 3333}, splitCents(10000, 3))
	assert.Equal(t, []int64{3334, 3334, 3333}, splitCents(10001, 3))

	// Shares always add back to the total.
	for _, total := range []int64{1, 99, 10000, 12345} {
		for parts := 1; parts <= 5; parts++ {
			var sum int64
			for _, share := range splitCents(total, parts) {
				sum += share
			}
			assert.Equal(t, total, sum, "total=%d parts=%d", total, parts)
		}
	}
}

func TestCreateForAppointmentMultiCleaner(t *testing.T) {
	env := newTestEnv()
	cleanerA := env.addUser(RoleCleaner)
	cleanerB := env.addUser(RoleCleaner)
	cleanerC := env.addUser(RoleCleaner)
	ctx := context.Background()

	appointment := &Appointment{Price: decimal.NewFromFloat(100.01)}
	env.store.stamp(&appointment.BaseUUIDModel)
	env.store.appointments[appointment.ID] = appointment

	payouts, err := env.payouts.CreateForAppointment(
		ctx, nil, appointment,
		[]uuid.UUID{cleanerA.ID, cleanerB.ID, cleanerC.ID},
		env.now,
	)
	require.NoError(t, err)
	require.Len(t, payouts, 3)

	// 10001 cents split 3 ways: first two assignees absorb the remainder.
	gross := []int64{3334, 3334, 3333}
	var totalNet, totalFee int64
	for i, payout := range payouts {
		expectedFee := roundCents(float64(gross[i]) * env.config.PlatformFeePercent)
		assert.Equal(t, expectedFee, payout.PlatformFeeCents, "payout %d", i)
		assert.Equal(t, gross[i]-expectedFee, payout.AmountCents, "payout %d", i)
		assert.Equal(t, expectedFee, payout.StandardFeeCents, "payout %d", i)
		assert.Equal(t, PayoutPending, payout.Status)
		assert.False(t, payout.IncentiveApplied)
		totalNet += payout.AmountCents
		totalFee += payout.PlatformFeeCents
	}
	assert.Equal(t, int64(10001), totalNet+totalFee)

	// Assignment order decides who gets the extra cent.
	assert.Equal(t, cleanerA.ID, payouts[0].CleanerID)
	assert.Equal(t, int64(3334-payouts[0].PlatformFeeCents), payouts[0].AmountCents)
}

func TestCreateForAppointmentNoCleaners(t *testing.T) {
	env := newTestEnv()

	appointment := &Appointment{Price: decimal.NewFromFloat(100)}
	env.store.stamp(&appointment.BaseUUIDModel)

	payouts, err := env.payouts.CreateForAppointment(
		context.Background(), nil, appointment, nil, env.now,
	)
	require.NoError(t, err)
	assert.Empty(t, payouts)
	assert.Empty(t, env.store.payouts)
}

func TestPayoutStatusTransitions(t *testing.T) {
	env := newTestEnv()
	cleaner := env.addUser(RoleCleaner)
	ctx := context.Background()

	appointment := &Appointment{Price: decimal.NewFromFloat(100)}
	env.store.stamp(&appointment.BaseUUIDModel)
	env.store.appointments[appointment.ID] = appointment

	_, err := env.payouts.CreateForAppointment(
		ctx, nil, appointment, []uuid.UUID{cleaner.ID}, env.now,
	)
	require.NoError(t, err)

	held, err := env.payouts.MarkHeld(ctx, nil, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	// Held rows do not move to held twice.
	held, err = env.payouts.MarkHeld(ctx, nil, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), held)

	released, err := env.payouts.Release(ctx, nil, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	remaining, err := env.repos.Payout.GetByAppointment(ctx, nil, appointment.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, PayoutCompleted, remaining[0].Status)
}

func TestReleaseIncludesPendingRows(t *testing.T) {
	env := newTestEnv()
	cleaner := env.addUser(RoleCleaner)
	ctx := context.Background()

	appointment := &Appointment{Price: decimal.NewFromFloat(100)}
	env.store.stamp(&appointment.BaseUUIDModel)
	env.store.appointments[appointment.ID] = appointment

	_, err := env.payouts.CreateForAppointment(
		ctx, nil, appointment, []uuid.UUID{cleaner.ID}, env.now,
	)
	require.NoError(t, err)

	// Approval without a prior capture still releases.
	released, err := env.payouts.Release(ctx, nil, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
}

func TestDeleteForAppointment(t *testing.T) {
	env := newTestEnv()
	cleaner := env.addUser(RoleCleaner)
	ctx := context.Background()

	appointment := &Appointment{Price: decimal.NewFromFloat(100)}
	env.store.stamp(&appointment.BaseUUIDModel)
	env.store.appointments[appointment.ID] = appointment

	_, err := env.payouts.CreateForAppointment(
		ctx, nil, appointment, []uuid.UUID{cleaner.ID}, env.now,
	)
	require.NoError(t, err)

	require.NoError(t, env.payouts.DeleteForAppointment(ctx, nil, appointment.ID))
	assert.Empty(t, env.store.payouts)
}
