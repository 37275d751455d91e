package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/mc-store/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func couponInput(code string) service.CreateCouponInput {
	return service.CreateCouponInput{
		Code:          code,
		DiscountType:  "percentage",
		DiscountValue: money("15"),
		ValidFrom:     fixedNow.Add(-time.Hour),
		ValidUntil:    fixedNow.Add(time.Hour),
		IsActive:      true,
	}
}

func TestCouponService_CreateNormalizesCode(t *testing.T) {
	s := newShop(t)

	created, err := s.couponSvc.Create(context.Background(), couponInput("  summer15 "), admin())
	require.NoError(t, err)
	assert.Equal(t, "SUMMER15", created.Code)

	_, err = s.couponSvc.Create(context.Background(), couponInput("SUMMER15"), admin())
	assert.ErrorIs(t, err, service.ErrCouponExists)
}

func TestCouponService_CreateRejectsInvalid(t *testing.T) {
	s := newShop(t)

	in := couponInput("BIG")
	in.DiscountValue = money("150")
	_, err := s.couponSvc.Create(context.Background(), in, admin())
	assert.ErrorIs(t, err, service.ErrInvalidCoupon)

	in = couponInput("BACKWARDS")
	in.ValidFrom, in.ValidUntil = in.ValidUntil, in.ValidFrom
	_, err = s.couponSvc.Create(context.Background(), in, admin())
	assert.ErrorIs(t, err, service.ErrInvalidCoupon)

	in = couponInput("NOEND")
	in.ValidUntil = time.Time{}
	_, err = s.couponSvc.Create(context.Background(), in, admin())
	assert.ErrorIs(t, err, service.ErrInvalidCoupon)
}

func TestCouponService_AdminOnly(t *testing.T) {
	s := newShop(t)
	user := service.Requester{UserID: "1", AccountEmail: "steve@example.com"}
	ctx := context.Background()

	_, err := s.couponSvc.Create(ctx, couponInput("X"), user)
	assert.ErrorIs(t, err, service.ErrAccessDenied)
	_, err = s.couponSvc.List(ctx, user)
	assert.ErrorIs(t, err, service.ErrAccessDenied)
	_, err = s.couponSvc.SetActive(ctx, 1, false, user)
	assert.ErrorIs(t, err, service.ErrAccessDenied)
	assert.ErrorIs(t, s.couponSvc.Delete(ctx, 1, user), service.ErrAccessDenied)
}

func TestCouponService_ToggleAndDelete(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	created, err := s.couponSvc.Create(ctx, couponInput("TOGGLE"), admin())
	require.NoError(t, err)

	_, err = s.couponSvc.SetActive(ctx, created.ID, false, admin())
	require.NoError(t, err)
	_, err = s.couponSvc.Validate(ctx, "toggle", money("100"))
	assert.ErrorIs(t, err, service.ErrCouponInactive)

	_, err = s.couponSvc.SetActive(ctx, created.ID, true, admin())
	require.NoError(t, err)
	quote, err := s.couponSvc.Validate(ctx, "toggle", money("100"))
	require.NoError(t, err)
	assert.True(t, money("15.00").Equal(quote.DiscountAmount))
	assert.True(t, money("85.00").Equal(quote.FinalAmount))

	list, err := s.couponSvc.List(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.couponSvc.Delete(ctx, created.ID, admin()))
	assert.ErrorIs(t, s.couponSvc.Delete(ctx, created.ID, admin()), service.ErrNotFound)
	_, err = s.couponSvc.SetActive(ctx, created.ID, true, admin())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
