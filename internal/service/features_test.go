package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/service"
	"github.com/shopspring/decimal"
)

// checkoutFeature хранит состояние одного сценария
type checkoutFeature struct {
	t     *testing.T
	shop  *shop
	order *models.Order
	err   error
}

func (f *checkoutFeature) reset() {
	f.shop = newShop(f.t)
	f.order = nil
	f.err = nil
}

func (f *checkoutFeature) catalogHasProduct(id int64, name, price string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	f.shop.products.Put(models.Product{ID: id, Name: name, Price: p, Category: "ranks"})
	return nil
}

func (f *checkoutFeature) percentageCoupon(code string, percent int, minimum string, used, limit int) error {
	f.shop.addCoupon(f.t, code, couponOpts{
		value:     fmt.Sprintf("%d", percent),
		minimum:   minimum,
		current:   used,
		maxUsages: limit,
	})
	return nil
}

func (f *checkoutFeature) sessionHasInCart(sessionID string, qty int, productID int64) error {
	_, err := f.shop.carts.AddLine(context.Background(), sessionID, productID, qty)
	return err
}

func (f *checkoutFeature) checksOut(sessionID, code, email string) error {
	placed, err := f.shop.checkout.PlaceOrder(context.Background(), service.PlaceOrderInput{
		SessionID:     sessionID,
		CouponCode:    code,
		Email:         email,
		PaymentMethod: "paypal",
	})
	if err != nil {
		return err
	}
	f.order = placed.Order
	return nil
}

func (f *checkoutFeature) pricedStrictly(sessionID, code string) error {
	lines, err := f.shop.carts.GetLines(context.Background(), sessionID)
	if err != nil {
		return err
	}
	_, f.err = f.shop.engine.PriceCart(context.Background(), lines, code, service.Strict)
	return nil
}

func (f *checkoutFeature) orderTotals(original, discount, final string) error {
	if f.order == nil {
		return errors.New("no order was placed")
	}
	for _, c := range []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"original", f.order.OriginalAmount, original},
		{"discount", f.order.DiscountAmount, discount},
		{"final", f.order.TotalAmount, final},
	} {
		if models.FormatMoney(c.got) != c.want {
			return fmt.Errorf("%s amount: got %s, want %s", c.name, models.FormatMoney(c.got), c.want)
		}
	}
	return nil
}

func (f *checkoutFeature) couponUsed(code string, usages int) error {
	c, err := f.shop.coupons.GetByCode(context.Background(), code)
	if err != nil {
		return err
	}
	if c.CurrentUsages != usages {
		return fmt.Errorf("coupon %s used %d times, want %d", code, c.CurrentUsages, usages)
	}
	return nil
}

func (f *checkoutFeature) cartEmpty(sessionID string) error {
	lines, err := f.shop.carts.GetLines(context.Background(), sessionID)
	if err != nil {
		return err
	}
	if len(lines) != 0 {
		return fmt.Errorf("cart of %s has %d lines", sessionID, len(lines))
	}
	return nil
}

func (f *checkoutFeature) orderMarked(status string) error {
	_, err := f.shop.orders.UpdateStatus(context.Background(), f.order.ID, f.order.Status, models.OrderStatus(status))
	return err
}

func (f *checkoutFeature) cancels(email string) error {
	_, f.err = f.shop.lifecycle.Cancel(context.Background(), f.order.ID, service.Requester{ContactEmail: email})
	return nil
}

func (f *checkoutFeature) orderStatus(status string) error {
	stored, err := f.shop.orders.GetByID(context.Background(), f.order.ID)
	if err != nil {
		return err
	}
	if string(stored.Status) != status {
		return fmt.Errorf("order status %s, want %s", stored.Status, status)
	}
	return nil
}

func (f *checkoutFeature) requestFails(kind string) error {
	if f.err == nil {
		return fmt.Errorf("expected %s, request succeeded", kind)
	}
	var rejection *service.CouponRejection
	switch {
	case errors.As(f.err, &rejection):
		if rejection.Reason == kind {
			return nil
		}
	case kind == "invalid_transition" && errors.Is(f.err, service.ErrInvalidTransition):
		return nil
	}
	return fmt.Errorf("expected %s, got %v", kind, f.err)
}

func TestCheckoutFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			f := &checkoutFeature{t: t}
			ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
				f.reset()
				return c, nil
			})

			ctx.Step(`^the catalog has product (\d+) "([^"]*)" priced "([^"]*)"$`, f.catalogHasProduct)
			ctx.Step(`^a percentage coupon "([^"]*)" of (\d+)% with minimum "([^"]*)" used (\d+) of (\d+) times$`, f.percentageCoupon)
			ctx.Step(`^session "([^"]*)" has (\d+) of product (\d+) in the cart$`, f.sessionHasInCart)
			ctx.Step(`^session "([^"]*)" checks out with coupon "([^"]*)" as "([^"]*)"$`, f.checksOut)
			ctx.Step(`^the cart of session "([^"]*)" is priced strictly with coupon "([^"]*)"$`, f.pricedStrictly)
			ctx.Step(`^the order is marked "([^"]*)"$`, f.orderMarked)
			ctx.Step(`^"([^"]*)" cancels the order$`, f.cancels)

			ctx.Step(`^the order totals are original "([^"]*)", discount "([^"]*)" and final "([^"]*)"$`, f.orderTotals)
			ctx.Step(`^coupon "([^"]*)" has been used (\d+) times$`, f.couponUsed)
			ctx.Step(`^the cart of session "([^"]*)" is empty$`, f.cartEmpty)
			ctx.Step(`^the order status is "([^"]*)"$`, f.orderStatus)
			ctx.Step(`^the request fails with "([^"]*)"$`, f.requestFails)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
