// internal/domain/promotion/entity_test.go
package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/shoestore-backend/internal/domain/product"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func windowCoupon() *Coupon {
	return &Coupon{
		Code:         "TEST",
		DiscountType: DiscountTypePercentage,
		Value:        10,
		ValidFrom:    now.Add(-time.Hour),
		ValidTo:      now.Add(time.Hour),
		IsActive:     true,
	}
}

func TestCouponIsCurrentlyValid(t *testing.T) {
	c := windowCoupon()
	assert.True(t, c.IsCurrentlyValid(now))

	// Window boundaries are inclusive
	assert.True(t, c.IsCurrentlyValid(c.ValidFrom))
	assert.True(t, c.IsCurrentlyValid(c.ValidTo))
	assert.False(t, c.IsCurrentlyValid(c.ValidFrom.Add(-time.Second)))
	assert.False(t, c.IsCurrentlyValid(c.ValidTo.Add(time.Second)))

	c = windowCoupon()
	c.IsActive = false
	assert.False(t, c.IsCurrentlyValid(now))

	limit := 3
	c = windowCoupon()
	c.UsageLimit = &limit
	c.UsedCount = 2
	assert.True(t, c.IsCurrentlyValid(now))
	c.UsedCount = 3
	assert.False(t, c.IsCurrentlyValid(now))
}

func TestCouponAppliesTo(t *testing.T) {
	p := &product.Product{ID: 1, Brand: "Nike", Category: "running"}

	// Empty allow-lists mean store-wide
	c := windowCoupon()
	assert.True(t, c.AppliesTo(p))

	c.ApplicableBrands = []string{"Adidas"}
	assert.False(t, c.AppliesTo(p))

	c.ApplicableBrands = []string{"Nike"}
	assert.True(t, c.AppliesTo(p))

	c = windowCoupon()
	c.ApplicableCategories = []string{"running"}
	assert.True(t, c.AppliesTo(p))

	c = windowCoupon()
	c.ApplicableProducts = []uint{2}
	assert.False(t, c.AppliesTo(p))
	c.ApplicableProducts = []uint{1}
	assert.True(t, c.AppliesTo(p))

	// Exclusion wins even when the product matches an allow-list
	c.ExcludedProducts = []uint{1}
	assert.False(t, c.AppliesTo(p))
}

func TestFlashSaleIsRunning(t *testing.T) {
	sale := &FlashSale{StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}
	assert.True(t, sale.IsRunning(now))
	assert.True(t, sale.IsRunning(sale.StartTime))
	assert.True(t, sale.IsRunning(sale.EndTime))
	assert.False(t, sale.IsRunning(sale.StartTime.Add(-time.Second)))
	assert.False(t, sale.IsRunning(sale.EndTime.Add(time.Second)))
}

func TestFlashSaleFindItem(t *testing.T) {
	sale := &FlashSale{Items: []FlashSaleItem{
		{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 8000, Quantity: 5},
	}}

	assert.NotNil(t, sale.FindItem(1, product.SizeUS9, "black"))
	assert.Nil(t, sale.FindItem(1, product.SizeUS10, "black"))
	assert.Nil(t, sale.FindItem(2, product.SizeUS9, "black"))
}

func TestFlashSaleItemRemaining(t *testing.T) {
	item := &FlashSaleItem{Quantity: 5, SoldQuantity: 3}
	assert.Equal(t, 2, item.Remaining())

	item.SoldQuantity = 5
	assert.Equal(t, 0, item.Remaining())

	// An oversold counter never reports negative availability
	item.SoldQuantity = 7
	assert.Equal(t, 0, item.Remaining())
}
