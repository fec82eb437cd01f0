// internal/domain/pricing/engine_test.go
package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/domain/promotion"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
)

type fakePromotionStore struct {
	coupons map[string]*promotion.Coupon
	sales   []promotion.FlashSale
}

func (f *fakePromotionStore) FindCouponByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	return f.coupons[code], nil
}

func (f *fakePromotionStore) FindActiveFlashSales(ctx context.Context, now time.Time) ([]promotion.FlashSale, error) {
	return f.sales, nil
}

type fakeUsageCounter struct {
	counts map[string]int64
}

func (f *fakeUsageCounter) CountCouponUse(ctx context.Context, userID uint, code string) (int64, error) {
	return f.counts[code], nil
}

var testClock = func() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(promos *fakePromotionStore, usage *fakeUsageCounter) *Engine {
	if promos.coupons == nil {
		promos.coupons = map[string]*promotion.Coupon{}
	}
	if usage == nil {
		usage = &fakeUsageCounter{}
	}
	if usage.counts == nil {
		usage.counts = map[string]int64{}
	}
	return NewEngine(promos, usage).WithClock(testClock)
}

func testProduct(id uint, brand, category string, variants ...product.Variant) *product.Product {
	return &product.Product{
		ID:       id,
		Name:     "Test Shoe",
		Brand:    brand,
		Category: category,
		IsActive: true,
		Variants: variants,
	}
}

func testVariant(size product.Size, color string, price int64) product.Variant {
	return product.Variant{Size: size, Color: color, Price: price, Stock: 100, IsActive: true}
}

func validCoupon(code string) *promotion.Coupon {
	return &promotion.Coupon{
		Code:         code,
		DiscountType: promotion.DiscountTypePercentage,
		Value:        10,
		ValidFrom:    testClock().Add(-time.Hour),
		ValidTo:      testClock().Add(time.Hour),
		IsActive:     true,
	}
}

func runningSale(id uint, name string, priority int, items ...promotion.FlashSaleItem) promotion.FlashSale {
	return promotion.FlashSale{
		ID:        id,
		Name:      name,
		Priority:  priority,
		StartTime: testClock().Add(-time.Hour),
		EndTime:   testClock().Add(time.Hour),
		IsActive:  true,
		Items:     items,
	}
}

func TestResolveNoPromotions(t *testing.T) {
	engine := newTestEngine(&fakePromotionStore{}, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 2}}

	result, err := engine.Resolve(context.Background(), items, products, "", 7)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(9999), result.Items[0].OriginalPrice)
	assert.Equal(t, int64(9999), result.Items[0].SalePrice)
	assert.Equal(t, int64(19998), result.Items[0].EffectiveTotal())
	assert.Equal(t, int64(0), result.Breakdown.TotalDiscount)
	assert.Nil(t, result.Breakdown.FlashSaleID)
}

func TestResolveUsesSnapshotPriceWhenProvided(t *testing.T) {
	engine := newTestEngine(&fakePromotionStore{}, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 12000)),
	}
	// Price captured at add-to-cart time wins over the current variant price
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1, UnitPrice: 9999}}

	result, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(9999), result.Items[0].OriginalPrice)
}

func TestResolveUnknownProduct(t *testing.T) {
	engine := newTestEngine(&fakePromotionStore{}, nil)
	items := []LineItem{{ProductID: 42, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, map[uint]*product.Product{}, "", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindProductUnavailable))
}

func TestResolveUnknownVariant(t *testing.T) {
	engine := newTestEngine(&fakePromotionStore{}, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "red", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindVariantUnavailable))
}

func TestBestFlashSaleWins(t *testing.T) {
	// Two overlapping sales cover the same variant; the one saving more in
	// total must win regardless of listing order.
	promos := &fakePromotionStore{
		sales: []promotion.FlashSale{
			runningSale(1, "Small Sale", 5,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 9000, Quantity: 10}),
			runningSale(2, "Big Sale", 1,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 8500, Quantity: 10}),
		},
	}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 2}}

	result, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.NoError(t, err)

	require.NotNil(t, result.Breakdown.FlashSaleID)
	assert.Equal(t, uint(2), *result.Breakdown.FlashSaleID)
	assert.Equal(t, "Big Sale", result.Breakdown.FlashSaleName)
	assert.Equal(t, int64(3000), result.Breakdown.FlashSaleDiscount)
	assert.Equal(t, int64(8500), result.Items[0].SalePrice)
}

func TestFlashSaleExactTieKeepsFirstListed(t *testing.T) {
	// The store returns sales in priority order; on an exact discount tie the
	// first seen sale is kept.
	promos := &fakePromotionStore{
		sales: []promotion.FlashSale{
			runningSale(3, "High Priority", 10,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 9000, Quantity: 10}),
			runningSale(4, "Low Priority", 1,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 9000, Quantity: 10}),
		},
	}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	result, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.NoError(t, err)
	require.NotNil(t, result.Breakdown.FlashSaleID)
	assert.Equal(t, uint(3), *result.Breakdown.FlashSaleID)
}

func TestFlashSaleSkipsExhaustedEntries(t *testing.T) {
	promos := &fakePromotionStore{
		sales: []promotion.FlashSale{
			runningSale(1, "Nearly Gone", 0,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 8000, Quantity: 5, SoldQuantity: 4}),
		},
	}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	// Only 1 unit remains at the sale price but the line wants 2
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 2}}

	result, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.NoError(t, err)
	assert.Nil(t, result.Breakdown.FlashSaleID)
	assert.Equal(t, int64(10000), result.Items[0].SalePrice)
}

func TestFlashSaleIgnoresPriceIncrease(t *testing.T) {
	promos := &fakePromotionStore{
		sales: []promotion.FlashSale{
			runningSale(1, "Bad Deal", 0,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 11000, Quantity: 10}),
		},
	}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	result, err := engine.Resolve(context.Background(), items, products, "", 0)
	require.NoError(t, err)
	assert.Nil(t, result.Breakdown.FlashSaleID)
	assert.Equal(t, int64(10000), result.Items[0].SalePrice)
}

func TestCouponStacksOnFlashSalePrices(t *testing.T) {
	// A 100.00 line drops to 80.00 under the sale; the 10% coupon then takes
	// 8.00, not 10.00.
	coupon := validCoupon("STACK10")
	promos := &fakePromotionStore{
		coupons: map[string]*promotion.Coupon{"STACK10": coupon},
		sales: []promotion.FlashSale{
			runningSale(1, "Sale", 0,
				promotion.FlashSaleItem{ProductID: 1, Size: product.SizeUS9, Color: "black", SalePrice: 8000, Quantity: 10}),
		},
	}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	result, err := engine.Resolve(context.Background(), items, products, "STACK10", 7)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), result.Breakdown.FlashSaleDiscount)
	assert.Equal(t, int64(800), result.Breakdown.CouponDiscount)
	assert.Equal(t, int64(2800), result.Breakdown.TotalDiscount)
}

func TestCouponPercentageCappedByMaxDiscount(t *testing.T) {
	coupon := validCoupon("HALF")
	coupon.Value = 50
	coupon.MaxDiscount = 2000
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"HALF": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	result, err := engine.Resolve(context.Background(), items, products, "HALF", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.Breakdown.CouponDiscount)
}

func TestCouponFixedClampedToApplicableAmount(t *testing.T) {
	coupon := validCoupon("BIGFIXED")
	coupon.DiscountType = promotion.DiscountTypeFixed
	coupon.Value = 50000
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"BIGFIXED": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	result, err := engine.Resolve(context.Background(), items, products, "BIGFIXED", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), result.Breakdown.CouponDiscount)
}

func TestCouponMinOrderBoundary(t *testing.T) {
	coupon := validCoupon("MIN100")
	coupon.MinOrderAmount = 10000
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"MIN100": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running",
			testVariant(product.SizeUS9, "black", 9999),
			testVariant(product.SizeUS10, "black", 10000)),
	}

	// 99.99 misses a 100.00 minimum
	_, err := engine.Resolve(context.Background(),
		[]LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}},
		products, "MIN100", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindMinOrderNotMet))

	// Exactly 100.00 qualifies
	result, err := engine.Resolve(context.Background(),
		[]LineItem{{ProductID: 1, Size: product.SizeUS10, Color: "black", Quantity: 1}},
		products, "MIN100", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Breakdown.CouponDiscount)
}

func TestCouponUnknownCode(t *testing.T) {
	engine := newTestEngine(&fakePromotionStore{}, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "NOPE", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCoupon))
}

func TestCouponExpired(t *testing.T) {
	coupon := validCoupon("OLD")
	coupon.ValidTo = testClock().Add(-time.Minute)
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"OLD": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "OLD", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCouponExpired))
}

func TestCouponGlobalLimitExhausted(t *testing.T) {
	limit := 5
	coupon := validCoupon("SOLDOUT")
	coupon.UsageLimit = &limit
	coupon.UsedCount = 5
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"SOLDOUT": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "SOLDOUT", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCouponExpired))
}

func TestCouponPerUserLimit(t *testing.T) {
	coupon := validCoupon("ONCE")
	coupon.PerUserLimit = 1
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"ONCE": coupon}}
	usage := &fakeUsageCounter{counts: map[string]int64{"ONCE": 1}}
	engine := newTestEngine(promos, usage)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "ONCE", 7)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCouponLimitReached))
}

func TestCouponNotApplicableToCart(t *testing.T) {
	coupon := validCoupon("NIKEONLY")
	coupon.ApplicableBrands = []string{"Nike"}
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"NIKEONLY": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Adidas", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "NIKEONLY", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCouponNotApplicable))
}

func TestCouponDiscountsOnlyQualifyingLines(t *testing.T) {
	coupon := validCoupon("RUN10")
	coupon.ApplicableCategories = []string{"running"}
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"RUN10": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 10000)),
		2: testProduct(2, "Nike", "basketball", testVariant(product.SizeUS10, "white", 20000)),
	}
	items := []LineItem{
		{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1},
		{ProductID: 2, Size: product.SizeUS10, Color: "white", Quantity: 1},
	}

	result, err := engine.Resolve(context.Background(), items, products, "RUN10", 0)
	require.NoError(t, err)
	// 10% of the running line only
	assert.Equal(t, int64(1000), result.Breakdown.CouponDiscount)
}

func TestCouponExclusionBeatsAllowList(t *testing.T) {
	coupon := validCoupon("CONTRA")
	coupon.ApplicableProducts = []uint{1}
	coupon.ExcludedProducts = []uint{1}
	promos := &fakePromotionStore{coupons: map[string]*promotion.Coupon{"CONTRA": coupon}}
	engine := newTestEngine(promos, nil)
	products := map[uint]*product.Product{
		1: testProduct(1, "Nike", "running", testVariant(product.SizeUS9, "black", 9999)),
	}
	items := []LineItem{{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1}}

	_, err := engine.Resolve(context.Background(), items, products, "CONTRA", 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCouponNotApplicable))
}
