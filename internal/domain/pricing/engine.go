// internal/domain/pricing/engine.go
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/domain/promotion"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
)

// LineItem is a cart line handed to the discount engine
type LineItem struct {
	ProductID uint         `json:"product_id"`
	Size      product.Size `json:"size"`
	Color     string       `json:"color"`
	SKU       string       `json:"sku"`
	Quantity  int          `json:"quantity"`
	UnitPrice int64        `json:"unit_price"` // Price at add time; 0 means use the variant's current price
}

// PricedItem is a line item annotated with the discount outcome
type PricedItem struct {
	LineItem
	OriginalPrice int64 `json:"original_price"` // Per unit, in cents
	SalePrice     int64 `json:"sale_price"`     // Per unit after the winning flash sale; equals OriginalPrice when unaffected
	FlashDiscount int64 `json:"flash_discount"` // Whole-line flash-sale discount
}

// LineTotal returns the undiscounted line value
func (p *PricedItem) LineTotal() int64 {
	return p.OriginalPrice * int64(p.Quantity)
}

// EffectiveTotal returns the line value after the flash-sale discount
func (p *PricedItem) EffectiveTotal() int64 {
	return p.SalePrice * int64(p.Quantity)
}

// Breakdown summarizes where the total discount came from
type Breakdown struct {
	FlashSaleID       *uint  `json:"flash_sale_id,omitempty"`
	FlashSaleName     string `json:"flash_sale_name,omitempty"`
	FlashSaleDiscount int64  `json:"flash_sale_discount"`
	CouponCode        string `json:"coupon_code,omitempty"`
	CouponDiscount    int64  `json:"coupon_discount"`
	TotalDiscount     int64  `json:"total_discount"`
}

// Result is the full output of a resolution pass
type Result struct {
	Items     []PricedItem `json:"items"`
	Breakdown Breakdown    `json:"breakdown"`
}

// PromotionStore supplies coupon and flash-sale records
type PromotionStore interface {
	FindCouponByCode(ctx context.Context, code string) (*promotion.Coupon, error)
	FindActiveFlashSales(ctx context.Context, now time.Time) ([]promotion.FlashSale, error)
}

// CouponUsageCounter counts a user's past redemptions of a coupon. Cancelled
// orders do not count.
type CouponUsageCounter interface {
	CountCouponUse(ctx context.Context, userID uint, code string) (int64, error)
}

// Engine resolves the best flash-sale discount and an optional coupon
// discount for a set of cart lines. It reads the promotion store but performs
// all arithmetic itself.
type Engine struct {
	promos PromotionStore
	usage  CouponUsageCounter
	now    func() time.Time
}

// NewEngine creates a discount resolution engine
func NewEngine(promos PromotionStore, usage CouponUsageCounter) *Engine {
	return &Engine{
		promos: promos,
		usage:  usage,
		now:    time.Now,
	}
}

// WithClock overrides the engine clock, for tests
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Resolve runs the flash-sale pass and, if couponCode is non-empty, the
// coupon pass on top. Both discounts stack: the coupon is computed on
// post-flash-sale prices and there is deliberately no combined cap beyond
// each source's own clamp.
func (e *Engine) Resolve(ctx context.Context, items []LineItem, products map[uint]*product.Product, couponCode string, userID uint) (*Result, error) {
	priced, err := e.priceLines(items, products)
	if err != nil {
		return nil, err
	}

	result := &Result{Items: priced}

	if err := e.applyBestFlashSale(ctx, result); err != nil {
		return nil, err
	}

	if couponCode != "" {
		if err := e.applyCoupon(ctx, result, products, couponCode, userID); err != nil {
			return nil, err
		}
	}

	result.Breakdown.TotalDiscount = result.Breakdown.FlashSaleDiscount + result.Breakdown.CouponDiscount
	return result, nil
}

// priceLines establishes the baseline per-unit price for every line
func (e *Engine) priceLines(items []LineItem, products map[uint]*product.Product) ([]PricedItem, error) {
	priced := make([]PricedItem, 0, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || p == nil {
			return nil, apperr.Newf(apperr.KindProductUnavailable, "product %d not found", item.ProductID)
		}

		unit := item.UnitPrice
		if unit <= 0 {
			variant := p.FindVariant(item.Size, item.Color)
			if variant == nil {
				return nil, apperr.Newf(apperr.KindVariantUnavailable,
					"product %q has no %s/%s variant", p.Name, item.Size, item.Color)
			}
			unit = variant.Price
		}

		priced = append(priced, PricedItem{
			LineItem:      item,
			OriginalPrice: unit,
			SalePrice:     unit,
		})
	}
	return priced, nil
}

// applyBestFlashSale evaluates every active sale against the whole cart and
// keeps the one with the strictly greatest total discount. Sales arrive from
// the store in priority order, so an exact tie keeps the first (highest
// priority) sale seen.
func (e *Engine) applyBestFlashSale(ctx context.Context, result *Result) error {
	sales, err := e.promos.FindActiveFlashSales(ctx, e.now())
	if err != nil {
		return apperr.Wrap(apperr.KindPersistenceFailure, "failed to load active flash sales", err)
	}

	var best *promotion.FlashSale
	var bestTotal int64
	var bestLines []int64

	for i := range sales {
		sale := &sales[i]
		lines := make([]int64, len(result.Items))
		var total int64

		for j := range result.Items {
			item := &result.Items[j]
			entry := sale.FindItem(item.ProductID, item.Size, item.Color)
			if entry == nil || entry.Remaining() < item.Quantity {
				continue
			}
			perUnit := item.OriginalPrice - entry.SalePrice
			if perUnit <= 0 {
				continue
			}
			lines[j] = perUnit * int64(item.Quantity)
			total += lines[j]
		}

		if total > bestTotal {
			best = sale
			bestTotal = total
			bestLines = lines
		}
	}

	if best == nil {
		return nil
	}

	for j := range result.Items {
		if bestLines[j] == 0 {
			continue
		}
		item := &result.Items[j]
		entry := best.FindItem(item.ProductID, item.Size, item.Color)
		item.SalePrice = entry.SalePrice
		item.FlashDiscount = bestLines[j]
	}

	saleID := best.ID
	result.Breakdown.FlashSaleID = &saleID
	result.Breakdown.FlashSaleName = best.Name
	result.Breakdown.FlashSaleDiscount = bestTotal
	return nil
}

// applyCoupon validates the coupon and computes its discount on the
// applicable amount, i.e. the post-flash-sale value of the qualifying lines
func (e *Engine) applyCoupon(ctx context.Context, result *Result, products map[uint]*product.Product, code string, userID uint) error {
	coupon, err := e.promos.FindCouponByCode(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistenceFailure, "failed to look up coupon", err)
	}
	if coupon == nil {
		return apperr.Newf(apperr.KindInvalidCoupon, "coupon %q does not exist", code)
	}
	if !coupon.IsCurrentlyValid(e.now()) {
		return apperr.Newf(apperr.KindCouponExpired, "coupon %s is no longer valid", coupon.Code)
	}

	if userID != 0 && coupon.PerUserLimit > 0 {
		used, err := e.usage.CountCouponUse(ctx, userID, coupon.Code)
		if err != nil {
			return apperr.Wrap(apperr.KindPersistenceFailure, "failed to count coupon usage", err)
		}
		if used >= int64(coupon.PerUserLimit) {
			return apperr.Newf(apperr.KindCouponLimitReached,
				"coupon %s already used %d times", coupon.Code, used)
		}
	}

	var applicable int64
	qualifying := 0
	for i := range result.Items {
		item := &result.Items[i]
		p := products[item.ProductID]
		if p == nil || !coupon.AppliesTo(p) {
			continue
		}
		qualifying++
		applicable += item.EffectiveTotal()
	}

	if qualifying == 0 {
		return apperr.Newf(apperr.KindCouponNotApplicable,
			"coupon %s does not apply to any item in the cart", coupon.Code)
	}
	if applicable < coupon.MinOrderAmount {
		return apperr.Newf(apperr.KindMinOrderNotMet,
			"coupon %s requires a minimum order of %.2f", coupon.Code, float64(coupon.MinOrderAmount)/100)
	}

	var discount int64
	switch coupon.DiscountType {
	case promotion.DiscountTypePercentage:
		discount = applicable * coupon.Value / 100
		if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
			discount = coupon.MaxDiscount
		}
	case promotion.DiscountTypeFixed:
		discount = coupon.Value
	default:
		return fmt.Errorf("unknown discount type: %s", coupon.DiscountType)
	}

	// Never discount more than the lines the coupon covers are worth
	if discount > applicable {
		discount = applicable
	}

	result.Breakdown.CouponCode = coupon.Code
	result.Breakdown.CouponDiscount = discount
	return nil
}
