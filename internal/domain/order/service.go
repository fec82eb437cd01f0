// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/shoestore-backend/internal/config"
	"github.com/your-org/shoestore-backend/internal/domain/cart"
	"github.com/your-org/shoestore-backend/internal/domain/inventory"
	"github.com/your-org/shoestore-backend/internal/domain/pricing"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
	"github.com/your-org/shoestore-backend/internal/pkg/notify"
)

const orderNumberAttempts = 5

// Catalog is the slice of the catalog the assembly engine reads
type Catalog interface {
	GetProduct(ctx context.Context, id uint) (*product.Product, error)
}

// Reserver reserves and releases variant stock
type Reserver interface {
	Reserve(ctx context.Context, productID uint, size product.Size, color string, quantity int) (*inventory.Reservation, error)
	Release(ctx context.Context, res *inventory.Reservation) error
	ReleaseAll(ctx context.Context, reservations []*inventory.Reservation)
}

// Resolver computes flash-sale and coupon discounts for a set of lines
type Resolver interface {
	Resolve(ctx context.Context, items []pricing.LineItem, products map[uint]*product.Product, couponCode string, userID uint) (*pricing.Result, error)
}

// PromotionCounters is the post-commit usage accounting surface. Counters are
// denormalized aggregates; the order record stays the source of truth.
type PromotionCounters interface {
	IncrementCouponUsage(ctx context.Context, code string) error
	IncrementFlashSaleSold(ctx context.Context, saleID, productID uint, size product.Size, color string, qty int) error
}

// CartSource supplies and clears the user's cart
type CartSource interface {
	GetCart(ctx context.Context, userID uint) (*cart.Cart, error)
	ClearCart(ctx context.Context, userID uint) error
}

// Service assembles, persists and manages orders
type Service struct {
	store     Store
	catalog   Catalog
	reserver  Reserver
	resolver  Resolver
	promos    PromotionCounters
	carts     CartSource
	notifier  notify.Sink
	config    *config.Config
	log       *logrus.Logger
	now       func() time.Time
	randomInt func(n int) int
}

// NewService creates a new order service
func NewService(store Store, catalog Catalog, reserver Reserver, resolver Resolver,
	promos PromotionCounters, carts CartSource, notifier notify.Sink,
	cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		reserver:  reserver,
		resolver:  resolver,
		promos:    promos,
		carts:     carts,
		notifier:  notifier,
		config:    cfg,
		log:       log,
		now:       time.Now,
		randomInt: rand.Intn,
	}
}

// CreateOrderRequest represents order creation data. When Items is empty the
// user's cart is the source of lines.
type CreateOrderRequest struct {
	Items           []pricing.LineItem `json:"items,omitempty"`
	ShippingAddress Address            `json:"shipping_address" binding:"required"`
	ShippingMethod  string             `json:"shipping_method" binding:"required"`
	CouponCode      string             `json:"coupon_code,omitempty"`
}

// CreateOrder runs the full checkout: validate lines, reserve stock, resolve
// discounts, compute totals, persist, then clear cart and commit usage
// counters. Any failure after a partial reservation releases every
// reservation made in this attempt before the error is returned.
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	lines, fromCart, err := s.resolveLines(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	// Reserve stock line by line; from here on every exit path must release
	// what was reserved.
	var reservations []*inventory.Reservation
	for _, line := range lines {
		res, err := s.reserver.Reserve(ctx, line.ProductID, line.Size, line.Color, line.Quantity)
		if err != nil {
			s.reserver.ReleaseAll(ctx, reservations)
			return nil, err
		}
		reservations = append(reservations, res)
	}

	result, err := s.resolver.Resolve(ctx, lines, products, req.CouponCode, userID)
	if err != nil {
		s.reserver.ReleaseAll(ctx, reservations)
		return nil, err
	}

	o := s.assembleOrder(userID, req, products, reservations, result)

	if err := s.persistWithUniqueNumber(ctx, o); err != nil {
		s.reserver.ReleaseAll(ctx, reservations)
		return nil, err
	}

	// The order is durable; everything below is best-effort
	if fromCart {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			s.log.WithError(err).WithField("order_number", o.OrderNumber).
				Warn("Failed to clear cart after order creation")
		}
	}

	s.commitUsage(ctx, o, result)

	s.notifier.Emit(notify.EventOrderCreated, map[string]interface{}{
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"total_amount": o.TotalAmount,
		"item_count":   len(o.Items),
	})

	return o, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to load order", err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %d not found", id)
	}
	return o, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to load order", err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %s not found", number)
	}
	return o, nil
}

// GetUserOrders retrieves a user's orders with pagination
func (s *Service) GetUserOrders(ctx context.Context, userID uint, page, limit int) ([]Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, page, limit)
}

// UpdateStatus moves an order through its state machine, stamping the
// matching timestamp. Cancellation goes through CancelOrder so stock is
// restored.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, target OrderStatus) (*Order, error) {
	if !IsValidStatus(target) {
		return nil, apperr.Newf(apperr.KindInvalidStatusTransition, "unknown order status %q", target)
	}
	if target == OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID, "cancelled via status update")
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(target) {
		return nil, apperr.Newf(apperr.KindInvalidStatusTransition,
			"cannot move order from %s to %s", o.Status, target)
	}

	now := s.now().UTC()
	fields := map[string]interface{}{"status": target}
	switch target {
	case OrderStatusConfirmed:
		fields["confirmed_at"] = now
		o.ConfirmedAt = &now
	case OrderStatusProcessing:
		fields["processed_at"] = now
		o.ProcessedAt = &now
	case OrderStatusShipped:
		fields["shipped_at"] = now
		o.ShippedAt = &now
	case OrderStatusDelivered:
		fields["delivered_at"] = now
		o.DeliveredAt = &now
	case OrderStatusReturned:
		fields["returned_at"] = now
		o.ReturnedAt = &now
	}

	if err := s.store.Update(ctx, o, fields); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to update order status", err)
	}

	previous := o.Status
	o.Status = target

	s.notifier.Emit(notify.EventOrderStatusChanged, map[string]interface{}{
		"order_number": o.OrderNumber,
		"from":         previous,
		"to":           target,
	})

	return o, nil
}

// CancelOrder cancels an order and returns its reserved stock
func (s *Service) CancelOrder(ctx context.Context, orderID uint, reason string) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanBeCancelled() {
		return nil, apperr.Newf(apperr.KindInvalidStatusTransition,
			"order in status %s cannot be cancelled", o.Status)
	}

	now := s.now().UTC()
	if err := s.store.Update(ctx, o, map[string]interface{}{
		"status":       OrderStatusCancelled,
		"cancelled_at": now,
	}); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to cancel order", err)
	}

	previous := o.Status
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now

	// Return the decremented stock
	for _, item := range o.Items {
		res := &inventory.Reservation{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Size:      item.Size,
			Color:     item.Color,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
		}
		if err := s.reserver.Release(ctx, res); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order_number": o.OrderNumber,
				"sku":          item.SKU,
			}).Error("Failed to restore stock for cancelled order")
		}
	}

	s.notifier.Emit(notify.EventOrderStatusChanged, map[string]interface{}{
		"order_number": o.OrderNumber,
		"from":         previous,
		"to":           OrderStatusCancelled,
		"reason":       reason,
	})

	return o, nil
}

// RecordRefund registers a refund against the order's payment, refusing
// anything that would push refunds past the order total
func (s *Service) RecordRefund(ctx context.Context, orderID uint, amount int64, reason string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if amount > o.RefundableBalance() {
		return nil, apperr.Newf(apperr.KindRefundExceedsBalance,
			"refund of %.2f exceeds refundable balance %.2f",
			float64(amount)/100, float64(o.RefundableBalance())/100)
	}

	o.Payment.RefundedAmount += amount
	if o.Payment.RefundedAmount >= o.TotalAmount {
		o.Payment.Status = PaymentStatusRefunded
	} else {
		o.Payment.Status = PaymentStatusPartiallyRefunded
	}

	refund := &Refund{
		OrderID:   o.ID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddRefund(ctx, o, refund); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to record refund", err)
	}

	o.Refunds = append(o.Refunds, *refund)
	return o, nil
}

// CountCouponUse implements pricing.CouponUsageCounter
func (s *Service) CountCouponUse(ctx context.Context, userID uint, code string) (int64, error) {
	return s.store.CountCouponUse(ctx, userID, code)
}

// Private helpers

// resolveLines picks explicit request items or falls back to the user's cart
func (s *Service) resolveLines(ctx context.Context, userID uint, req *CreateOrderRequest) ([]pricing.LineItem, bool, error) {
	if len(req.Items) > 0 {
		for _, line := range req.Items {
			if line.Quantity < 1 {
				return nil, false, fmt.Errorf("line quantity must be at least 1")
			}
		}
		return req.Items, false, nil
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindPersistenceFailure, "failed to load cart", err)
	}
	if c == nil || c.IsEmpty() {
		return nil, false, apperr.New(apperr.KindEmptyCart, "cart is empty")
	}

	lines := make([]pricing.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pricing.LineItem{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return lines, true, nil
}

// loadProducts fetches and validates every product and variant referenced by
// the lines
func (s *Service) loadProducts(ctx context.Context, lines []pricing.LineItem) (map[uint]*product.Product, error) {
	products := make(map[uint]*product.Product)
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			loaded, err := s.catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to load product", err)
			}
			p = loaded
			products[line.ProductID] = p
		}
		if p == nil || !p.IsActive {
			return nil, apperr.Newf(apperr.KindProductUnavailable, "product %d is not available", line.ProductID)
		}

		variant := p.FindVariant(line.Size, line.Color)
		if variant == nil || !variant.IsActive {
			return nil, apperr.Newf(apperr.KindVariantUnavailable,
				"product %q has no active %s/%s variant", p.Name, line.Size, line.Color)
		}
		if variant.Stock < line.Quantity {
			return nil, apperr.InsufficientStock(
				fmt.Sprintf("insufficient stock for %q %s/%s: available %d, requested %d",
					p.Name, line.Size, line.Color, variant.Stock, line.Quantity),
				variant.Stock)
		}
	}
	return products, nil
}

// assembleOrder builds the order with frozen item snapshots and computed totals
func (s *Service) assembleOrder(userID uint, req *CreateOrderRequest,
	products map[uint]*product.Product, reservations []*inventory.Reservation,
	result *pricing.Result) *Order {

	o := &Order{
		UserID:            userID,
		Status:            OrderStatusPending,
		ShippingAddress:   req.ShippingAddress,
		ShippingMethod:    req.ShippingMethod,
		Currency:          s.config.Pricing.Currency,
		CouponCode:        result.Breakdown.CouponCode,
		CouponDiscount:    result.Breakdown.CouponDiscount,
		FlashSaleID:       result.Breakdown.FlashSaleID,
		FlashSaleDiscount: result.Breakdown.FlashSaleDiscount,
		Payment:           Payment{Status: PaymentStatusPending},
	}

	var totalWeight float64
	for i := range result.Items {
		item := &result.Items[i]
		p := products[item.ProductID]
		variant := p.FindVariant(item.Size, item.Color)

		o.Items = append(o.Items, OrderItem{
			ProductID:   p.ID,
			VariantID:   variant.ID,
			ProductName: p.Name,
			Brand:       p.Brand,
			ImageURL:    p.ImageURL,
			Size:        item.Size,
			Color:       item.Color,
			SKU:         variant.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.OriginalPrice,
			TotalPrice:  item.LineTotal(),
		})
		o.SubtotalAmount += item.LineTotal()
		totalWeight += variant.Weight * float64(item.Quantity)
	}

	o.DiscountAmount = result.Breakdown.TotalDiscount
	o.TaxAmount = s.calculateTax(o.SubtotalAmount)
	o.ShippingAmount = s.calculateShipping(req.ShippingMethod, o.SubtotalAmount, totalWeight)
	o.TotalAmount = o.ComputeTotal()

	return o
}

// persistWithUniqueNumber retries order creation on order-number collisions.
// The timestamp+random scheme has a small collision window; the unique index
// plus this loop closes it.
func (s *Service) persistWithUniqueNumber(ctx context.Context, o *Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.OrderNumber = s.generateOrderNumber()
		err := s.store.Create(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateOrderNumber) {
			continue
		}
		return apperr.Wrap(apperr.KindPersistenceFailure, "failed to persist order", err)
	}
	return apperr.New(apperr.KindPersistenceFailure,
		"failed to allocate a unique order number")
}

// generateOrderNumber builds a timestamp-prefixed number with a random suffix
func (s *Service) generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%03d", s.now().Format("20060102150405"), s.randomInt(1000))
}

// calculateTax applies the configured rate with half-up rounding to cents
func (s *Service) calculateTax(subtotal int64) int64 {
	return int64(math.Round(float64(subtotal) * s.config.Pricing.TaxRate))
}

// calculateShipping looks up the flat rate for the method, adds the surcharge
// for heavy orders, and zeroes standard shipping above the free threshold
func (s *Service) calculateShipping(method string, subtotal int64, totalWeight float64) int64 {
	var cost int64
	switch method {
	case "standard":
		cost = 599
	case "express":
		cost = 1299
	case "overnight":
		cost = 2499
	default:
		cost = 599
	}

	if method == "standard" && subtotal >= s.config.Pricing.FreeShippingThreshold {
		cost = 0
	}

	if totalWeight > s.config.Pricing.WeightSurchargeGrams {
		cost += s.config.Pricing.WeightSurcharge
	}

	return cost
}

// commitUsage bumps coupon and flash-sale counters after the order is
// durable. Failures are logged and swallowed: the counters are best-effort
// aggregates and the order already stands.
func (s *Service) commitUsage(ctx context.Context, o *Order, result *pricing.Result) {
	if o.CouponCode != "" {
		if err := s.promos.IncrementCouponUsage(ctx, o.CouponCode); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order_number": o.OrderNumber,
				"coupon_code":  o.CouponCode,
			}).Warn("Failed to increment coupon usage")
		}
	}

	if o.FlashSaleID == nil {
		return
	}
	for i := range result.Items {
		item := &result.Items[i]
		if item.FlashDiscount <= 0 {
			continue
		}
		err := s.promos.IncrementFlashSaleSold(ctx, *o.FlashSaleID, item.ProductID, item.Size, item.Color, item.Quantity)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"order_number":  o.OrderNumber,
				"flash_sale_id": *o.FlashSaleID,
				"product_id":    item.ProductID,
			}).Warn("Failed to increment flash sale sold quantity")
		}
	}
}
