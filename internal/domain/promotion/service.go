// internal/domain/promotion/service.go
package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/config"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/pkg/notify"
)

// ErrSoldOut is returned when a flash-sale sold-quantity increment would
// exceed the sale entry's available quantity.
var ErrSoldOut = errors.New("flash sale quantity exhausted")

// Service handles coupon and flash-sale business logic
type Service struct {
	db       *gorm.DB
	config   *config.Config
	notifier notify.Sink
}

// NewService creates a new promotion service
func NewService(db *gorm.DB, cfg *config.Config, notifier notify.Sink) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		notifier: notifier,
	}
}

// CreateCouponRequest represents coupon creation data
type CreateCouponRequest struct {
	Code                 string       `json:"code" binding:"required"`
	Description          string       `json:"description"`
	DiscountType         DiscountType `json:"discount_type" binding:"required"`
	Value                int64        `json:"value" binding:"required"`
	MinOrderAmount       int64        `json:"min_order_amount"`
	MaxDiscount          int64        `json:"max_discount"`
	UsageLimit           *int         `json:"usage_limit"`
	PerUserLimit         int          `json:"per_user_limit"`
	ValidFrom            time.Time    `json:"valid_from" binding:"required"`
	ValidTo              time.Time    `json:"valid_to" binding:"required"`
	ApplicableProducts   []uint       `json:"applicable_products"`
	ApplicableCategories []string     `json:"applicable_categories"`
	ApplicableBrands     []string     `json:"applicable_brands"`
	ExcludedProducts     []uint       `json:"excluded_products"`
}

// CreateFlashSaleRequest represents flash-sale creation data
type CreateFlashSaleRequest struct {
	Name      string                       `json:"name" binding:"required"`
	StartTime time.Time                    `json:"start_time" binding:"required"`
	EndTime   time.Time                    `json:"end_time" binding:"required"`
	Priority  int                          `json:"priority"`
	Items     []CreateFlashSaleItemRequest `json:"items" binding:"required"`
}

// CreateFlashSaleItemRequest represents a sale entry
type CreateFlashSaleItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Color     string `json:"color" binding:"required"`
	SalePrice int64  `json:"sale_price" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// COUPONS

// CreateCoupon creates a coupon; the code is normalized to uppercase
func (s *Service) CreateCoupon(ctx context.Context, req *CreateCouponRequest, createdBy uint) (*Coupon, error) {
	if req.DiscountType != DiscountTypePercentage && req.DiscountType != DiscountTypeFixed {
		return nil, fmt.Errorf("invalid discount type: %s", req.DiscountType)
	}
	if req.Value <= 0 {
		return nil, fmt.Errorf("discount value must be positive")
	}
	if req.DiscountType == DiscountTypePercentage && req.Value > 100 {
		return nil, fmt.Errorf("percentage discount cannot exceed 100")
	}
	if !req.ValidTo.After(req.ValidFrom) {
		return nil, fmt.Errorf("validity window must end after it starts")
	}

	coupon := &Coupon{
		Code:                 strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:          req.Description,
		DiscountType:         req.DiscountType,
		Value:                req.Value,
		MinOrderAmount:       req.MinOrderAmount,
		MaxDiscount:          req.MaxDiscount,
		UsageLimit:           req.UsageLimit,
		PerUserLimit:         req.PerUserLimit,
		ValidFrom:            req.ValidFrom,
		ValidTo:              req.ValidTo,
		ApplicableProducts:   req.ApplicableProducts,
		ApplicableCategories: req.ApplicableCategories,
		ApplicableBrands:     req.ApplicableBrands,
		ExcludedProducts:     req.ExcludedProducts,
		IsActive:             true,
		CreatedBy:            createdBy,
	}

	if err := s.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	return coupon, nil
}

// FindCouponByCode looks a coupon up by its uppercased code
func (s *Service) FindCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	var coupon Coupon
	err := s.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &coupon, nil
}

// IncrementCouponUsage atomically bumps a coupon's used count. Once the usage
// limit is exhausted the coupon is deactivated rather than deleted, so past
// orders keep a valid reference.
func (s *Service) IncrementCouponUsage(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	result := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("coupon %s not found", code)
	}

	// Retire the coupon once its limit is spent
	if err := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("code = ? AND usage_limit IS NOT NULL AND used_count >= usage_limit", code).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate exhausted coupon: %w", err)
	}

	return nil
}

// FLASH SALES

// CreateFlashSale creates a flash sale with its per-variant entries. The sale
// starts inactive; the sweep flips it active once the window opens.
func (s *Service) CreateFlashSale(ctx context.Context, req *CreateFlashSaleRequest) (*FlashSale, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("sale window must end after it starts")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("flash sale requires at least one item")
	}

	sale := &FlashSale{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Priority:  req.Priority,
	}

	for _, ir := range req.Items {
		size, err := product.ParseSize(ir.Size)
		if err != nil {
			return nil, err
		}
		if ir.SalePrice < 0 {
			return nil, fmt.Errorf("sale price must not be negative")
		}
		if ir.Quantity <= 0 {
			return nil, fmt.Errorf("sale quantity must be positive")
		}
		sale.Items = append(sale.Items, FlashSaleItem{
			ProductID: ir.ProductID,
			Size:      size,
			Color:     ir.Color,
			SalePrice: ir.SalePrice,
			Quantity:  ir.Quantity,
		})
	}

	if err := s.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, fmt.Errorf("failed to create flash sale: %w", err)
	}

	return sale, nil
}

// FindActiveFlashSales returns sales whose window contains now, highest
// priority first. The ordering is load-bearing: the discount engine keeps the
// first sale seen on an exact discount tie.
func (s *Service) FindActiveFlashSales(ctx context.Context, now time.Time) ([]FlashSale, error) {
	var sales []FlashSale
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("is_active = ? AND start_time <= ? AND end_time >= ?", true, now, now).
		Order("priority DESC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve active flash sales: %w", err)
	}
	return sales, nil
}

// GetFlashSale retrieves a flash sale with its items
func (s *Service) GetFlashSale(ctx context.Context, id uint) (*FlashSale, error) {
	var sale FlashSale
	err := s.db.WithContext(ctx).Preload("Items").First(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve flash sale: %w", err)
	}
	return &sale, nil
}

// IncrementFlashSaleSold atomically bumps the sold counter of a sale entry.
// The conditional update refuses to push sold past the available quantity.
func (s *Service) IncrementFlashSaleSold(ctx context.Context, saleID, productID uint, size product.Size, color string, qty int) error {
	result := s.db.WithContext(ctx).Model(&FlashSaleItem{}).
		Where("flash_sale_id = ? AND product_id = ? AND size = ? AND color = ? AND sold_quantity + ? <= quantity",
			saleID, productID, size, color, qty).
		UpdateColumn("sold_quantity", gorm.Expr("sold_quantity + ?", qty))

	if result.Error != nil {
		return fmt.Errorf("failed to increment flash sale sold quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSoldOut
	}
	return nil
}

// SWEEPS
//
// Both sweeps are pure functions of now over the promotion tables. They only
// flip flags, never touch stock, and are safe to run concurrently with
// in-flight checkouts and with themselves; a missed interval self-heals on
// the next run.

// SweepFlashSales activates sales whose window has opened and deactivates
// sales whose window has closed, emitting start/end notifications.
func (s *Service) SweepFlashSales(ctx context.Context, now time.Time) error {
	var starting []FlashSale
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND start_time <= ? AND end_time >= ?", false, now, now).
		Find(&starting).Error; err != nil {
		return fmt.Errorf("failed to find starting flash sales: %w", err)
	}

	for _, sale := range starting {
		if err := s.db.WithContext(ctx).Model(&FlashSale{}).
			Where("id = ? AND is_active = ?", sale.ID, false).
			Update("is_active", true).Error; err != nil {
			return fmt.Errorf("failed to activate flash sale %d: %w", sale.ID, err)
		}
		s.notifier.Emit(notify.EventFlashSaleStarted, map[string]interface{}{
			"flash_sale_id": sale.ID,
			"name":          sale.Name,
			"ends_at":       sale.EndTime,
		})
	}

	var ending []FlashSale
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND end_time < ?", true, now).
		Find(&ending).Error; err != nil {
		return fmt.Errorf("failed to find ending flash sales: %w", err)
	}

	for _, sale := range ending {
		if err := s.db.WithContext(ctx).Model(&FlashSale{}).
			Where("id = ? AND is_active = ?", sale.ID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate flash sale %d: %w", sale.ID, err)
		}
		s.notifier.Emit(notify.EventFlashSaleEnded, map[string]interface{}{
			"flash_sale_id": sale.ID,
			"name":          sale.Name,
		})
	}

	return nil
}

// SweepExpiredCoupons deactivates coupons whose validity window has passed
func (s *Service) SweepExpiredCoupons(ctx context.Context, now time.Time) error {
	if err := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("is_active = ? AND valid_to < ?", true, now).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate expired coupons: %w", err)
	}
	return nil
}
