// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/config"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
)

// Service handles cart business logic
type Service struct {
	db      *gorm.DB
	config  *config.Config
	catalog *product.Service
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config, catalog *product.Service) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		catalog: catalog,
	}
}

// AddItemRequest represents add-to-cart data
type AddItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest represents quantity update data
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart loads the user's cart, creating an empty one on first touch
func (s *Service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	var c Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	c = Cart{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

// AddItem adds a variant to the cart, snapshotting its current price.
// Adding the same variant again bumps the existing line's quantity.
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddItemRequest) (*Cart, error) {
	size, err := product.ParseSize(req.Size)
	if err != nil {
		return nil, err
	}

	p, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, apperr.Newf(apperr.KindProductUnavailable, "product %d is not available", req.ProductID)
	}

	variant := p.FindVariant(size, req.Color)
	if variant == nil || !variant.IsActive {
		return nil, apperr.Newf(apperr.KindVariantUnavailable,
			"product %q has no active %s/%s variant", p.Name, size, req.Color)
	}

	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := req.Quantity
	if existing := c.FindItem(req.ProductID, size, req.Color); existing != nil {
		requested += existing.Quantity
	}
	if variant.Stock < requested {
		return nil, apperr.InsufficientStock(
			fmt.Sprintf("only %d units of %q %s/%s in stock", variant.Stock, p.Name, size, req.Color),
			variant.Stock)
	}

	if existing := c.FindItem(req.ProductID, size, req.Color); existing != nil {
		existing.Quantity = requested
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	} else {
		item := CartItem{
			CartID:    c.ID,
			ProductID: req.ProductID,
			Size:      size,
			Color:     req.Color,
			SKU:       variant.SKU,
			Price:     variant.Price,
			Quantity:  req.Quantity,
		}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to create cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}

	return s.saveTotals(ctx, c)
}

// UpdateItemQuantity sets a cart line's quantity
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID uint, req *UpdateItemRequest) (*Cart, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var target *CartItem
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			target = &c.Items[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("cart item %d not found", itemID)
	}

	variant, err := s.catalog.GetVariant(ctx, target.ProductID, target.Size, target.Color)
	if err != nil {
		return nil, err
	}
	if variant != nil && variant.Stock < req.Quantity {
		return nil, apperr.InsufficientStock(
			fmt.Sprintf("only %d units of %s in stock", variant.Stock, target.SKU),
			variant.Stock)
	}

	target.Quantity = req.Quantity
	if err := s.db.WithContext(ctx).Save(target).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.saveTotals(ctx, c)
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) (*Cart, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, c.ID).Delete(&CartItem{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("cart item %d not found", itemID)
	}

	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	c.Items = kept

	return s.saveTotals(ctx, c)
}

// ClearCart removes every item and zeroes the totals
func (s *Service) ClearCart(ctx context.Context, userID uint) error {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	c.Items = nil
	if _, err := s.saveTotals(ctx, c); err != nil {
		return err
	}
	return nil
}

// saveTotals recomputes and persists the cart totals
func (s *Service) saveTotals(ctx context.Context, c *Cart) (*Cart, error) {
	c.Recompute()
	if err := s.db.WithContext(ctx).Model(c).Updates(map[string]interface{}{
		"total_items":  c.TotalItems,
		"total_amount": c.TotalAmount,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart totals: %w", err)
	}
	return c, nil
}
