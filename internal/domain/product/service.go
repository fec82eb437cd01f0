// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/shoestore-backend/internal/config"
	"gorm.io/gorm"
)

// ErrStockConflict is returned when a conditional stock update matches no row,
// either because the variant is gone or because the update would drive stock
// negative.
var ErrStockConflict = errors.New("conditional stock update affected no rows")

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Slug        string                 `json:"slug" binding:"required"`
	Description string                 `json:"description"`
	Brand       string                 `json:"brand" binding:"required"`
	Category    string                 `json:"category" binding:"required"`
	ImageURL    string                 `json:"image_url"`
	Variants    []CreateVariantRequest `json:"variants"`
}

// CreateVariantRequest represents variant creation data
type CreateVariantRequest struct {
	Size              string  `json:"size" binding:"required"`
	Color             string  `json:"color" binding:"required"`
	ColorCode         string  `json:"color_code"`
	SKU               string  `json:"sku" binding:"required"`
	Price             int64   `json:"price" binding:"required"`
	ComparePrice      int64   `json:"compare_price"`
	Stock             int     `json:"stock"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	Weight            float64 `json:"weight"`
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=20"`
	Brand    string `form:"brand"`
	Category string `form:"category"`
	Search   string `form:"search"`
}

// CreateProduct creates a product with its variants
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	p := &Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}

	for _, vr := range req.Variants {
		variant, err := buildVariant(&vr)
		if err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, *variant)
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return p, nil
}

// AddVariant adds a variant to an existing product
func (s *Service) AddVariant(ctx context.Context, productID uint, req *CreateVariantRequest) (*Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	variant, err := buildVariant(req)
	if err != nil {
		return nil, err
	}
	variant.ProductID = productID

	if err := s.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}

	return variant, nil
}

// GetProduct retrieves a product with its variants
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).Preload("Variants").First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}

// GetProductBySlug retrieves a product by its slug
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).Preload("Variants").Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}

// GetProducts retrieves active products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{}).Where("is_active = ?", true)

	if req.Brand != "" {
		query = query.Where("brand = ?", req.Brand)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.Search != "" {
		pattern := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Variants").Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, total, nil
}

// GetVariant locates a variant of a product by its (size, color) key
func (s *Service) GetVariant(ctx context.Context, productID uint, size Size, color string) (*Variant, error) {
	var v Variant
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND size = ? AND color = ?", productID, size, color).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve variant: %w", err)
	}
	return &v, nil
}

// UpdateVariantStock applies delta to a variant's stock as a single atomic
// conditional update. The update succeeds only if the resulting stock stays
// non-negative, so two checkouts racing for the last unit cannot both win.
func (s *Service) UpdateVariantStock(ctx context.Context, variantID uint, delta int) error {
	result := s.db.WithContext(ctx).Model(&Variant{}).
		Where("id = ? AND stock + ? >= 0", variantID, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))

	if result.Error != nil {
		return fmt.Errorf("failed to update variant stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

// GetVariantStock reads the current stock of a variant
func (s *Service) GetVariantStock(ctx context.Context, variantID uint) (int, error) {
	var v Variant
	if err := s.db.WithContext(ctx).Select("stock").First(&v, variantID).Error; err != nil {
		return 0, fmt.Errorf("failed to read variant stock: %w", err)
	}
	return v.Stock, nil
}

// DeactivateProduct soft-disables a product; past order snapshots are unaffected
func (s *Service) DeactivateProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %d not found", id)
	}
	return nil
}

func buildVariant(req *CreateVariantRequest) (*Variant, error) {
	size, err := ParseSize(req.Size)
	if err != nil {
		return nil, err
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("variant price must not be negative")
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("variant stock must not be negative")
	}
	if req.ComparePrice > 0 && req.ComparePrice < req.Price {
		return nil, fmt.Errorf("compare price must be at least the variant price")
	}

	threshold := req.LowStockThreshold
	if threshold == 0 {
		threshold = 5
	}

	return &Variant{
		Size:              size,
		Color:             req.Color,
		ColorCode:         req.ColorCode,
		SKU:               req.SKU,
		Price:             req.Price,
		ComparePrice:      req.ComparePrice,
		Stock:             req.Stock,
		LowStockThreshold: threshold,
		Weight:            req.Weight,
		IsActive:          true,
	}, nil
}
