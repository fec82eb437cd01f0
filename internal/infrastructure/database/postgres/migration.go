// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/domain/cart"
	"github.com/your-org/shoestore-backend/internal/domain/order"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/domain/promotion"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// Catalog
		&product.Product{},
		&product.Variant{},

		// Cart
		&cart.Cart{},
		&cart.CartItem{},

		// Promotions
		&promotion.Coupon{},
		&promotion.FlashSale{},
		&promotion.FlashSaleItem{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.Refund{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating database indexes...")

	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_brand_active ON products(brand, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_stock ON product_variants(stock)",

		// Promotions
		"CREATE INDEX IF NOT EXISTS idx_coupons_active_window ON coupons(is_active, valid_from, valid_to)",
		"CREATE INDEX IF NOT EXISTS idx_flash_sales_active_window ON flash_sales(is_active, start_time, end_time)",
		"CREATE INDEX IF NOT EXISTS idx_flash_sale_items_sale ON flash_sale_items(flash_sale_id, product_id)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_coupon_code ON orders(user_id, coupon_code)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created")
	return nil
}

// SeedInitialData inserts development sample data
func (m *Migration) SeedInitialData() error {
	log.Println("🔄 Seeding initial data...")

	if err := m.seedProducts(); err != nil {
		return err
	}
	if err := m.seedCoupons(); err != nil {
		return err
	}

	log.Println("✅ Initial data seeded")
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	products := []product.Product{
		{
			Name:     "Air Runner 2000",
			Slug:     "air-runner-2000",
			Brand:    "Stride",
			Category: "running",
			IsActive: true,
			Variants: []product.Variant{
				{Size: product.SizeUS9, Color: "black", ColorCode: "#000000", SKU: "AR2000-BLK-9", Price: 9999, Stock: 25, LowStockThreshold: 5, Weight: 800, IsActive: true},
				{Size: product.SizeUS10, Color: "black", ColorCode: "#000000", SKU: "AR2000-BLK-10", Price: 9999, Stock: 30, LowStockThreshold: 5, Weight: 820, IsActive: true},
				{Size: product.SizeUS9, Color: "white", ColorCode: "#FFFFFF", SKU: "AR2000-WHT-9", Price: 10499, Stock: 15, LowStockThreshold: 5, Weight: 800, IsActive: true},
			},
		},
		{
			Name:     "Court Classic",
			Slug:     "court-classic",
			Brand:    "Baseline",
			Category: "tennis",
			IsActive: true,
			Variants: []product.Variant{
				{Size: product.SizeUS8, Color: "white", ColorCode: "#FFFFFF", SKU: "CC-WHT-8", Price: 7999, ComparePrice: 8999, Stock: 40, LowStockThreshold: 10, Weight: 750, IsActive: true},
				{Size: product.SizeUS11, Color: "navy", ColorCode: "#000080", SKU: "CC-NVY-11", Price: 7999, Stock: 12, LowStockThreshold: 10, Weight: 780, IsActive: true},
			},
		},
	}

	for i := range products {
		if err := m.db.Create(&products[i]).Error; err != nil {
			return fmt.Errorf("failed to seed product %q: %w", products[i].Name, err)
		}
	}
	return nil
}

func (m *Migration) seedCoupons() error {
	var count int64
	if err := m.db.Model(&promotion.Coupon{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count coupons: %w", err)
	}
	if count > 0 {
		return nil
	}

	limit := 100
	coupons := []promotion.Coupon{
		{
			Code:           "WELCOME10",
			Description:    "10% off your first order",
			DiscountType:   promotion.DiscountTypePercentage,
			Value:          10,
			MinOrderAmount: 5000,
			MaxDiscount:    2000,
			UsageLimit:     &limit,
			PerUserLimit:   1,
			ValidFrom:      time.Now(),
			ValidTo:        time.Now().AddDate(0, 3, 0),
			IsActive:       true,
		},
		{
			Code:           "FLAT5",
			Description:    "Five dollars off",
			DiscountType:   promotion.DiscountTypeFixed,
			Value:          500,
			MinOrderAmount: 2500,
			ValidFrom:      time.Now(),
			ValidTo:        time.Now().AddDate(0, 1, 0),
			IsActive:       true,
		},
	}

	for i := range coupons {
		if err := m.db.Create(&coupons[i]).Error; err != nil {
			return fmt.Errorf("failed to seed coupon %q: %w", coupons[i].Code, err)
		}
	}
	return nil
}
