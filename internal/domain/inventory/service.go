// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
	"github.com/your-org/shoestore-backend/internal/pkg/notify"
)

// CatalogStore is the slice of the catalog the reservation engine needs
type CatalogStore interface {
	GetProduct(ctx context.Context, id uint) (*product.Product, error)
	UpdateVariantStock(ctx context.Context, variantID uint, delta int) error
	GetVariantStock(ctx context.Context, variantID uint) (int, error)
}

// Reservation records an atomic stock decrement tied to an in-progress
// checkout, reversible via Release
type Reservation struct {
	ProductID uint         `json:"product_id"`
	VariantID uint         `json:"variant_id"`
	Size      product.Size `json:"size"`
	Color     string       `json:"color"`
	SKU       string       `json:"sku"`
	Quantity  int          `json:"quantity"`
}

// Engine reserves and releases stock on product variants. The variant's stock
// counter is the unit of concurrency control: every mutation goes through the
// catalog store's conditional update, so two checkouts racing for the last
// unit cannot both succeed.
type Engine struct {
	catalog  CatalogStore
	notifier notify.Sink
	log      *logrus.Logger
}

// NewEngine creates an inventory reservation engine
func NewEngine(catalog CatalogStore, notifier notify.Sink, log *logrus.Logger) *Engine {
	return &Engine{
		catalog:  catalog,
		notifier: notifier,
		log:      log,
	}
}

// Reserve atomically decrements stock on the variant identified by
// (productID, size, color). Fails without side effects when the product or
// variant is inactive or the variant cannot cover the quantity.
func (e *Engine) Reserve(ctx context.Context, productID uint, size product.Size, color string, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reservation quantity must be positive, got %d", quantity)
	}

	p, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to load product", err)
	}
	if p == nil || !p.IsActive {
		return nil, apperr.Newf(apperr.KindProductUnavailable, "product %d is not available", productID)
	}

	variant := p.FindVariant(size, color)
	if variant == nil || !variant.IsActive {
		return nil, apperr.Newf(apperr.KindVariantUnavailable,
			"product %q has no active %s/%s variant", p.Name, size, color)
	}

	if err := e.catalog.UpdateVariantStock(ctx, variant.ID, -quantity); err != nil {
		if errors.Is(err, product.ErrStockConflict) {
			available, readErr := e.catalog.GetVariantStock(ctx, variant.ID)
			if readErr != nil {
				available = 0
			}
			return nil, apperr.InsufficientStock(
				fmt.Sprintf("insufficient stock for %q %s/%s: available %d, requested %d",
					p.Name, size, color, available, quantity),
				available)
		}
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, "failed to reserve stock", err)
	}

	e.emitStockChange(ctx, p, variant, -quantity)

	return &Reservation{
		ProductID: productID,
		VariantID: variant.ID,
		Size:      size,
		Color:     color,
		SKU:       variant.SKU,
		Quantity:  quantity,
	}, nil
}

// Release returns a reservation's stock. An unreleased reservation is a stock
// leak, so failures here are the caller's signal to retry; the increment
// itself cannot drive stock negative.
func (e *Engine) Release(ctx context.Context, res *Reservation) error {
	if err := e.catalog.UpdateVariantStock(ctx, res.VariantID, res.Quantity); err != nil {
		return apperr.Wrap(apperr.KindPersistenceFailure, "failed to release stock", err)
	}

	p, err := e.catalog.GetProduct(ctx, res.ProductID)
	if err == nil && p != nil {
		if variant := p.FindVariant(res.Size, res.Color); variant != nil {
			e.emitStockChange(ctx, p, variant, res.Quantity)
		}
	}

	return nil
}

// ReleaseAll releases every reservation in the slice, retrying each once and
// logging anything that still fails rather than silently dropping it.
func (e *Engine) ReleaseAll(ctx context.Context, reservations []*Reservation) {
	for _, res := range reservations {
		if err := e.Release(ctx, res); err != nil {
			if err = e.Release(ctx, res); err != nil {
				e.log.WithError(err).WithFields(logrus.Fields{
					"product_id": res.ProductID,
					"variant_id": res.VariantID,
					"sku":        res.SKU,
					"quantity":   res.Quantity,
				}).Error("Failed to release stock reservation; manual reconciliation required")
			}
		}
	}
}

func (e *Engine) emitStockChange(ctx context.Context, p *product.Product, variant *product.Variant, delta int) {
	stock, err := e.catalog.GetVariantStock(ctx, variant.ID)
	if err != nil {
		stock = variant.Stock + delta
	}

	e.notifier.Emit(notify.EventInventoryChanged, map[string]interface{}{
		"product_id": p.ID,
		"variant_id": variant.ID,
		"sku":        variant.SKU,
		"delta":      delta,
		"stock":      stock,
		"low_stock":  stock <= variant.LowStockThreshold,
	})
}
