// internal/domain/cart/entity_test.go
package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/shoestore-backend/internal/domain/product"
)

func TestRecompute(t *testing.T) {
	c := &Cart{
		Items: []CartItem{
			{ProductID: 1, Size: product.SizeUS9, Color: "black", Price: 9999, Quantity: 2},
			{ProductID: 2, Size: product.SizeUS10, Color: "white", Price: 12000, Quantity: 1},
		},
	}

	c.Recompute()
	assert.Equal(t, 3, c.TotalItems)
	assert.Equal(t, int64(31998), c.TotalAmount)

	c.Items = nil
	c.Recompute()
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, int64(0), c.TotalAmount)
	assert.True(t, c.IsEmpty())
}

func TestFindItem(t *testing.T) {
	c := &Cart{
		Items: []CartItem{
			{ProductID: 1, Size: product.SizeUS9, Color: "black", Quantity: 1},
		},
	}

	assert.NotNil(t, c.FindItem(1, product.SizeUS9, "black"))
	assert.Nil(t, c.FindItem(1, product.SizeUS9, "white"))
	assert.Nil(t, c.FindItem(2, product.SizeUS9, "black"))
}
