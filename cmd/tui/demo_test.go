package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

func TestDemoService(t *testing.T) {
	ctx := context.Background()
	svc := demoService()

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(demoCatalog))

	for i, p := range products {
		assert.Equal(t, demoCatalog[i].SKU, p.SKU)
		assert.Equal(t, demoCatalog[i].Stock, p.Stock)
	}

	created, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: products[0].ID, Qty: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2*demoCatalog[0].Price, created.Total)

	products, err = svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, demoCatalog[0].Stock-2, products[0].Stock)
}
