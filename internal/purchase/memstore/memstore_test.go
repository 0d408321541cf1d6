package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase/memstore"
)

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p := s.AddProduct(purchase.Product{SKU: "A", Name: "A", Price: 10, Stock: 5})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.AdjustStock(ctx, p.ID, -5))
	require.NoError(t, tx.CreatePurchase(ctx, &purchase.Purchase{InvoiceNo: "INV-1", Status: purchase.StatusActive}))
	require.NoError(t, tx.Rollback())

	qty, _ := s.Stock(p.ID)
	assert.Equal(t, 5, qty)

	list, err := s.ListPurchases(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, tx.Commit(), "finished transaction")
}

func TestStore_CommitPublishes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p := s.AddProduct(purchase.Product{SKU: "A", Name: "Apple", Price: 10, Stock: 5})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	header := &purchase.Purchase{InvoiceNo: "INV-1", Status: purchase.StatusActive, Total: 20}
	require.NoError(t, tx.CreatePurchase(ctx, header))
	require.NoError(t, tx.CreateLine(ctx, &purchase.Line{PurchaseID: header.ID, ProductID: p.ID, Qty: 2, Price: 10, Subtotal: 20}))
	require.NoError(t, tx.AdjustStock(ctx, p.ID, -2))

	_, err = s.GetPurchase(ctx, header.ID)
	require.ErrorIs(t, err, purchase.ErrNotFound, "uncommitted rows are invisible")

	require.NoError(t, tx.Commit())
	assert.Error(t, tx.Rollback())

	got, err := s.GetPurchase(ctx, header.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.InvoiceNo)
	assert.False(t, got.CreatedAt.IsZero())

	lines, err := s.ListLines(ctx, header.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Apple", lines[0].Name)

	qty, _ := s.Stock(p.ID)
	assert.Equal(t, 3, qty)
}

func TestStore_DuplicateInvoice(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.CreatePurchase(ctx, &purchase.Purchase{InvoiceNo: "INV-1"}))
	require.ErrorIs(t, tx.CreatePurchase(ctx, &purchase.Purchase{InvoiceNo: "INV-1"}), purchase.ErrDuplicateInvoice)
	require.NoError(t, tx.CreatePurchase(ctx, &purchase.Purchase{InvoiceNo: "INV-2"}))
}

func TestStore_StockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p := s.AddProduct(purchase.Product{SKU: "A", Name: "A", Stock: 1})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Error(t, tx.AdjustStock(ctx, p.ID, -2))
	assert.ErrorIs(t, tx.AdjustStock(ctx, 99, 1), purchase.ErrProductNotFound)

	_, err = tx.GetStockForUpdate(ctx, 99)
	assert.ErrorIs(t, err, purchase.ErrProductNotFound)
}

func TestStore_BeginWaitsForSlot(t *testing.T) {
	s := memstore.New()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Begin(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback())

	tx2, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestStore_ListProductsOrdered(t *testing.T) {
	s := memstore.New()
	s.AddProduct(purchase.Product{SKU: "A", Name: "A", Stock: 1})
	s.AddProduct(purchase.Product{SKU: "B", Name: "B", Stock: 2})
	s.AddProduct(purchase.Product{SKU: "C", Name: "C", Stock: 3})

	products, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)

	for i, p := range products {
		assert.EqualValues(t, i+1, p.ID)
	}
}
