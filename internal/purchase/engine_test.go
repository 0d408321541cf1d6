package purchase_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase/memstore"
)

// These tests drive the service against the in-memory store to check stock
// and status invariants end to end.

func seed(t *testing.T, products ...purchase.Product) (*purchase.Service, *memstore.Store, []purchase.Product) {
	t.Helper()

	store := memstore.New()

	added := make([]purchase.Product, len(products))
	for i, p := range products {
		added[i] = store.AddProduct(p)
	}

	return purchase.NewService(store), store, added
}

func stockOf(t *testing.T, store *memstore.Store, id int64) int {
	t.Helper()

	qty, ok := store.Stock(id)
	require.True(t, ok)

	return qty
}

func TestEngine_CreateCancel(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t, purchase.Product{SKU: "P1", Name: "Widget", Price: 1000, Stock: 10})
	p1 := ps[0]

	created, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: p1.ID, Qty: 4}})
	require.NoError(t, err)

	assert.Equal(t, purchase.StatusActive, created.Status)
	assert.EqualValues(t, 4000, created.Total)
	assert.NotEmpty(t, created.InvoiceNo)
	assert.Equal(t, 6, stockOf(t, store, p1.ID))

	cancelled, err := svc.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, stockOf(t, store, p1.ID))

	_, err = svc.Cancel(ctx, created.ID)
	require.ErrorIs(t, err, purchase.ErrAlreadyCancelled)
	assert.Equal(t, 10, stockOf(t, store, p1.ID), "a repeated cancel must not restock twice")

	_, err = svc.Pay(ctx, created.ID)
	require.ErrorIs(t, err, purchase.ErrAlreadyCancelled)
}

func TestEngine_PayThenCancel(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t, purchase.Product{SKU: "P1", Name: "Widget", Price: 250, Stock: 3})

	created, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 2}})
	require.NoError(t, err)

	paid, err := svc.Pay(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = svc.Pay(ctx, created.ID)
	require.ErrorIs(t, err, purchase.ErrAlreadyPaid)

	_, err = svc.Cancel(ctx, created.ID)
	require.ErrorIs(t, err, purchase.ErrCannotCancelPaid)
	assert.Equal(t, 1, stockOf(t, store, ps[0].ID))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusPaid, got.Status)
	assert.Equal(t, paid.PaidAt.Unix(), got.PaidAt.Unix())
}

func TestEngine_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t,
		purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 10},
		purchase.Product{SKU: "B", Name: "B", Price: 200, Stock: 1},
	)
	a, b := ps[0], ps[1]

	_, err := svc.Create(ctx, []purchase.LineRequest{
		{ProductID: a.ID, Qty: 5},
		{ProductID: b.ID, Qty: 2},
	})

	var se *purchase.StockError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, purchase.ErrInsufficientStock)
	assert.Equal(t, b.ID, se.ProductID)
	assert.Equal(t, 2, se.Requested)
	assert.Equal(t, 1, se.Available)

	assert.Equal(t, 10, stockOf(t, store, a.ID))
	assert.Equal(t, 1, stockOf(t, store, b.ID))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEngine_UnknownProductWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t, purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 10})

	_, err := svc.Create(ctx, []purchase.LineRequest{
		{ProductID: ps[0].ID, Qty: 1},
		{ProductID: 404, Qty: 1},
	})
	require.ErrorIs(t, err, purchase.ErrProductNotFound)

	assert.Equal(t, 10, stockOf(t, store, ps[0].ID))
}

func TestEngine_EmptyOrder(t *testing.T) {
	svc, _, _ := seed(t)

	_, err := svc.Create(context.Background(), []purchase.LineRequest{})
	require.ErrorIs(t, err, purchase.ErrEmptyOrder)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEngine_ExactStockDrainsToZero(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t, purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 2})

	_, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 1}, {ProductID: ps[0].ID, Qty: 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, store, ps[0].ID))

	_, err = svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 1}})
	require.ErrorIs(t, err, purchase.ErrInsufficientStock)
}

func TestEngine_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t, purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 5})

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)

	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 3}})
		}()
	}

	wg.Wait()

	var ok, insufficient int

	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, purchase.ErrInsufficientStock):
			insufficient++
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 2, stockOf(t, store, ps[0].ID))
}

func TestEngine_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, ps := seed(t, purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 10})

	for range 3 {
		_, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 1}})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Greater(t, list[1].ID, list[2].ID)
}

func TestEngine_LinePriceFrozen(t *testing.T) {
	ctx := context.Background()
	svc, _, ps := seed(t, purchase.Product{SKU: "A", Name: "Anvil", Price: 700, Stock: 10})

	created, err := svc.Create(ctx, []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 3}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)

	line := got.Lines[0]
	assert.Equal(t, "Anvil", line.Name)
	assert.Equal(t, "A", line.SKU)
	assert.EqualValues(t, 700, line.Price)
	assert.EqualValues(t, 2100, line.Subtotal)
	assert.Equal(t, got.Total, line.Subtotal)
}

func TestEngine_CancelRestocksAdditively(t *testing.T) {
	ctx := context.Background()
	svc, store, ps := seed(t,
		purchase.Product{SKU: "A", Name: "A", Price: 100, Stock: 10},
		purchase.Product{SKU: "B", Name: "B", Price: 200, Stock: 8},
	)
	a, b := ps[0], ps[1]

	first, err := svc.Create(ctx, []purchase.LineRequest{
		{ProductID: a.ID, Qty: 3},
		{ProductID: b.ID, Qty: 2},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, []purchase.LineRequest{{ProductID: a.ID, Qty: 4}})
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, store, a.ID))

	_, err = svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, 10-4, stockOf(t, store, a.ID))
	assert.Equal(t, 8, stockOf(t, store, b.ID))
}

func TestEngine_QuantityOutOfRange(t *testing.T) {
	type args struct {
		products []purchase.Product
		lines    func(ps []purchase.Product) []purchase.LineRequest
	}

	type testCase struct {
		name    string
		args    args
		wantErr error
	}

	const halfMax = math.MaxInt64 / 2

	tests := []testCase{
		{
			name: "cumulative quantity past int range",
			args: args{
				products: []purchase.Product{{SKU: "A", Name: "A", Price: 1000, Stock: 10}},
				lines: func(ps []purchase.Product) []purchase.LineRequest {
					return []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 1}, {ProductID: ps[0].ID, Qty: math.MaxInt}}
				},
			},
			wantErr: purchase.ErrInsufficientStock,
		},
		{
			name: "line amount past int64 range",
			args: args{
				products: []purchase.Product{{SKU: "A", Name: "A", Price: halfMax, Stock: 10}},
				lines: func(ps []purchase.Product) []purchase.LineRequest {
					return []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 3}}
				},
			},
			wantErr: purchase.ErrInvalidLine,
		},
		{
			name: "order total past int64 range",
			args: args{
				products: []purchase.Product{
					{SKU: "A", Name: "A", Price: halfMax + 1, Stock: 10},
					{SKU: "B", Name: "B", Price: halfMax + 1, Stock: 10},
				},
				lines: func(ps []purchase.Product) []purchase.LineRequest {
					return []purchase.LineRequest{{ProductID: ps[0].ID, Qty: 1}, {ProductID: ps[1].ID, Qty: 1}}
				},
			},
			wantErr: purchase.ErrInvalidLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, ps := seed(t, tt.args.products...)

			_, err := svc.Create(ctx, tt.args.lines(ps))
			require.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, purchase.ErrPersistence)

			for _, p := range ps {
				assert.Equal(t, p.Stock, stockOf(t, store, p.ID))
			}

			list, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}
