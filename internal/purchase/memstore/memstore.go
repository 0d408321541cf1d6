// Package memstore is an in-memory purchase repository. It backs the TUI's
// demo mode and the engine and handler tests.
//
// A transaction holds the store-wide write slot from Begin until Commit or
// Rollback and works on a private copy of the data, so transactions are
// serialized and a rolled back transaction leaves no trace. Reads outside a
// transaction see the last committed state.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

var errTxDone = errors.New("memstore: transaction already finished")

type state struct {
	products  map[int64]purchase.Product
	purchases map[int64]purchase.Purchase
	lines     map[int64][]purchase.Line
	invoices  map[string]int64

	nextProductID  int64
	nextPurchaseID int64
	nextLineID     int64
}

func (st *state) clone() *state {
	c := *st
	c.products = maps.Clone(st.products)
	c.purchases = maps.Clone(st.purchases)
	c.invoices = maps.Clone(st.invoices)
	c.lines = make(map[int64][]purchase.Line, len(st.lines))

	for id, ls := range st.lines {
		c.lines[id] = slices.Clone(ls)
	}

	return &c
}

var _ purchase.Repository = (*Store)(nil)

type Store struct {
	slot chan struct{}

	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{
		slot: make(chan struct{}, 1),
		st: &state{
			products:  make(map[int64]purchase.Product),
			purchases: make(map[int64]purchase.Purchase),
			lines:     make(map[int64][]purchase.Line),
			invoices:  make(map[string]int64),
		},
	}
}

// AddProduct registers a product with its initial stock and returns it with
// its assigned id.
func (s *Store) AddProduct(p purchase.Product) purchase.Product {
	s.slot <- struct{}{}
	defer func() { <-s.slot }()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.nextProductID++
	p.ID = s.st.nextProductID
	s.st.products[p.ID] = p

	return p
}

// Stock returns the committed on-hand quantity of a product.
func (s *Store) Stock(productID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.st.products[productID]

	return p.Stock, ok
}

func (s *Store) Begin(ctx context.Context) (purchase.Tx, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	return &tx{s: s, st: work}, nil
}

func (s *Store) GetPurchase(_ context.Context, id int64) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.st.purchase(id)
}

func (s *Store) ListLines(_ context.Context, purchaseID int64) ([]*purchase.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.st.linesOf(purchaseID), nil
}

func (s *Store) ListPurchases(_ context.Context) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := make([]*purchase.Purchase, 0, len(s.st.purchases))
	for _, p := range s.st.purchases {
		ps = append(ps, &p)
	}

	slices.SortFunc(ps, func(a, b *purchase.Purchase) int { return cmp.Compare(b.ID, a.ID) })

	return ps, nil
}

func (s *Store) ListProducts(_ context.Context) ([]*purchase.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*purchase.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		products = append(products, &p)
	}

	slices.SortFunc(products, func(a, b *purchase.Product) int { return cmp.Compare(a.ID, b.ID) })

	return products, nil
}

func (st *state) purchase(id int64) (*purchase.Purchase, error) {
	p, ok := st.purchases[id]
	if !ok {
		return nil, purchase.ErrNotFound
	}

	return &p, nil
}

func (st *state) linesOf(purchaseID int64) []*purchase.Line {
	ls := st.lines[purchaseID]
	out := make([]*purchase.Line, 0, len(ls))

	for _, l := range ls {
		prod := st.products[l.ProductID]
		l.SKU = prod.SKU
		l.Name = prod.Name
		out = append(out, &l)
	}

	return out
}

type tx struct {
	s    *Store
	st   *state
	done bool
}

func (t *tx) GetStockForUpdate(_ context.Context, productID int64) (*purchase.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, purchase.ErrProductNotFound
	}

	return &p, nil
}

func (t *tx) AdjustStock(_ context.Context, productID int64, delta int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return fmt.Errorf("adjusting stock: %w", purchase.ErrProductNotFound)
	}

	if p.Stock+delta < 0 {
		return fmt.Errorf("adjusting stock of product %d by %d: quantity would become negative", productID, delta)
	}

	p.Stock += delta
	t.st.products[productID] = p

	return nil
}

func (t *tx) CreatePurchase(_ context.Context, p *purchase.Purchase) error {
	if _, dup := t.st.invoices[p.InvoiceNo]; dup {
		return purchase.ErrDuplicateInvoice
	}

	t.st.nextPurchaseID++
	p.ID = t.st.nextPurchaseID
	p.CreatedAt = time.Now().UTC()

	row := *p
	row.Lines = nil
	t.st.purchases[p.ID] = row
	t.st.invoices[p.InvoiceNo] = p.ID

	return nil
}

func (t *tx) CreateLine(_ context.Context, l *purchase.Line) error {
	if _, ok := t.st.purchases[l.PurchaseID]; !ok {
		return fmt.Errorf("creating line: %w", purchase.ErrNotFound)
	}

	if _, ok := t.st.products[l.ProductID]; !ok {
		return fmt.Errorf("creating line: %w", purchase.ErrProductNotFound)
	}

	t.st.nextLineID++
	l.ID = t.st.nextLineID
	t.st.lines[l.PurchaseID] = append(t.st.lines[l.PurchaseID], *l)

	return nil
}

func (t *tx) GetPurchaseForUpdate(_ context.Context, id int64) (*purchase.Purchase, error) {
	return t.st.purchase(id)
}

func (t *tx) ListLines(_ context.Context, purchaseID int64) ([]*purchase.Line, error) {
	return t.st.linesOf(purchaseID), nil
}

func (t *tx) UpdateStatus(_ context.Context, id int64, status purchase.Status, paidAt *time.Time) error {
	p, ok := t.st.purchases[id]
	if !ok {
		return purchase.ErrNotFound
	}

	p.Status = status
	if paidAt != nil {
		at := *paidAt
		p.PaidAt = &at
	}

	t.st.purchases[id] = p

	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}

	t.s.mu.Lock()
	t.s.st = t.st
	t.s.mu.Unlock()

	t.finish()

	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return errTxDone
	}

	t.finish()

	return nil
}

func (t *tx) finish() {
	t.done = true
	<-t.s.slot
}
