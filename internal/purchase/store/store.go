package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

var _ purchase.Repository = (*Store)(nil)

type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// New returns a Postgres-backed purchase repository. A positive lockTimeout
// bounds how long a transaction waits on a locked stock or purchase row.
func New(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectPurchaseColumns = `id, invoice_no, status, total, paid_at, created_at`

// scanPurchase expects selectPurchaseColumns order.
func scanPurchase(s scanner) (*purchase.Purchase, error) {
	var p purchase.Purchase

	var status string

	var paidAt sql.NullTime

	if err := s.Scan(&p.ID, &p.InvoiceNo, &status, &p.Total, &paidAt, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Status = purchase.Status(status)

	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}

	return &p, nil
}

func getPurchase(ctx context.Context, q queryer, id int64, lock bool) (*purchase.Purchase, error) {
	query := `SELECT ` + selectPurchaseColumns + ` FROM purchases WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	p, err := scanPurchase(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, purchase.ErrNotFound
		}

		return nil, fmt.Errorf("getting purchase: %w", err)
	}

	return p, nil
}

func listLines(ctx context.Context, q queryer, purchaseID int64) ([]*purchase.Line, error) {
	query := `
		SELECT i.id, i.purchase_id, i.product_id, p.sku, p.name, i.qty, i.price, i.subtotal
		FROM purchase_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.purchase_id = $1
		ORDER BY i.id ASC`

	rows, err := q.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("listing lines: %w", err)
	}
	defer rows.Close()

	var lines []*purchase.Line

	for rows.Next() {
		var l purchase.Line
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.ProductID, &l.SKU, &l.Name, &l.Qty, &l.Price, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}

		lines = append(lines, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating line rows: %w", err)
	}

	return lines, nil
}

func (s *Store) GetPurchase(ctx context.Context, id int64) (*purchase.Purchase, error) {
	return getPurchase(ctx, s.db, id, false)
}

func (s *Store) ListLines(ctx context.Context, purchaseID int64) ([]*purchase.Line, error) {
	return listLines(ctx, s.db, purchaseID)
}

func (s *Store) ListPurchases(ctx context.Context) ([]*purchase.Purchase, error) {
	query := `SELECT ` + selectPurchaseColumns + ` FROM purchases ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var ps []*purchase.Purchase

	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}

		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purchase rows: %w", err)
	}

	return ps, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*purchase.Product, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.price, s.qty
		FROM products p
		JOIN stock s ON s.product_id = p.id
		ORDER BY p.id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*purchase.Product

	for rows.Next() {
		var p purchase.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

type purchaseTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (purchase.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if s.lockTimeout > 0 {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err := dbTx.ExecContext(ctx, stmt); err != nil {
			dbTx.Rollback()
			return nil, fmt.Errorf("setting lock timeout: %w", err)
		}
	}

	return &purchaseTx{tx: dbTx}, nil
}

func (ptx *purchaseTx) Commit() error   { return ptx.tx.Commit() }
func (ptx *purchaseTx) Rollback() error { return ptx.tx.Rollback() }

// GetStockForUpdate locks the product's stock row until the transaction ends.
func (ptx *purchaseTx) GetStockForUpdate(ctx context.Context, productID int64) (*purchase.Product, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.price, s.qty
		FROM products p
		JOIN stock s ON s.product_id = p.id
		WHERE p.id = $1
		FOR UPDATE OF s`

	var p purchase.Product

	err := ptx.tx.QueryRowContext(ctx, query, productID).Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, purchase.ErrProductNotFound
		}

		return nil, fmt.Errorf("locking stock: %w", err)
	}

	return &p, nil
}

func (ptx *purchaseTx) AdjustStock(ctx context.Context, productID int64, delta int) error {
	query := `UPDATE stock SET qty = qty + $1 WHERE product_id = $2`

	res, err := ptx.tx.ExecContext(ctx, query, delta, productID)
	if err != nil {
		return fmt.Errorf("adjusting stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting stock: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("adjusting stock: %w", purchase.ErrProductNotFound)
	}

	return nil
}

// CreatePurchase inserts the header. An invoice number collision leaves the
// transaction usable and reports ErrDuplicateInvoice.
func (ptx *purchaseTx) CreatePurchase(ctx context.Context, p *purchase.Purchase) error {
	query := `
		INSERT INTO purchases (invoice_no, status, total, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (invoice_no) DO NOTHING
		RETURNING id, created_at
	`

	err := ptx.tx.QueryRowContext(ctx, query, p.InvoiceNo, p.Status, p.Total).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return purchase.ErrDuplicateInvoice
		}

		return fmt.Errorf("creating purchase: %w", err)
	}

	return nil
}

func (ptx *purchaseTx) CreateLine(ctx context.Context, l *purchase.Line) error {
	query := `
		INSERT INTO purchase_items (purchase_id, product_id, qty, price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := ptx.tx.QueryRowContext(ctx, query, l.PurchaseID, l.ProductID, l.Qty, l.Price, l.Subtotal).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("creating line: %w", err)
	}

	return nil
}

func (ptx *purchaseTx) GetPurchaseForUpdate(ctx context.Context, id int64) (*purchase.Purchase, error) {
	return getPurchase(ctx, ptx.tx, id, true)
}

func (ptx *purchaseTx) ListLines(ctx context.Context, purchaseID int64) ([]*purchase.Line, error) {
	return listLines(ctx, ptx.tx, purchaseID)
}

func (ptx *purchaseTx) UpdateStatus(ctx context.Context, id int64, status purchase.Status, paidAt *time.Time) error {
	query := `
		UPDATE purchases
		SET status = $1, paid_at = COALESCE($2, paid_at)
		WHERE id = $3
	`

	res, err := ptx.tx.ExecContext(ctx, query, status, paidAt, id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	if n == 0 {
		return purchase.ErrNotFound
	}

	return nil
}
