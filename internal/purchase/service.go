package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrJamesThe3rd/stockroom/internal/events"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=purchase
type Repository interface {
	Begin(ctx context.Context) (Tx, error)

	GetPurchase(ctx context.Context, id int64) (*Purchase, error)
	ListPurchases(ctx context.Context) ([]*Purchase, error)
	ListLines(ctx context.Context, purchaseID int64) ([]*Line, error)
	ListProducts(ctx context.Context) ([]*Product, error)
}

// Tx is one repository transaction. Stock and purchase writes made through
// it become visible together on Commit or not at all.
type Tx interface {
	GetStockForUpdate(ctx context.Context, productID int64) (*Product, error)
	AdjustStock(ctx context.Context, productID int64, delta int) error

	CreatePurchase(ctx context.Context, p *Purchase) error
	CreateLine(ctx context.Context, l *Line) error
	GetPurchaseForUpdate(ctx context.Context, id int64) (*Purchase, error)
	ListLines(ctx context.Context, purchaseID int64) ([]*Line, error)
	UpdateStatus(ctx context.Context, id int64, status Status, paidAt *time.Time) error

	Commit() error
	Rollback() error
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

const (
	instrumentationName = "github.com/MrJamesThe3rd/stockroom/internal/purchase"
	maxInvoiceAttempts  = 5
	publishTimeout      = 2 * time.Second
)

type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
	invoiceNo func(time.Time) string
	tracer    trace.Tracer
	metrics   *instruments
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithInvoiceNumbers(gen func(time.Time) string) Option {
	return func(s *Service) { s.invoiceNo = gen }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.Nop{},
		now:       time.Now,
		invoiceNo: NewInvoiceNumber,
		tracer:    otel.Tracer(instrumentationName),
		metrics:   newInstruments(otel.Meter(instrumentationName)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewInvoiceNumber derives an invoice number from t plus a random suffix.
// Uniqueness is finally enforced by the store.
func NewInvoiceNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", t.UnixMilli(), suffix)
}

// Create reserves stock for every requested line and records an ACTIVE
// purchase. Nothing is written unless every line can be served.
func (s *Service) Create(ctx context.Context, reqs []LineRequest) (p *Purchase, err error) {
	ctx, span := s.tracer.Start(ctx, "purchase.create",
		trace.WithAttributes(attribute.Int("purchase.lines", len(reqs))))
	defer func() { s.finish(ctx, span, "create", err) }()

	if len(reqs) == 0 {
		return nil, ErrEmptyOrder
	}

	for _, r := range reqs {
		if r.ProductID <= 0 || r.Qty <= 0 {
			return nil, ErrInvalidLine
		}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin create", err)
	}
	defer tx.Rollback()

	lines, sum, err := reserve(ctx, tx, reqs)
	if err != nil {
		return nil, err
	}

	p = &Purchase{
		Status: StatusActive,
		Total:  sum,
		Lines:  lines,
	}

	if err := s.insertHeader(ctx, tx, p); err != nil {
		return nil, err
	}

	for _, l := range lines {
		l.PurchaseID = p.ID

		if err := tx.CreateLine(ctx, l); err != nil {
			return nil, storeErr("create line", err)
		}

		if err := tx.AdjustStock(ctx, l.ProductID, -l.Qty); err != nil {
			return nil, storeErr("debit stock", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit create", err)
	}

	span.SetAttributes(attribute.Int64("purchase.id", p.ID), attribute.String("purchase.invoice_no", p.InvoiceNo))
	s.metrics.stockMoved(ctx, "debit", lines)
	s.publish(ctx, events.PurchaseCreated, p)

	return p, nil
}

// Cancel moves an ACTIVE purchase to CANCELLED and adds every line's
// quantity back to stock.
func (s *Service) Cancel(ctx context.Context, id int64) (p *Purchase, err error) {
	ctx, span := s.tracer.Start(ctx, "purchase.cancel",
		trace.WithAttributes(attribute.Int64("purchase.id", id)))
	defer func() { s.finish(ctx, span, "cancel", err) }()

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin cancel", err)
	}
	defer tx.Rollback()

	p, err = tx.GetPurchaseForUpdate(ctx, id)
	if err != nil {
		return nil, storeErr("get purchase", err)
	}

	if err := checkTransition(p, StatusCancelled); err != nil {
		return nil, err
	}

	lines, err := tx.ListLines(ctx, id)
	if err != nil {
		return nil, storeErr("list lines", err)
	}

	for _, l := range lines {
		if err := tx.AdjustStock(ctx, l.ProductID, l.Qty); err != nil {
			return nil, storeErr("restock", err)
		}
	}

	if err := tx.UpdateStatus(ctx, id, StatusCancelled, nil); err != nil {
		return nil, storeErr("update status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit cancel", err)
	}

	p.Status = StatusCancelled
	p.Lines = lines

	s.metrics.stockMoved(ctx, "credit", lines)
	s.publish(ctx, events.PurchaseCancelled, p)

	return p, nil
}

// Pay moves an ACTIVE purchase to PAID and stamps the payment time.
func (s *Service) Pay(ctx context.Context, id int64) (p *Purchase, err error) {
	ctx, span := s.tracer.Start(ctx, "purchase.pay",
		trace.WithAttributes(attribute.Int64("purchase.id", id)))
	defer func() { s.finish(ctx, span, "pay", err) }()

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin pay", err)
	}
	defer tx.Rollback()

	p, err = tx.GetPurchaseForUpdate(ctx, id)
	if err != nil {
		return nil, storeErr("get purchase", err)
	}

	if err := checkTransition(p, StatusPaid); err != nil {
		return nil, err
	}

	paidAt := s.now().UTC()
	if err := tx.UpdateStatus(ctx, id, StatusPaid, &paidAt); err != nil {
		return nil, storeErr("update status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit pay", err)
	}

	p.Status = StatusPaid
	p.PaidAt = &paidAt

	s.publish(ctx, events.PurchasePaid, p)

	return p, nil
}

// Get returns a purchase with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Purchase, error) {
	p, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return nil, storeErr("get purchase", err)
	}

	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return nil, storeErr("list lines", err)
	}

	p.Lines = lines

	return p, nil
}

// List returns all purchase headers, newest first.
func (s *Service) List(ctx context.Context) ([]*Purchase, error) {
	ps, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return nil, storeErr("list purchases", err)
	}

	return ps, nil
}

// Products returns the catalog with current stock, for order entry.
func (s *Service) Products(ctx context.Context) ([]*Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, storeErr("list products", err)
	}

	return products, nil
}

// reserve locks the stock rows of every requested product and builds the
// priced lines and their total. Rows are locked in ascending product id so
// concurrent orders touching the same products cannot deadlock; lines keep
// the request order.
func reserve(ctx context.Context, tx Tx, reqs []LineRequest) ([]*Line, int64, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}

	slices.Sort(ids)
	ids = slices.Compact(ids)

	stock := make(map[int64]*Product, len(ids))

	for _, id := range ids {
		prod, err := tx.GetStockForUpdate(ctx, id)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}

		if err != nil {
			return nil, 0, storeErr("lock stock", err)
		}

		stock[id] = prod
	}

	var sum int64

	requested := make(map[int64]int, len(ids))
	lines := make([]*Line, 0, len(reqs))

	for _, r := range reqs {
		prod, ok := stock[r.ProductID]
		if !ok {
			return nil, 0, &StockError{Err: ErrProductNotFound, ProductID: r.ProductID, Requested: r.Qty}
		}

		// A product may appear on several lines; they draw from the same stock.
		// Compare against the remainder so huge quantities cannot wrap.
		claimed := requested[r.ProductID]
		if r.Qty > prod.Stock-claimed {
			return nil, 0, &StockError{
				Err:       ErrInsufficientStock,
				ProductID: prod.ID,
				Name:      prod.Name,
				Requested: saturatingAdd(claimed, r.Qty),
				Available: prod.Stock,
			}
		}

		requested[r.ProductID] = claimed + r.Qty

		if prod.Price > 0 && int64(r.Qty) > math.MaxInt64/prod.Price {
			return nil, 0, fmt.Errorf("product %d: line amount out of range: %w", prod.ID, ErrInvalidLine)
		}

		subtotal := prod.Price * int64(r.Qty)
		if subtotal > math.MaxInt64-sum {
			return nil, 0, fmt.Errorf("order total out of range: %w", ErrInvalidLine)
		}

		sum += subtotal

		lines = append(lines, &Line{
			ProductID: prod.ID,
			SKU:       prod.SKU,
			Name:      prod.Name,
			Qty:       r.Qty,
			Price:     prod.Price,
			Subtotal:  subtotal,
		})
	}

	return lines, sum, nil
}

func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}

	return a + b
}

// insertHeader writes the purchase header, drawing a fresh invoice number
// whenever the store reports a collision.
func (s *Service) insertHeader(ctx context.Context, tx Tx, p *Purchase) error {
	for attempt := 1; ; attempt++ {
		p.InvoiceNo = s.invoiceNo(s.now())

		err := tx.CreatePurchase(ctx, p)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrDuplicateInvoice) || attempt == maxInvoiceAttempts {
			return storeErr("create purchase", err)
		}
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	s.metrics.operation(ctx, op, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
	}
}

func (s *Service) publish(ctx context.Context, typ events.Type, p *Purchase) {
	ev := events.Event{
		Type:       typ,
		PurchaseID: p.ID,
		InvoiceNo:  p.InvoiceNo,
		Status:     string(p.Status),
		Total:      p.Total,
		OccurredAt: s.now().UTC(),
	}

	// Already committed: bounded, and detached from the caller's cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish purchase event", "type", typ, "purchase_id", p.ID, "error", err)
	}
}
