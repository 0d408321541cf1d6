package purchase

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder        = errors.New("order has no lines")
	ErrInvalidLine       = errors.New("order line needs a positive product id and quantity")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("purchase not found")
	ErrAlreadyCancelled  = errors.New("purchase already cancelled")
	ErrAlreadyPaid       = errors.New("purchase already paid")
	ErrCannotCancelPaid  = errors.New("paid purchase cannot be cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotActive         = errors.New("purchase is not active")
	ErrDuplicateInvoice  = errors.New("duplicate invoice number")
	ErrPersistence       = errors.New("persistence failure")
)

// StockError reports an order line that could not be reserved.
// Err is ErrProductNotFound or ErrInsufficientStock.
type StockError struct {
	Err       error
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if errors.Is(e.Err, ErrProductNotFound) {
		return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
	}

	return fmt.Sprintf("product %d (%s): %v: requested %d, available %d",
		e.ProductID, e.Name, e.Err, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Err }

// TransitionError reports a rejected status change. It matches both its
// specific kind and ErrNotActive.
type TransitionError struct {
	Err        error
	PurchaseID int64
	From       Status
	To         Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("purchase %d: %s -> %s: %v", e.PurchaseID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() []error {
	return []error{e.Err, ErrNotActive}
}

// storeErr tags a repository failure as ErrPersistence unless it already
// carries a domain kind the caller can act on.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrProductNotFound) {
		return err
	}

	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrEmptyOrder, "empty_order"},
	{ErrInvalidLine, "invalid_line"},
	{ErrProductNotFound, "product_not_found"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyCancelled, "already_cancelled"},
	{ErrAlreadyPaid, "already_paid"},
	{ErrCannotCancelPaid, "cannot_cancel_paid"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrPersistence, "persistence"},
}

// Kind names the error kind of err, "persistence" for anything unrecognised
// and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}

	return "persistence"
}
