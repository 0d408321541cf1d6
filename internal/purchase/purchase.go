package purchase

import (
	"time"
)

// Product is a catalog entry joined with its on-hand stock.
type Product struct {
	ID    int64
	SKU   string
	Name  string
	Price int64 // Smallest currency unit
	Stock int
}

// Purchase is an order header. It is never physically deleted.
type Purchase struct {
	ID        int64
	InvoiceNo string
	Status    Status
	Total     int64
	PaidAt    *time.Time
	CreatedAt time.Time
	Lines     []*Line // Loaded on Get and Create only
}

// Line is one product entry of a purchase. Price is the catalog price at the
// time the purchase was created and is never re-read from the catalog.
type Line struct {
	ID         int64
	PurchaseID int64
	ProductID  int64
	SKU        string
	Name       string
	Qty        int
	Price      int64
	Subtotal   int64
}

// LineRequest is one requested (product, quantity) pair of a new order.
type LineRequest struct {
	ProductID int64
	Qty       int
}
