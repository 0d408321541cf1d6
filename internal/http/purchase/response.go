package purchase

import (
	"time"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

type purchaseResponse struct {
	ID        int64           `json:"id"`
	InvoiceNo string          `json:"invoice_no"`
	Status    purchase.Status `json:"status"`
	Total     int64           `json:"total"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type lineResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
	Subtotal  int64  `json:"subtotal"`
}

type detailResponse struct {
	purchaseResponse
	Items     []lineResponse `json:"items"`
	CanCancel bool           `json:"can_cancel"`
	CanPay    bool           `json:"can_pay"`
}

func toResponse(p *purchase.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:        p.ID,
		InvoiceNo: p.InvoiceNo,
		Status:    p.Status,
		Total:     p.Total,
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
	}
}

func toResponseList(ps []*purchase.Purchase) []purchaseResponse {
	resp := make([]purchaseResponse, len(ps))
	for i, p := range ps {
		resp[i] = toResponse(p)
	}

	return resp
}

func toDetailResponse(p *purchase.Purchase) detailResponse {
	items := make([]lineResponse, len(p.Lines))
	for i, l := range p.Lines {
		items[i] = lineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			Qty:       l.Qty,
			Price:     l.Price,
			Subtotal:  l.Subtotal,
		}
	}

	return detailResponse{
		purchaseResponse: toResponse(p),
		Items:            items,
		CanCancel:        p.Status.CanTransitionTo(purchase.StatusCancelled),
		CanPay:           p.Status.CanTransitionTo(purchase.StatusPaid),
	}
}
