// Package events carries purchase lifecycle notifications to downstream
// consumers.
package events

import (
	"context"
	"time"
)

// Type names a lifecycle event.
type Type string

const (
	PurchaseCreated   Type = "purchase.created"
	PurchaseCancelled Type = "purchase.cancelled"
	PurchasePaid      Type = "purchase.paid"
)

// Event is published once per committed purchase operation.
type Event struct {
	Type       Type      `json:"type"`
	PurchaseID int64     `json:"purchase_id"`
	InvoiceNo  string    `json:"invoice_no"`
	Status     string    `json:"status"`
	Total      int64     `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
