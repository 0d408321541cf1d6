package purchase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	type testCase struct {
		from purchase.Status
		to   purchase.Status
		want bool
	}

	tests := []testCase{
		{from: purchase.StatusActive, to: purchase.StatusPaid, want: true},
		{from: purchase.StatusActive, to: purchase.StatusCancelled, want: true},
		{from: purchase.StatusActive, to: purchase.StatusActive, want: false},
		{from: purchase.StatusPaid, to: purchase.StatusCancelled, want: false},
		{from: purchase.StatusPaid, to: purchase.StatusPaid, want: false},
		{from: purchase.StatusCancelled, to: purchase.StatusPaid, want: false},
		{from: purchase.StatusCancelled, to: purchase.StatusActive, want: false},
		{from: purchase.StatusActive, to: purchase.Status("REFUNDED"), want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, purchase.StatusActive.Terminal())
	assert.True(t, purchase.StatusPaid.Terminal())
	assert.True(t, purchase.StatusCancelled.Terminal())
	assert.False(t, purchase.Status("").Valid())
}

func TestKind(t *testing.T) {
	type testCase struct {
		name string
		err  error
		want string
	}

	tests := []testCase{
		{name: "nil", err: nil, want: ""},
		{name: "stock error", err: &purchase.StockError{Err: purchase.ErrInsufficientStock}, want: "insufficient_stock"},
		{name: "transition", err: &purchase.TransitionError{Err: purchase.ErrAlreadyPaid}, want: "already_paid"},
		{name: "unknown", err: errors.New("boom"), want: "persistence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, purchase.Kind(tt.err))
		})
	}
}
