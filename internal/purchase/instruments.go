package purchase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type instruments struct {
	operations metric.Int64Counter
	stockUnits metric.Int64Counter
}

func newInstruments(meter metric.Meter) *instruments {
	ops, err := meter.Int64Counter("purchase.operations",
		metric.WithDescription("Purchase operations by name and outcome"))
	if err != nil {
		otel.Handle(err)
		ops = noop.Int64Counter{}
	}

	units, err := meter.Int64Counter("purchase.stock.units",
		metric.WithDescription("Stock units moved by committed purchase operations"),
		metric.WithUnit("{unit}"))
	if err != nil {
		otel.Handle(err)
		units = noop.Int64Counter{}
	}

	return &instruments{operations: ops, stockUnits: units}
}

func (i *instruments) operation(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
	}

	i.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (i *instruments) stockMoved(ctx context.Context, direction string, lines []*Line) {
	var units int64
	for _, l := range lines {
		units += int64(l.Qty)
	}

	i.stockUnits.Add(ctx, units, metric.WithAttributes(attribute.String("direction", direction)))
}
