package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPositionMetrics(t *testing.T) {
	PositionDirection.Set(0)
	PositionQuantity.Set(0)

	UpdatePosition(1, 2)

	if testutil.ToFloat64(PositionDirection) != 1 {
		t.Errorf("Expected PositionDirection to be 1, got %f", testutil.ToFloat64(PositionDirection))
	}
	if testutil.ToFloat64(PositionQuantity) != 2 {
		t.Errorf("Expected PositionQuantity to be 2, got %f", testutil.ToFloat64(PositionQuantity))
	}
}

func TestIncrementFunctions(t *testing.T) {
	OrdersSubmitted.Reset()
	OrdersRejected.Reset()
	Fills.Reset()

	IncrementSubmitted("ENTRY")
	IncrementSubmitted("STOP")
	IncrementRejected("TARGET")
	IncrementFill("STOP")

	if got := testutil.ToFloat64(OrdersSubmitted.WithLabelValues("ENTRY")); got != 1 {
		t.Errorf("Expected OrdersSubmitted[ENTRY] to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(OrdersSubmitted.WithLabelValues("STOP")); got != 1 {
		t.Errorf("Expected OrdersSubmitted[STOP] to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(OrdersRejected.WithLabelValues("TARGET")); got != 1 {
		t.Errorf("Expected OrdersRejected[TARGET] to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(Fills.WithLabelValues("STOP")); got != 1 {
		t.Errorf("Expected Fills[STOP] to be 1, got %f", got)
	}
}
