package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPlatformIsSingleton(t *testing.T) {
	if Platform() != Platform() {
		t.Fatalf("expected the same registry on repeated calls")
	}
}

func TestObserveOperationCounts(t *testing.T) {
	m := Platform()
	before := testutil.ToFloat64(m.OperationCount("test_op", "InsufficientBalance"))
	m.ObserveOperation("test_op", "InsufficientBalance", time.Now())
	m.ObserveOperation("test_op", "InsufficientBalance", time.Now())
	if got := testutil.ToFloat64(m.OperationCount("test_op", "InsufficientBalance")); got != before+2 {
		t.Fatalf("counter = %v, want %v", got, before+2)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *PlatformMetrics
	m.ObserveOperation("x", OutcomeSuccess, time.Now())
	m.IncBonus(BonusPaid)
	m.IncBatchUnlock()
}
