package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mixwave/quotagate/adapters/metrics"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewWith(reg)

	c.ConsumeTotal.WithLabelValues("success", "free").Inc()
	c.ConsumeTotal.WithLabelValues("limit_exhausted", "free").Inc()
	c.ConsumeTotal.WithLabelValues("limit_exhausted", "free").Inc()
	c.RefundsTotal.Inc()

	if got := testutil.ToFloat64(c.ConsumeTotal.WithLabelValues("limit_exhausted", "free")); got != 2 {
		t.Errorf("limit_exhausted count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RefundsTotal); got != 1 {
		t.Errorf("refunds = %v, want 1", got)
	}
}
