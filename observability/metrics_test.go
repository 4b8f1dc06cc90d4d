package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.InboundEvent("MESSAGE")
	m.DecodeError()
	m.Dropped("unauthorized")
	m.Delivery("MESSAGE", true)
	m.Delivery("MESSAGE", false)
	m.DeliveryDuration(0.01)
	m.ProcessStats(1024, 12.5)

	req.Equal(float64(1), testutil.ToFloat64(m.connections))
	req.Equal(float64(1), testutil.ToFloat64(m.inbound.WithLabelValues("MESSAGE")))
	req.Equal(float64(1), testutil.ToFloat64(m.decodeErrors))
	req.Equal(float64(1), testutil.ToFloat64(m.dropped.WithLabelValues("unauthorized")))
	req.Equal(float64(1), testutil.ToFloat64(m.deliveries.WithLabelValues("MESSAGE", "failed")))
	req.Equal(float64(1024), testutil.ToFloat64(m.processRSS))
	req.Equal(1, testutil.CollectAndCount(m.deliveryTime))

	count, err := testutil.GatherAndCount(reg)
	req.NoError(err)
	req.Equal(9, count)
}

func TestMetrics_Nil_Is_A_NoOp(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.InboundEvent("PING")
		m.DecodeError()
		m.Dropped("persistence")
		m.Delivery("MESSAGE", true)
		m.DeliveryDuration(1)
		m.ProcessStats(1, 1)
	})
}
