package memjoy

import (
	"context"
	"errors"

	"github.com/aphistic/sweet"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/efritz/memjoy/iface"
	"github.com/efritz/memjoy/memory"
)

type MetricsSuite struct{}

func (s *MetricsSuite) TestCallsCounted(t sweet.T) {
	var (
		registry = prometheus.NewRegistry()
		server   = memory.NewServer()
		c        = makeMemoryClient(server, WithMetrics(registry))
		ctx      = context.Background()
	)

	defer c.Close()

	c.Set(ctx, "k", []byte("v"), 0)
	c.Get(ctx, "k")
	c.Get(ctx, "k")

	server.FailNext(errors.New("SERVER_ERROR busy"))
	c.Get(ctx, "k")

	metrics := c.(*client).metrics
	Expect(testutil.ToFloat64(metrics.calls.WithLabelValues("set", "success"))).To(Equal(float64(1)))
	Expect(testutil.ToFloat64(metrics.calls.WithLabelValues("get", "success"))).To(Equal(float64(2)))
	Expect(testutil.ToFloat64(metrics.calls.WithLabelValues("get", "error"))).To(Equal(float64(1)))
	Expect(testutil.ToFloat64(metrics.attempts.WithLabelValues("get"))).To(Equal(float64(3)))
	Expect(testutil.CollectAndCount(metrics.duration)).To(Equal(2))
}

func (s *MetricsSuite) TestPoolGauges(t sweet.T) {
	var (
		registry = prometheus.NewRegistry()
		server   = memory.NewServer()
		client   = makeMemoryClient(server, WithMetrics(registry), WithPoolMin(2))
	)

	defer client.Close()

	families, err := registry.Gather()
	Expect(err).To(BeNil())

	gauges := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if gauge := metric.GetGauge(); gauge != nil {
				gauges[family.GetName()] = gauge.GetValue()
			}
		}
	}

	Expect(gauges).To(Equal(map[string]float64{
		"memjoy_pool_idle_connections":        2,
		"memjoy_pool_outstanding_connections": 0,
		"memjoy_pool_waiters":                 0,
	}))
}

func (s *MetricsSuite) TestMetricsDisabled(t sweet.T) {
	c := makeMemoryClient(memory.NewServer())
	defer c.Close()

	Expect(c.(*client).metrics).To(BeNil())

	_, err := c.Del(context.Background(), "k")
	Expect(err).To(BeNil())
}

func (s *MetricsSuite) TestCallStatus(t sweet.T) {
	Expect(callStatus(nil)).To(Equal("success"))
	Expect(callStatus(&AcquireError{ErrPoolClosed})).To(Equal("acquire_error"))
	Expect(callStatus(&TimeoutError{Verb: iface.VerbGet})).To(Equal("timeout"))
	Expect(callStatus(&RetriesExhaustedError{Verb: iface.VerbGet, Err: errors.New("utoh")})).To(Equal("retries_exhausted"))
	Expect(callStatus(&BackendError{Verb: iface.VerbGet, Err: errors.New("utoh")})).To(Equal("error"))
}
