package prometheus

import (
	"testing"

	farmAuth "github.com/MrEthical07/farmAuth"
	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	registry := promclient.NewRegistry()
	registry.MustRegister(c)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorCounters(t *testing.T) {
	families := gather(t, NewCollector(fakeSource{
		snapshot: farmAuth.MetricsSnapshot{
			Counters: map[farmAuth.MetricID]uint64{
				farmAuth.MetricLoginSuccess:    4,
				farmAuth.MetricAccessRecovered: 2,
			},
			Histograms: map[farmAuth.MetricID][]uint64{},
		},
		dropped: 5,
	}))

	tests := []struct {
		name string
		want float64
	}{
		{"farmauth_login_success_total", 4},
		{"farmauth_access_recovered_total", 2},
		{"farmauth_register_success_total", 0},
		{"farmauth_audit_dropped_total", 5},
	}
	for _, tt := range tests {
		f, ok := families[tt.name]
		if !ok {
			t.Fatalf("family %s missing", tt.name)
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	if _, ok := families["farmauth_decide_latency_seconds"]; ok {
		t.Fatal("histogram without samples should be omitted")
	}
}

func TestCollectorHistogram(t *testing.T) {
	families := gather(t, NewCollector(fakeSource{
		snapshot: farmAuth.MetricsSnapshot{
			Counters: map[farmAuth.MetricID]uint64{},
			Histograms: map[farmAuth.MetricID][]uint64{
				farmAuth.MetricDecideLatency: {3, 0, 1, 0, 0, 0, 0, 2},
			},
		},
	}))

	f, ok := families["farmauth_decide_latency_seconds"]
	if !ok {
		t.Fatal("decide latency histogram missing")
	}
	h := f.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 6 {
		t.Fatalf("expected 6 samples, got %d", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if len(buckets) != 7 {
		t.Fatalf("expected 7 finite buckets, got %d", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 3 {
		t.Fatalf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[6].GetUpperBound() != 0.5 || buckets[6].GetCumulativeCount() != 4 {
		t.Fatalf("unexpected last finite bucket %+v", buckets[6])
	}
}
