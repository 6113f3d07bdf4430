package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	// Replace global default registry to allow test inspection.
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry

	m := New()

	if m.EntriesSettled == nil || m.HTTPRequests == nil || m.SettlementDuration == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	first := prometheus.NewRegistry()
	second := prometheus.NewRegistry()

	a := NewWithRegistry(first)
	b := NewWithRegistry(second)

	a.EntriesSettled.WithLabelValues("deposit").Inc()
	a.RankRewards.Inc()

	families, err := first.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "rewardledger_entries_settled_total" {
			found = true
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("expected 1 settled entry, got %v", got)
			}
		}
	}
	if !found {
		t.Fatal("expected settled counter in first registry")
	}

	b.RankRewards.Inc()
	families, err = second.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "rewardledger_entries_settled_total" {
			t.Fatal("expected second registry to have no settled observations")
		}
	}
}
