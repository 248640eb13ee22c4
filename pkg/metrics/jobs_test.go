package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := "invoice-sweep"

	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddAttached(job, 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, family := range families {
		byName[family.GetName()] = family
	}

	if counterValue(t, byName, "job_success", job) != 1 {
		t.Fatal("expected one success")
	}
	if counterValue(t, byName, "job_failure", job) != 1 {
		t.Fatal("expected one failure")
	}
	if counterValue(t, byName, "job_orders_attached", job) != 3 {
		t.Fatal("expected three attached orders")
	}

	hist, ok := byName["job_duration_seconds"]
	if !ok || len(hist.GetMetric()) == 0 {
		t.Fatal("expected duration histogram to be exported")
	}
	if hist.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatal("expected a single duration observation")
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	var metrics *JobMetrics
	metrics.ObserveDuration("x", time.Second)
	metrics.IncSuccess("x")
	metrics.IncFailure("x")
	metrics.AddAttached("x", 1)
}

func counterValue(t *testing.T, families map[string]*dto.MetricFamily, name, job string) float64 {
	t.Helper()
	family, ok := families[name]
	if !ok {
		t.Fatalf("metric family %s missing", name)
	}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "job" && label.GetValue() == job {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s missing label %s", name, fmt.Sprintf("job=%s", job))
	return 0
}
