package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定名のカウンタ値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRender_IncrementsCounter はレンダリングカウンタが増加することを検証する。
func TestRecordRender_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRender()
	c.RecordRender()

	if val := counterValue(t, reg, "postremote_render_total"); val != 2 {
		t.Errorf("render_total = %v, want 2", val)
	}
}

// TestRecordCacheHitMiss_IncrementsCounters はヒット/ミスのカウンタが独立に増加することを検証する。
func TestRecordCacheHitMiss_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheMiss()

	if val := counterValue(t, reg, "postremote_cache_hit_total"); val != 1 {
		t.Errorf("cache_hit_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "postremote_cache_miss_total"); val != 2 {
		t.Errorf("cache_miss_total = %v, want 2", val)
	}
}

// TestRecordFetchFailure_IncrementsCounterWithLabel はフェッチ失敗カウンタが理由ラベル付きで増加することを検証する。
func TestRecordFetchFailure_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchFailure("FETCH_FAILED")
	c.RecordFetchFailure("FETCH_FAILED")
	c.RecordFetchFailure("INVALID_RESPONSE")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "postremote_fetch_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "FETCH_FAILED":
					if val != 2 {
						t.Errorf("fetch_fail_total{reason=FETCH_FAILED} = %v, want 2", val)
					}
				case "INVALID_RESPONSE":
					if val != 1 {
						t.Errorf("fetch_fail_total{reason=INVALID_RESPONSE} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("postremote_fetch_fail_total metric not found")
	}
}

// TestRecordRemoteStatus_IncrementsCounterWithLabel はリモートステータスカウンタがラベル付きで増加することを検証する。
func TestRecordRemoteStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRemoteStatus(200)
	c.RecordRemoteStatus(404)
	c.RecordRemoteStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "postremote_remote_status_total" {
			found = true
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "200":
					if val != 1 {
						t.Errorf("remote_status_total{status_code=200} = %v, want 1", val)
					}
				case "404":
					if val != 2 {
						t.Errorf("remote_status_total{status_code=404} = %v, want 2", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("postremote_remote_status_total metric not found")
	}
}

// TestRecordFetchLatency_ObservesHistogram はフェッチ所要時間のヒストグラムに値が記録されることを検証する。
func TestRecordFetchLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchLatency(100 * time.Millisecond)
	c.RecordFetchLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "postremote_fetch_duration_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("postremote_fetch_duration_seconds metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordRender()
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordFetchSuccess()
	c.RecordFetchFailure("FETCH_FAILED")
	c.RecordRemoteStatus(200)
	c.RecordFetchLatency(500 * time.Millisecond)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"postremote_render_total",
		"postremote_cache_hit_total",
		"postremote_cache_miss_total",
		"postremote_fetch_success_total",
		"postremote_fetch_fail_total",
		"postremote_remote_status_total",
		"postremote_fetch_duration_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}
