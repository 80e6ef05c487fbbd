package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("records actions by label", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.ObserveAction("left_click", "success", 10*time.Millisecond)
		m.ObserveAction("left_click", "success", 20*time.Millisecond)
		m.ObserveAction("scroll", "rejected", time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionCounter.WithLabelValues("left_click", "success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionCounter.WithLabelValues("scroll", "rejected")))
		assert.Equal(t, 2, testutil.CollectAndCount(m.ActionCounter))
	})

	t.Run("records model tokens only when positive", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.ObserveModelRequest("anthropic", "claude", "success", time.Second, 120, 0)

		assert.Equal(t, 120.0, testutil.ToFloat64(m.ModelTokens.WithLabelValues("anthropic", "claude", "input")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.ModelTokens))
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.ObserveAction("key", "success", time.Millisecond)
			m.ObserveModelRequest("openai", "gpt", "error", time.Second, 1, 1)
			m.ObserveImagesTrimmed(3)
		})
	})

	t.Run("two registries do not collide", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewMetrics(prometheus.NewRegistry())
			NewMetrics(prometheus.NewRegistry())
		})
	})
}
