package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, name, label string) float64 {
	m := &dto.Metric{}
	var err error
	switch name {
	case "fills":
		err = FillsTotal.WithLabelValues(label).Write(m)
	case "skipped":
		err = SkippedTradesTotal.WithLabelValues(label).Write(m)
	}
	require.NoError(t, err)
	return m.GetCounter().GetValue()
}

func TestHandler(t *testing.T) {
	before := counterValue(t, "fills", Side_Buy)
	FillsTotal.WithLabelValues(Side_Buy).Inc()
	SkippedTradesTotal.WithLabelValues(SkipReason_AtTarget).Inc()
	require.Equal(t, before+1, counterValue(t, "fills", Side_Buy))
	require.GreaterOrEqual(t, counterValue(t, "skipped", SkipReason_AtTarget), 1.0)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), `rankbacktest_fills_total{side="buy"}`))
}
