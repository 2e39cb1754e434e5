package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesDomainCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	before := testutil.ToFloat64(DispatchesTotal.WithLabelValues("ok"))
	DispatchesTotal.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(DispatchesTotal.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, got)
	}

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `signflow_dispatches_total{result="ok"}`) {
		t.Fatalf("dispatch counter missing from output")
	}
}
