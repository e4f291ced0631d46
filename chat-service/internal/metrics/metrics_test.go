package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSplitFullMethod(t *testing.T) {
	svc, method := splitFullMethod("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", svc)
	assert.Equal(t, "Check", method)

	svc, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", svc)
	assert.Equal(t, "unknown", method)
}

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200"))

	assert.Equal(t, before+1, after)
}

func TestOpCounters(t *testing.T) {
	before := testutil.ToFloat64(wsEventsTotal.WithLabelValues("send_room", "RATE_LIMITED"))
	ObserveOp("send_room", "RATE_LIMITED")
	assert.Equal(t, before+1, testutil.ToFloat64(wsEventsTotal.WithLabelValues("send_room", "RATE_LIMITED")))

	active := testutil.ToFloat64(wsActiveConnections)
	IncWSActive()
	DecWSActive()
	assert.Equal(t, active, testutil.ToFloat64(wsActiveConnections))
}
