package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDraw(t *testing.T) {
	before := testutil.ToFloat64(drawsExecuted.WithLabelValues("system"))
	RecordDraw(true)
	assert.Equal(t, before+1, testutil.ToFloat64(drawsExecuted.WithLabelValues("system")))

	before = testutil.ToFloat64(drawsExecuted.WithLabelValues("operator"))
	RecordDraw(false)
	assert.Equal(t, before+1, testutil.ToFloat64(drawsExecuted.WithLabelValues("operator")))
}

func TestRecordVerification(t *testing.T) {
	before := testutil.ToFloat64(verifications.WithLabelValues("qr", "miss"))
	RecordVerification("qr", false)
	assert.Equal(t, before+1, testutil.ToFloat64(verifications.WithLabelValues("qr", "miss")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/v1/draws/code/:code", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/v1/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	counter := httpRequests.WithLabelValues("GET", "/v1/draws/code/:code", "204")
	before := testutil.ToFloat64(counter)
	for _, code := range []string{"DRW-000001", "DRW-000002"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/draws/code/"+code, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	notFound := httpRequests.WithLabelValues("GET", "/v1/missing", "404")
	before = testutil.ToFloat64(notFound)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/missing", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(notFound))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordPurchase()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "travel_lottery_ledger_tickets_sold_total"))
}
