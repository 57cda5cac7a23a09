package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.StorageOperationsTotal)
	assert.NotNil(t, m.RecordsCreatedTotal)

	assert.Panics(t, func() { NewMetrics(registry) }, "registering twice must fail")
}

func TestMetrics_ObserveStorage(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	m.ObserveStorage(ctx, "recipes.create", time.Now(), nil)
	m.ObserveStorage(ctx, "recipes.create", time.Now(), errors.New("boom"))
	m.ObserveStorage(ctx, "recipes.create", time.Now(), nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("recipes.create", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("recipes.create", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StorageOperationDuration))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStorage(context.Background(), "op", time.Now(), nil)
		m.RecordCreated("recipe", 1)
		m.RecordDeleted("recipe", 1)
		m.RecordRateLimited("memory")
		m.AttachOTel(nil)
	})
}

func TestMetrics_RecordCreated(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCreated("step", 3)
	m.RecordCreated("step", 0)
	m.RecordCreated("recipe", 1)
	m.RecordDeleted("recipe", 1)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.RecordsCreatedTotal.WithLabelValues("step")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecordsCreatedTotal.WithLabelValues("recipe")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecordsDeletedTotal.WithLabelValues("recipe")))
}

func TestMetrics_RegisterDBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NoError(t, m.RegisterDBStats(db, "recipebox"))

	families, err := registry.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_sql_max_open_connections")
}

func TestResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	n, err := rw.Write([]byte("created"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, 7, rw.bytesWritten)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("records raw path without a router", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())

		handler := HTTPMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

		expected := `
# HELP recipebox_http_requests_total Total number of HTTP requests
# TYPE recipebox_http_requests_total counter
recipebox_http_requests_total{method="GET",path="/test",status="200"} 1
`
		assert.NoError(t, testutil.CollectAndCompare(m.HTTPRequestsTotal, strings.NewReader(expected)))
		assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
		assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPResponseSize))
	})

	t.Run("uses route template under mux", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())

		router := mux.NewRouter()
		router.Use(HTTPMetricsMiddleware(m))
		router.HandleFunc("/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}).Methods("GET")

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/recipes/41", nil))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/recipes/42", nil))

		assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/recipes/{id}", "404")))
	})
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordCreated("recipe", 1)

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `recipebox_records_created_total{kind="recipe"} 1`)
}
