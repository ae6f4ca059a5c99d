package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New(Config{ServiceName: "test", Environment: "ci"})

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/services/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/services/"+id, nil))
	}

	got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/services/{id}", "418"))
	if got != 3 {
		t.Fatalf("requests = %v, want 3", got)
	}
}

func TestStoreObserverCounters(t *testing.T) {
	m := New(Config{})
	m.Mutation("set_locale")
	m.Mutation("set_locale")
	m.PersistenceFailure("save")

	if got := testutil.ToFloat64(m.storeMutations.WithLabelValues("set_locale")); got != 2 {
		t.Fatalf("mutations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.persistenceFailures.WithLabelValues("save")); got != 1 {
		t.Fatalf("failures = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(Config{})
	m.Mutation("login")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "printdesk_store_mutations_total") {
		t.Fatalf("metrics output missing store counter")
	}
}

func TestThemeAppliedGauge(t *testing.T) {
	m := New(Config{})

	m.ThemeApplied(true)
	if got := testutil.ToFloat64(m.darkTheme); got != 1 {
		t.Fatalf("dark theme = %v, want 1", got)
	}
	m.ThemeApplied(false)
	if got := testutil.ToFloat64(m.darkTheme); got != 0 {
		t.Fatalf("dark theme = %v, want 0", got)
	}
}
