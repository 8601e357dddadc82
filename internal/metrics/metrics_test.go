package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/growth"
	"github.com/aretw0/arbor/pkg/patch"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserver(t *testing.T) {
	m := metrics.New()
	var _ growth.Observer = m

	m.OperationApplied(1, 1, patch.Applied)
	m.OperationApplied(1, 1, patch.Applied)
	m.OperationApplied(1, 2, patch.Skipped)
	m.StepEmitted(domain.TreeGrowthStep{})
	m.PatchFailed(1, 3, errors.New("bad"))

	out := scrape(t, m)
	assert.Contains(t, out, `arbor_patch_operations_total{outcome="applied"} 2`)
	assert.Contains(t, out, `arbor_patch_operations_total{outcome="skipped"} 1`)
	assert.Contains(t, out, `arbor_growth_steps_total 1`)
	assert.Contains(t, out, `arbor_growth_failed_patches_total 1`)
}

func TestSequencerReportsToMetrics(t *testing.T) {
	m := metrics.New()
	ops, err := domain.DecodeOperations([]byte(`[
		{"op":"add","path":"/children/0","value":{"state":"a"}},
		{"op":"remove","path":"/children/5"}
	]`))
	require.NoError(t, err)

	_, err = growth.New(growth.WithObserver(m)).Sequence(1,
		&domain.TreeNode{ID: "r", State: "root"},
		[]domain.TreePatch{{PatchNumber: 1, Operations: ops}})
	require.NoError(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, `arbor_patch_operations_total{outcome="applied"} 1`)
	assert.Contains(t, out, `arbor_patch_operations_total{outcome="skipped"} 1`)
	assert.Contains(t, out, `arbor_growth_steps_total 2`)
}

func TestMiddleware(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/gametree/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/gametree/current", nil))

	out := scrape(t, m)
	assert.Contains(t, out, `arbor_http_request_duration_seconds_count{method="GET",route="/gametree/current",status="404"} 1`)
}
