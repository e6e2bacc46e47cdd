package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlops-monitoring-service/internal/adapters/primary/http/dto"
	"mlops-monitoring-service/internal/adapters/secondary/memory"
	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/domain"
	"mlops-monitoring-service/internal/core/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	driftCfg := config.DriftConfig{
		PSIThreshold:      0.2,
		Significance:      0.05,
		MinSampleSize:     50,
		NumericTolerance:  0.01,
		Workers:           2,
		OutlierStdFactor:  3,
		MissingDeltaPP:    5,
		OutlierProportion: 0.01,
	}
	storageCfg := config.StorageConfig{MaxRetries: 1}

	registryStore := memory.NewRegistryStore()
	lineageSvc := services.NewLineageService(memory.NewLineageStore(registryStore))
	artifacts := memory.NewArtifactStore()

	baselineSvc := services.NewBaselineBuilder(artifacts, lineageSvc, driftCfg, storageCfg)
	driftSvc := services.NewDriftDetector(services.NewAnomalyScanner(driftCfg), artifacts, nil, driftCfg, storageCfg)
	registrySvc := services.NewRegistryService(registryStore, lineageSvc, artifacts, nil, config.RegistryConfig{RegisterMaxAttempts: 5})

	r := gin.New()
	New(baselineSvc, driftSvc, registrySvc, lineageSvc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func wideColumn(n int) []string {
	col := make([]string, n)
	for i := range col {
		col[i] = fmt.Sprintf("%d", i)
	}
	return col
}

func baselineRequest(version string) dto.BuildBaselineRequest {
	return dto.BuildBaselineRequest{
		DatasetVersion: version,
		FeatureTypes:   map[string]domain.FeatureType{"age": domain.FeatureTypeNumeric},
		Dataset: dto.DatasetPayload{
			Columns: []string{"age"},
			Values:  map[string][]string{"age": wideColumn(100)},
		},
	}
}

func TestBaselineEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/monitoring/baselines", baselineRequest("ds-v1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var built domain.BaselineStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &built))
	assert.Equal(t, "ds-v1", built.DatasetVersion)
	assert.Equal(t, int64(100), built.RowCount)

	w = doJSON(t, r, http.MethodGet, "/api/v1/monitoring/baselines/ds-v1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/monitoring/baselines/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/monitoring/baselines/ds-v1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/monitoring/baselines/ds-v1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaselineEndpoint_RejectsEmptyDataset(t *testing.T) {
	r := newTestRouter(t)

	req := baselineRequest("ds-v1")
	req.Dataset.Values = map[string][]string{"age": {}}
	w := doJSON(t, r, http.MethodPost, "/api/v1/monitoring/baselines", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDriftEndpoint_StoredBaseline(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/monitoring/baselines", baselineRequest("ds-v1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/monitoring/drift", dto.DetectDriftRequest{
		BaselineVersion: "ds-v1",
		Dataset: dto.DatasetPayload{
			Columns: []string{"age"},
			Values:  map[string][]string{"age": wideColumn(100)},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report domain.DriftReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "ds-v1", report.BaselineVersion)
	assert.InDelta(t, 0, report.DriftScore, 1e-9)
	assert.Empty(t, report.FeaturesWithDrift)
}

func TestDriftEndpoint_MissingBaselineSelection(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/monitoring/drift", dto.DetectDriftRequest{
		Dataset: dto.DatasetPayload{
			Columns: []string{"age"},
			Values:  map[string][]string{"age": wideColumn(100)},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/monitoring/drift", dto.DetectDriftRequest{
		BaselineVersion: "nope",
		Dataset: dto.DatasetPayload{
			Columns: []string{"age"},
			Values:  map[string][]string{"age": wideColumn(100)},
		},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func registerVersion(t *testing.T, r *gin.Engine, group string) dto.ModelVersionResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/registry/groups/"+group+"/versions", dto.RegisterVersionRequest{
		Algorithm:      "xgboost",
		DatasetVersion: "ds-v1",
		Metrics:        map[string]float64{"auc": 0.9},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.ModelVersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegistryEndpoints_RegisterListGet(t *testing.T) {
	r := newTestRouter(t)

	first := registerVersion(t, r, "churn")
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, domain.ApprovalPending, first.ApprovalStatus)

	second := registerVersion(t, r, "churn")
	assert.Equal(t, 2, second.Version)

	w := doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ListVersionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/versions/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest dto.ModelVersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Equal(t, 2, latest.Version)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/versions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/missing/versions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistryEndpoints_ApprovalAndRollback(t *testing.T) {
	r := newTestRouter(t)
	registerVersion(t, r, "churn")
	registerVersion(t, r, "churn")

	// Rollback before approval is rejected.
	w := doJSON(t, r, http.MethodPost, "/api/v1/registry/groups/churn/rollback", dto.RollbackRequest{TargetVersion: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/registry/groups/churn/versions/1/approval", dto.ApprovalRequest{
		Decision: domain.ApprovalApproved,
		Reviewer: "alice",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A second, conflicting decision is a no-op returning the stored record.
	w = doJSON(t, r, http.MethodPost, "/api/v1/registry/groups/churn/versions/1/approval", dto.ApprovalRequest{
		Decision: domain.ApprovalRejected,
		Reviewer: "bob",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.ApprovalRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.ApprovalApproved, rec.Status)
	assert.Equal(t, "alice", rec.Reviewer)

	w = doJSON(t, r, http.MethodPost, "/api/v1/registry/groups/churn/rollback", dto.RollbackRequest{TargetVersion: 1})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active dto.ModelVersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Equal(t, 1, active.Version)
}

func TestRegistryEndpoints_CompareAndDelete(t *testing.T) {
	r := newTestRouter(t)
	registerVersion(t, r, "churn")
	registerVersion(t, r, "churn")

	w := doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/compare?a=1&b=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cmp domain.ModelComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Len(t, cmp.Metrics, 1)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/compare?a=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Group deletion is guarded until every version is tombstoned.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/registry/groups/churn", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/registry/groups/churn/versions/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/v1/registry/groups/churn/versions/2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/registry/groups/churn/versions/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/registry/groups/churn", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLineageEndpoint(t *testing.T) {
	r := newTestRouter(t)
	registerVersion(t, r, "churn")

	w := doJSON(t, r, http.MethodGet, "/api/v1/lineage/churn/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.LineageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "ds-v1", rec.DatasetVersion)

	w = doJSON(t, r, http.MethodGet, "/api/v1/lineage/churn/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/lineage/churn/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
