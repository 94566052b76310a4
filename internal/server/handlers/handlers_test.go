package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/metrics"
	"github.com/mamadbah2/croptrace/internal/repository/memory"
	"github.com/mamadbah2/croptrace/internal/server/handlers"
	"github.com/mamadbah2/croptrace/internal/server/router"
	"github.com/mamadbah2/croptrace/internal/service/alerts"
	"github.com/mamadbah2/croptrace/internal/service/production"
	"github.com/mamadbah2/croptrace/internal/service/reporting"
	"github.com/mamadbah2/croptrace/internal/service/stock"
	"github.com/mamadbah2/croptrace/internal/service/whatsapp"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	m := metrics.New()
	logger := zap.NewNop()
	svc := production.NewService(memory.NewStore(), stock.NewEngine(stock.DefaultPolicy()), m, production.Options{}, logger)
	alertSvc := alerts.NewService(svc, m, logger)
	reportSvc := reporting.NewService(svc, nil, logger)

	return router.New(
		handlers.NewStockHandler(svc, logger),
		handlers.NewReportHandler(svc, alertSvc, reportSvc, whatsapp.NewDisabledService(logger), logger),
		m, logger,
	)
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestStockLifecycleOverHTTP(t *testing.T) {
	r := newEngine(t)

	w, _ := do(t, r, http.MethodPut, "/records/ingredient", map[string]interface{}{
		"id": "P", "name": "Shea butter", "initialQuantity": "100", "purchaseCost": "10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	batch := func(grams string) map[string]interface{} {
		return map[string]interface{}{
			"id": "M1", "lotNumber": "M1", "status": "Produced", "initialQuantity": "10",
			"components": []map[string]interface{}{{"source": "purchased", "lotId": "P", "quantity": grams}},
		}
	}

	w, body := do(t, r, http.MethodPut, "/records/manufacturing", batch("30"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	writeSet := body["writeSet"].([]interface{})
	require.Len(t, writeSet, 1)
	assert.Equal(t, "70", writeSet[0].(map[string]interface{})["after"])

	w, body = do(t, r, http.MethodPut, "/records/manufacturing", batch("200"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["kind"])

	req := httptest.NewRequest(http.MethodPut, "/records/manufacturing", bytes.NewBufferString("{bad"))
	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	w, body = do(t, r, http.MethodGet, "/records/ingredient/P", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "70", body["remainingQuantity"])
	assert.Equal(t, "0.1", body["unitCost"])

	w, body = do(t, r, http.MethodDelete, "/records/ingredient/P", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DEPENDENT_RECORDS_EXIST", body["kind"])

	w, _ = do(t, r, http.MethodDelete, "/records/manufacturing/M1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, r, http.MethodGet, "/lots?kind=ingredient", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lots := body["lots"].([]interface{})
	require.Len(t, lots, 1)
	assert.Equal(t, "100", lots[0].(map[string]interface{})["remainingQuantity"])
}

func TestMissingSourceIsUnprocessable(t *testing.T) {
	r := newEngine(t)
	w, body := do(t, r, http.MethodPut, "/records/sale", map[string]interface{}{
		"id": "S1", "manufacturingLotId": "ghost", "quantity": "1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SOURCE_LOT_NOT_FOUND", body["kind"])
}

func TestUnknownRoutesAndRecords(t *testing.T) {
	r := newEngine(t)

	w, _ := do(t, r, http.MethodGet, "/records/plant", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := do(t, r, http.MethodGet, "/records/harvest/none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECORD_NOT_FOUND", body["kind"])

	w, _ = do(t, r, http.MethodPut, "/catalog/suppliers", map[string]interface{}{"id": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogRecipeAndReports(t *testing.T) {
	r := newEngine(t)

	w, _ := do(t, r, http.MethodPut, "/records/ingredient", map[string]interface{}{
		"id": "sugar", "name": "Sugar", "initialQuantity": "10", "purchaseCost": "5",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPut, "/catalog/thresholds", map[string]interface{}{
		"id": "t1", "kind": "ingredient", "resourceName": "Sugar", "minimum": "50",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPut, "/catalog/recipes", map[string]interface{}{
		"id": "syrup", "referenceYield": "2",
		"components": []map[string]interface{}{{"type": "generic", "name": "sugar", "quantity": "4"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, http.MethodGet, "/recipes/syrup/estimate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", body["total"])
	assert.Equal(t, "1", body["costPerYield"])

	w, body = do(t, r, http.MethodGet, "/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := body["alerts"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "critical", list[0].(map[string]interface{})["severity"])

	w, body = do(t, r, http.MethodGet, "/kpis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", body["ingredientStockValue"])

	w, _ = do(t, r, http.MethodPost, "/recost", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, "/send-message", map[string]interface{}{"to": "224600000000", "message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "croptrace_http_requests_total")
}
