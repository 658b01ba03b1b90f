package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
	"github.com/xelth-com/eckcutgo/internal/importer"
	"github.com/xelth-com/eckcutgo/internal/services/imports"
	"github.com/xelth-com/eckcutgo/internal/store"
)

const bundleJSON = `{
  "products": [{"LinkID": "P1", "ItemNumber": "Cabinet", "Quantity": 1, "LinkIDWorkOrder": "WO-1"}],
  "parts": [
    {"LinkID": "PT1", "LinkIDProduct": "P1", "Name": "Side"},
    {"LinkID": "PT2", "LinkIDProduct": "P1", "Name": "Top"}
  ],
  "nestSheets": [{"LinkID": "N1", "FileName": "sheet-1", "Barcode": "BC1"}],
  "optimizationResults": [{"LinkIDPart": "PT1", "LinkIDSheet": "N1"}]
}`

func newTestRouter(t *testing.T) (*Router, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc, err := imports.NewService(st, &config.Config{
		Import: config.ImportConfig{SessionTTL: time.Hour},
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return NewRouter(svc, st, zap.NewNop()), st
}

func do(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(r, "POST", "/api/imports?fileName=export.json", []byte(bundleJSON), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session struct {
		SessionID string               `json:"sessionId"`
		FileName  string               `json:"fileName"`
		Data      *importer.ImportData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "export.json", session.FileName)
	require.Len(t, session.Data.Products, 1)
	return session.SessionID
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(r, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

// unreachableStore fails every ping
type unreachableStore struct {
	*store.MemoryStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthCheck_DatabaseUnavailable(t *testing.T) {
	st := unreachableStore{store.NewMemoryStore()}
	svc, err := imports.NewService(st, &config.Config{
		Import: config.ImportConfig{SessionTTL: time.Hour},
	}, nil, zap.NewNop())
	require.NoError(t, err)
	r := NewRouter(svc, st, zap.NewNop())

	rec := do(r, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"unavailable"`)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(r, "GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportFlow(t *testing.T) {
	r, st := newTestRouter(t)
	sessionID := parseSession(t, r)

	rec := do(r, "GET", "/api/imports/"+sessionID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, "POST", "/api/imports/"+sessionID+"/convert?all=true", []byte(`{"workOrderName":"Kitchen"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result importer.ConversionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "WO-1", result.WorkOrderID)
	assert.Equal(t, 2, result.Statistics.ConvertedParts)
	assert.Equal(t, 1, st.Count("work_orders"))

	rec = do(r, "GET", "/api/workorders/WO-1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, "GET", "/api/workorders/WO-1/labels", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	// Second import of the same work order is a conflict
	sessionID = parseSession(t, r)
	rec = do(r, "POST", "/api/imports/"+sessionID+"/convert?all=true", []byte(`{"workOrderName":"Kitchen"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggestedId":"WO-1_`)
}

func TestConvertValidationError(t *testing.T) {
	r, _ := newTestRouter(t)
	sessionID := parseSession(t, r)

	body := []byte(`{"workOrderName":"Kitchen","selectedItems":[{"id":"X-999","itemType":"part"}]}`)
	rec := do(r, "POST", "/api/imports/"+sessionID+"/convert", body, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "X-999")
}

func TestNotFoundAndBadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/imports/nope", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "POST", "/api/imports/nope/convert", []byte(`{}`), "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/workorders/nope", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/workorders/nope/labels", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/api/imports", []byte(`{`), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "POST", "/api/imports", []byte(`{}`), "").Code)
}

func TestParseWorkbookUpload(t *testing.T) {
	r, _ := newTestRouter(t)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "PRODUCTS"))
	require.NoError(t, f.SetSheetRow("PRODUCTS", "A1", &[]any{"LinkID", "ItemNumber", "Quantity"}))
	require.NoError(t, f.SetSheetRow("PRODUCTS", "A2", &[]any{"P1", "Cabinet", 1}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "export.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(r, "POST", "/api/imports/workbook", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"fileName":"export.xlsx"`)

	rec = do(r, "POST", "/api/imports/workbook", []byte("not multipart"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
