package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dppmini/internal/filter"
	"dppmini/internal/models"
	"dppmini/internal/services"
	"dppmini/internal/storage"
	"dppmini/internal/structures"
	"dppmini/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- helpers ---

type testEnv struct {
	ctrl  *ApiController
	svc   *services.RecordService
	file  *testutil.MockRecordFile
	cache *testutil.MockCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf := &structures.Config{
		Storage: structures.Storage{SettingsFile: filepath.Join(t.TempDir(), "config.json")},
		View:    structures.ViewConfig{RecentCount: 3},
		Upload:  structures.UploadConfig{MaxFileSize: 1 << 20},
	}
	file := &testutil.MockRecordFile{}
	logger := &testutil.MockLogger{}
	svc := services.NewRecordService(file, storage.NewSettingsStore(conf), logger, testutil.NewMockMetrics())
	require.NoError(t, svc.Restore())

	compressor, err := storage.NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(compressor.Close)

	cache := testutil.NewMockCache()
	return &testEnv{
		ctrl:  NewApiController(conf, logger, svc, cache, storage.NewExporter(compressor)),
		svc:   svc,
		file:  file,
		cache: cache,
	}
}

func do(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) listResponse {
	t.Helper()
	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) seed(t *testing.T, rows ...models.ItemInput) {
	t.Helper()
	_, err := e.svc.BulkUpsert(rows)
	require.NoError(t, err)
}

// --- Add ---

func TestAdd_Created(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Add, http.MethodPost, "/api/items", `{"gtin":"4006381333931","batch":"L1","expiry":"2030-01-01"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var rec models.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "4006381333931", rec.Gtin)
	assert.NotEmpty(t, rec.CreatedAt)
	assert.Len(t, env.file.Stored, 1)
}

func TestAdd_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Add, http.MethodPost, "/api/items", `{"gtin":"123","batch":"","expiry":"tomorrow"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 3)
	assert.Empty(t, env.file.Stored)
}

func TestAdd_BadJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Add, http.MethodPost, "/api/items", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- List / Recent ---

func TestList_FiltersAndWarns(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		models.ItemInput{Gtin: "4006381333931", Batch: "ABC", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "036000291452", Batch: "xyz", Expiry: "2031-01-01"},
	)

	rr := do(env.ctrl.List, http.MethodGet, "/api/items?batch=abc&to=2025-13-40", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeList(t, rr)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "ABC", resp.Items[0].Batch)
	assert.Equal(t, "Use full date: YYYY-MM-DD", resp.Warnings["to"])
}

func TestList_CacheInvalidatedByMutation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"})

	first := decodeList(t, do(env.ctrl.List, http.MethodGet, "/api/items", ""))
	assert.Equal(t, 1, first.Count)
	assert.Len(t, env.cache.Data, 1)

	env.seed(t, models.ItemInput{Gtin: "036000291452", Batch: "L2", Expiry: "2030-01-01"})

	second := decodeList(t, do(env.ctrl.List, http.MethodGet, "/api/items", ""))
	assert.Equal(t, 2, second.Count)
	assert.Len(t, env.cache.Data, 2)
}

func TestList_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	key := "list:1:{}"
	env.cache.Data[key] = []byte(`{"items":[],"count":42,"warnings":{}}`)

	resp := decodeList(t, do(env.ctrl.List, http.MethodGet, "/api/items", ""))
	assert.Equal(t, 42, resp.Count)
}

func TestList_SeparatorInQueryDoesNotShareCacheEntry(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"})

	first := decodeList(t, do(env.ctrl.List, http.MethodGet, "/api/items?gtin=4006381333931&from=%7C", ""))
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, "Use full date: YYYY-MM-DD", first.Warnings["from"])

	second := decodeList(t, do(env.ctrl.List, http.MethodGet, "/api/items?gtin=4006381333931%7C", ""))
	assert.Equal(t, 0, second.Count)
	assert.Empty(t, second.Warnings)
	assert.Len(t, env.cache.Data, 2)
}

func TestListCacheKey_DistinctForShiftedFields(t *testing.T) {
	a, err := listCacheKey(3, filter.Criteria{GtinContains: "1", ExpiryFrom: "|"})
	require.NoError(t, err)
	b, err := listCacheKey(3, filter.Criteria{GtinContains: "1|"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "list:3:")
}

func TestRecent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		models.ItemInput{Gtin: "4006381333931", Batch: "A", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "4006381333931", Batch: "B", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "4006381333931", Batch: "C", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "4006381333931", Batch: "D", Expiry: "2030-01-01"},
	)

	assert.Equal(t, 3, decodeList(t, do(env.ctrl.Recent, http.MethodGet, "/api/items/recent", "")).Count)
	assert.Equal(t, 1, decodeList(t, do(env.ctrl.Recent, http.MethodGet, "/api/items/recent?n=1", "")).Count)
	assert.Equal(t, http.StatusBadRequest, do(env.ctrl.Recent, http.MethodGet, "/api/items/recent?n=x", "").Code)
}

// --- Edit / Delete ---

func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"})
	target := env.svc.Records()[0]

	body, err := json.Marshal(map[string]any{
		"target": target,
		"gtin":   "4006381333931",
		"batch":  "L1-new",
		"expiry": "2030-01-01",
	})
	require.NoError(t, err)

	rr := do(env.ctrl.Edit, http.MethodPut, "/api/items", string(body))
	require.Equal(t, http.StatusOK, rr.Code)

	var res services.EditResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "L1-new", res.Record.Batch)
	assert.Equal(t, target.CreatedAt, res.Record.CreatedAt)
}

func TestEdit_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Edit, http.MethodPut, "/api/items",
		`{"target":{"gtin":"4006381333931","batch":"L1","expiry":"2030-01-01","created_at":"x"},"gtin":"4006381333931","batch":"L2","expiry":"2030-01-01"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"})
	body, err := json.Marshal(env.svc.Records()[0])
	require.NoError(t, err)

	rr := do(env.ctrl.Delete, http.MethodDelete, "/api/items", string(body))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":true}`, rr.Body.String())
	assert.Equal(t, 0, env.svc.Count())

	rr = do(env.ctrl.Delete, http.MethodDelete, "/api/items", string(body))
	assert.JSONEq(t, `{"deleted":false}`, rr.Body.String())
}

// --- Import / Export ---

func TestImport_RawBody(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Import, http.MethodPost, "/api/import",
		"gtin,batch,expiry\n4006381333931,L1,2030-01-01\n1234567890123,L2,2030-01-01\n")
	require.Equal(t, http.StatusOK, rr.Code)

	var report models.ImportReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Dropped[models.DropInvalidGTIN])
}

func TestImport_ZstdExportRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	src.seed(t,
		models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "036000291452", Batch: "L2", Expiry: "2031-01-01"},
	)
	exported := do(src.ctrl.Export, http.MethodGet, "/api/export?format=zst", "")
	require.Equal(t, http.StatusOK, exported.Code)

	dst := newTestEnv(t)
	rr := do(dst.ctrl.Import, http.MethodPost, "/api/import", exported.Body.String())
	require.Equal(t, http.StatusOK, rr.Code)

	var report models.ImportReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Added)
	assert.Len(t, dst.file.Stored, 2)
}

func TestImport_BrokenZstdIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	rr := do(env.ctrl.Import, http.MethodPost, "/api/import", "\x28\xb5\x2f\xfdgarbage")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, env.file.Stored)
}

func TestImport_Multipart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "items.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("gtin,batch,expiry\n4006381333931,L1,2030-01-01\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	env.ctrl.Import(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, env.svc.Count())
}

func TestImport_MissingColumns(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.Import, http.MethodPost, "/api/import", "gtin,batch\n4006381333931,L1\n")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing columns: expiry")
}

func TestExport_CSV(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"})

	rr := do(env.ctrl.Export, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "items.csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\xEF\xBB\xBFsep=,\ngtin,batch,expiry,created_at\n4006381333931,L1,2030-01-01,"))
}

func TestExport_XLSXWithFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		models.ItemInput{Gtin: "4006381333931", Batch: "L1", Expiry: "2030-01-01"},
		models.ItemInput{Gtin: "036000291452", Batch: "L2", Expiry: "2030-01-01"},
	)

	rr := do(env.ctrl.Export, http.MethodGet, "/api/export?format=xlsx&gtin=0360", "")
	require.Equal(t, http.StatusOK, rr.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(storage.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "036000291452", rows[1][0])
}

func TestExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, do(env.ctrl.Export, http.MethodGet, "/api/export?format=pdf", "").Code)
}

// --- Settings ---

func TestSettings_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.ctrl.PutSettings, http.MethodPut, "/api/settings", `{"enforce_future_expiry":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"auto_fix_gtin":false,"enforce_future_expiry":true}`, rr.Body.String())

	rr = do(env.ctrl.PutSettings, http.MethodPut, "/api/settings", `{"auto_fix_gtin":true}`)
	assert.JSONEq(t, `{"auto_fix_gtin":true,"enforce_future_expiry":true}`, rr.Body.String())

	rr = do(env.ctrl.GetSettings, http.MethodGet, "/api/settings", "")
	assert.JSONEq(t, `{"auto_fix_gtin":true,"enforce_future_expiry":true}`, rr.Body.String())
}

func TestSettings_ConcurrentPutsKeepBothToggles(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newTestEnv(t)

		var wg sync.WaitGroup
		for _, body := range []string{`{"auto_fix_gtin":true}`, `{"enforce_future_expiry":true}`} {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				do(env.ctrl.PutSettings, http.MethodPut, "/api/settings", body)
			}(body)
		}
		wg.Wait()

		rr := do(env.ctrl.GetSettings, http.MethodGet, "/api/settings", "")
		require.JSONEq(t, `{"auto_fix_gtin":true,"enforce_future_expiry":true}`, rr.Body.String())
	}
}
