package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dppmini/internal/filter"
	"dppmini/internal/models"
	"dppmini/internal/providers"
	"dppmini/internal/services"
	"dppmini/internal/storage"
	"dppmini/internal/structures"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	conf     *structures.Config
	logger   providers.Logger
	service  services.RecordServiceInterface
	cache    providers.CacheProviderInterface
	exporter *storage.Exporter
}

type listResponse struct {
	Items    []models.Record  `json:"items"`
	Count    int              `json:"count"`
	Warnings filter.Warnings `json:"warnings"`
}

type editRequest struct {
	Target models.Record `json:"target"`
	models.ItemInput
}

type errorResponse struct {
	Error     string                  `json:"error"`
	Errors    models.ValidationErrors `json:"errors,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
}

func NewApiController(conf *structures.Config, logger providers.Logger, service services.RecordServiceInterface, cache providers.CacheProviderInterface, exporter *storage.Exporter) *ApiController {
	return &ApiController{
		conf:     conf,
		logger:   logger,
		service:  service,
		cache:    cache,
		exporter: exporter,
	}
}

func criteriaFromQuery(q url.Values) filter.Criteria {
	return filter.Criteria{
		GtinContains:  q.Get("gtin"),
		BatchContains: q.Get("batch"),
		ExpiryFrom:    q.Get("from"),
		ExpiryTo:      q.Get("to"),
	}
}

// listCacheKey encodes the criteria as JSON so that field values containing
// separators cannot run into each other.
func listCacheKey(version uint64, c filter.Criteria) (string, error) {
	enc, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("list:%d:%s", version, enc), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	resp := errorResponse{Error: err.Error(), RequestID: reqID}

	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Errors = verrs
	}

	logType := providers.GetLogTypeByRequestType(r.Method)
	if status >= http.StatusInternalServerError {
		ac.logger.Errorf(logType, "[%s] %s %s: %v", reqID, r.Method, r.URL.Path, err)
	} else {
		ac.logger.Debugf(logType, "[%s] %s %s rejected: %v", reqID, r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, resp)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verrs models.ValidationErrors
	var mce *storage.MissingColumnsError
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.As(err, &mce), errors.Is(err, storage.ErrBadCompressedUpload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func importStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return statusFor(err)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// List serves the filtered, newest-first view. Responses are cached per
// store version so any mutation invalidates them.
func (ac *ApiController) List(w http.ResponseWriter, r *http.Request) {
	c := criteriaFromQuery(r.URL.Query())
	key, err := listCacheKey(ac.service.Version(), c)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		items, warns := ac.service.View(c)
		return listResponse{Items: items, Count: len(items), Warnings: warns}, nil
	})
}

func (ac *ApiController) Recent(w http.ResponseWriter, r *http.Request) {
	n := ac.conf.View.RecentCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid n %q", raw))
			return
		}
		n = v
	}
	items := ac.service.Recent(n)
	writeJSON(w, http.StatusOK, listResponse{Items: items, Count: len(items), Warnings: filter.Warnings{}})
}

func (ac *ApiController) Add(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var in models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	rec, err := ac.service.Add(in)
	if err != nil {
		ac.writeError(w, r, statusFor(err), err)
		return
	}
	ac.logger.Infof(providers.TypeWrite, "[%s] Added %s|%s|%s", middleware.GetReqID(r.Context()), rec.Gtin, rec.Batch, rec.Expiry)
	writeJSON(w, http.StatusCreated, rec)
}

func (ac *ApiController) Edit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	res, err := ac.service.Edit(req.Target, req.ItemInput)
	if err != nil {
		ac.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (ac *ApiController) Delete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	deleted, err := ac.service.Delete(rec)
	if err != nil {
		ac.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// Import accepts either a multipart form with a "file" field or a raw CSV
// body.
func (ac *ApiController) Import(w http.ResponseWriter, r *http.Request) {
	maxSize := ac.conf.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("file too large or invalid form: %w", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			ac.writeError(w, r, http.StatusBadRequest, errors.New("no file provided"))
			return
		}
		defer file.Close()
		src = file
	}

	src, err := ac.exporter.DecodeUpload(src)
	if err != nil {
		ac.writeError(w, r, importStatus(err), err)
		return
	}
	report, err := ac.service.Import(src)
	if err != nil {
		ac.writeError(w, r, importStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (ac *ApiController) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := storage.ParseExportFormat(q.Get("format"))
	if err != nil {
		ac.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	items, _ := ac.service.View(criteriaFromQuery(q))
	data, err := ac.exporter.Export(format, items)
	if err != nil {
		ac.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (ac *ApiController) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.service.Settings())
}

// PutSettings changes only the toggles present in the body.
func (ac *ApiController) PutSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var patch models.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		ac.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, ac.service.PatchSettings(patch))
}
