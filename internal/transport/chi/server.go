package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/document/patch"
	domjob "github.com/kailas-cloud/docdex/internal/domain/job"
	"github.com/kailas-cloud/docdex/internal/logger"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// UploadConfig controls POST /ingest.
type UploadConfig struct {
	// Dir receives uploaded files until their job has processed them.
	Dir string
	// MaxBytes bounds a multipart upload. Zero means unlimited.
	MaxBytes int64
	// AllowLocalPaths enables JSON requests naming files already on the server.
	AllowLocalPaths bool
}

// Server serves the docdex HTTP API.
type Server struct {
	collections   *collectionuc.Resolver
	documents     *documentuc.Service
	search        *searchuc.Service
	ingest        *ingestuc.Coordinator
	health        *healthuc.Service
	uploads       UploadConfig
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Resolver,
	documents *documentuc.Service,
	search *searchuc.Service,
	ingest *ingestuc.Coordinator,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		documents:   documents,
		search:      search,
		ingest:      ingest,
		health:      health,
		uploads:     UploadConfig{Dir: os.TempDir()},
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTenant, http.StatusBadRequest, ErrorResponseCodeInvalidTenant),
		sentinelHandler(domain.ErrInvalidCondition, http.StatusBadRequest, ErrorResponseCodeInvalidCondition),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedSource, http.StatusBadRequest, ErrorResponseCodeUnsupportedSource),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, ErrorResponseCodeCollectionNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, ErrorResponseCodeDocumentNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, ErrorResponseCodeJobNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorResponseCodeAlreadyExists),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable,
			ErrorResponseCodeBackendUnavailable),
	}
	return s
}

// WithUploads configures ingestion uploads.
func (s *Server) WithUploads(cfg UploadConfig) *Server {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	s.uploads = cfg
	return s
}

// Routes registers every endpoint on r. Tenant-scoped routes require the
// tenant header.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chirouter.Router) {
		r.Use(TenantMiddleware)

		r.Post("/search", s.Search)

		r.Get("/collections", s.ListCollections)
		r.Delete("/collections/{collection}", s.DeleteCollection)
		r.Get("/collections/{collection}/count", s.CountDocuments)

		r.Post("/collections/{collection}/documents", s.CreateDocument)
		r.Get("/collections/{collection}/documents/{id}", s.GetDocument)
		r.Patch("/collections/{collection}/documents/{id}", s.PatchDocument)
		r.Delete("/collections/{collection}/documents/{id}", s.DeleteDocument)

		r.Post("/ingest", s.Ingest)
		r.Get("/ingest/jobs/{jobID}", s.GetJob)
	})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	searchReq, err := searchRequestFromAPI(req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), tenantFromContext(r.Context()), &searchReq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToAPI(page))
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]Collection, len(cols))
	for i, c := range cols {
		items[i] = collectionToAPI(c)
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Items: items})
}

// DeleteCollection handles DELETE /collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	label, ok := s.pathParam(w, r, "collection")
	if !ok {
		return
	}

	col, err := s.collections.Resolve(tenantFromContext(r.Context()), label)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.collections.Drop(r.Context(), col); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountDocuments handles GET /collections/{collection}/count.
func (s *Server) CountDocuments(w http.ResponseWriter, r *http.Request) {
	label, ok := s.pathParam(w, r, "collection")
	if !ok {
		return
	}

	n, err := s.documents.Count(r.Context(), tenantFromContext(r.Context()), label)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Collection: label, Count: n})
}

// CreateDocument handles POST /collections/{collection}/documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	label, ok := s.pathParam(w, r, "collection")
	if !ok {
		return
	}
	var id *string
	if err := runtime.BindQueryParameter("form", true, false, "id", r.URL.Query(), &id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid id parameter: "+err.Error())
		return
	}

	var body map[string]any
	if !s.decodeJSON(w, r, &body) {
		return
	}

	doc, err := domdoc.New(deref(id), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	stored, err := s.documents.Create(r.Context(), tenantFromContext(r.Context()), label, doc)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/collections/%s/documents/%s", label, stored.ID()))
	writeJSON(w, http.StatusCreated, documentToAPI(label, stored))
}

// GetDocument handles GET /collections/{collection}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	label, id, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Get(r.Context(), tenantFromContext(r.Context()), label, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(label, doc))
}

// PatchDocument handles PATCH /collections/{collection}/documents/{id}.
func (s *Server) PatchDocument(w http.ResponseWriter, r *http.Request) {
	label, id, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if !s.decodeJSON(w, r, &body) {
		return
	}
	p, err := patch.New(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	doc, err := s.documents.Update(r.Context(), tenantFromContext(r.Context()), label, id, p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(label, doc))
}

// DeleteDocument handles DELETE /collections/{collection}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	label, id, ok := s.documentParams(w, r)
	if !ok {
		return
	}

	if err := s.documents.Delete(r.Context(), tenantFromContext(r.Context()), label, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingest handles POST /ingest: either a multipart upload or a JSON list of
// server-local paths.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		files []ingestuc.FileSpec
		opts  = ingestuc.Options{Recreate: true}
		ok    bool
	)
	if mediaType == "multipart/form-data" {
		files, opts, ok = s.uploadedFiles(w, r)
	} else {
		files, opts, ok = s.localFiles(w, r)
	}
	if !ok {
		return
	}

	id, err := s.ingest.Submit(r.Context(), tenantFromContext(r.Context()), files, opts)
	if err != nil {
		removeTemporary(files)
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/ingest/jobs/"+id)
	writeJSON(w, http.StatusAccepted, IngestResponse{JobID: id, Status: domjob.StatusQueued})
}

// uploadedFiles stores the "files" parts of a multipart form in the upload
// directory. Query parameters collection (single file only), id_field and
// recreate apply to every file.
func (s *Server) uploadedFiles(w http.ResponseWriter, r *http.Request) ([]ingestuc.FileSpec, ingestuc.Options, bool) {
	opts := ingestuc.Options{Recreate: true}
	var params struct {
		Collection *string
		IDField    *string
		Recreate   *bool
	}
	q := r.URL.Query()
	for name, dest := range map[string]any{
		"collection": &params.Collection,
		"id_field":   &params.IDField,
		"recreate":   &params.Recreate,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
				fmt.Sprintf("Invalid %s parameter: %v", name, err))
			return nil, opts, false
		}
	}
	if params.Recreate != nil {
		opts.Recreate = *params.Recreate
	}

	if s.uploads.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid multipart body: "+err.Error())
		return nil, opts, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "no files in upload")
		return nil, opts, false
	}
	if params.Collection != nil && len(headers) > 1 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			"collection can only be set for a single-file upload")
		return nil, opts, false
	}

	if err := os.MkdirAll(s.uploads.Dir, 0o750); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("create upload dir: %w", err))
		return nil, opts, false
	}

	files := make([]ingestuc.FileSpec, 0, len(headers))
	for _, h := range headers {
		name := filepath.Base(h.Filename)
		path, err := s.saveUpload(h, name)
		if err != nil {
			removeTemporary(files)
			s.handleDomainError(w, r, fmt.Errorf("store upload %s: %w", name, err))
			return nil, opts, false
		}
		files = append(files, ingestuc.FileSpec{
			Path:       path,
			Filename:   name,
			Collection: deref(params.Collection),
			IDField:    deref(params.IDField),
			Temporary:  true,
		})
	}
	return files, opts, true
}

func (s *Server) saveUpload(h *multipart.FileHeader, name string) (string, error) {
	src, err := h.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.CreateTemp(s.uploads.Dir, "upload-*-"+name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func (s *Server) localFiles(w http.ResponseWriter, r *http.Request) ([]ingestuc.FileSpec, ingestuc.Options, bool) {
	opts := ingestuc.Options{Recreate: true}
	if !s.uploads.AllowLocalPaths {
		writeError(w, http.StatusForbidden, ErrorResponseCodeForbidden, "ingesting server-local paths is disabled")
		return nil, opts, false
	}

	var req IngestRequest
	if !s.decodeJSON(w, r, &req) {
		return nil, opts, false
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "files is required")
		return nil, opts, false
	}
	if req.Recreate != nil {
		opts.Recreate = *req.Recreate
	}

	files := make([]ingestuc.FileSpec, 0, len(req.Files))
	for _, f := range req.Files {
		if strings.TrimSpace(f.Path) == "" {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "file path is required")
			return nil, opts, false
		}
		files = append(files, ingestuc.FileSpec{
			Path:       filepath.Clean(f.Path),
			Filename:   f.Filename,
			Collection: f.Collection,
			IDField:    f.IDField,
		})
	}
	return files, opts, true
}

// GetJob handles GET /ingest/jobs/{jobID}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "jobID")
	if !ok {
		return
	}

	snap, err := s.ingest.Get(tenantFromContext(r.Context()), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chirouter.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			fmt.Sprintf("Invalid format for parameter %s: %v", name, err))
		return "", false
	}
	return v, true
}

func (s *Server) documentParams(w http.ResponseWriter, r *http.Request) (label, id string, ok bool) {
	if label, ok = s.pathParam(w, r, "collection"); !ok {
		return "", "", false
	}
	if id, ok = s.pathParam(w, r, "id"); !ok {
		return "", "", false
	}
	return label, id, true
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// inputSentinels describe caller mistakes; their full message is safe to return.
var inputSentinels = []error{
	domain.ErrInvalidTenant,
	domain.ErrInvalidCondition,
	domain.ErrInvalidRequest,
	domain.ErrUnsupportedSource,
}

// otherSentinels are reported by their sentinel text only.
var otherSentinels = []error{
	domain.ErrCollectionNotFound,
	domain.ErrDocumentNotFound,
	domain.ErrJobNotFound,
	domain.ErrNotFound,
	domain.ErrAlreadyExists,
	domain.ErrBackendUnavailable,
}

// safeDomainMessage returns an error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range inputSentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	for _, s := range otherSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func removeTemporary(files []ingestuc.FileSpec) {
	for _, f := range files {
		if f.Temporary {
			_ = os.Remove(f.Path)
		}
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
