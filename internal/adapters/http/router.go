package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/claims-processor/internal/config"
	"github.com/kirillkom/claims-processor/internal/core/domain"
	"github.com/kirillkom/claims-processor/internal/core/ports"
	"github.com/kirillkom/claims-processor/internal/observability/metrics"
)

const (
	serviceName       = "claims-api"
	uploadField       = "files"
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
	backpressureWait  = 250 * time.Millisecond
)

//go:embed openapi.yaml
var openAPISpec []byte

var allowedExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
}

// Dependencies are the inbound ports served over HTTP. Submitter, Claims and
// Reports are optional; their routes are only mounted when set.
type Dependencies struct {
	Processor ports.ClaimProcessor
	Loader    ports.DocumentLoader
	Submitter ports.ClaimSubmitter
	Claims    ports.ClaimReader
	Reports   ports.ReportRenderer
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	deps Dependencies

	maxFileSize  int64
	maxDocuments int
	maxInFlight  int
	limiter      *rate.Limiter
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	rt := &Router{
		deps:         deps,
		maxFileSize:  cfg.MaxFileSizeBytes,
		maxDocuments: cfg.MaxDocumentsPerClaim,
		maxInFlight:  cfg.APIMaxInFlight,
	}
	if rt.maxFileSize <= 0 {
		rt.maxFileSize = 10 << 20
	}
	if rt.maxDocuments <= 0 {
		rt.maxDocuments = 10
	}
	if cfg.APIRateLimitRPS > 0 {
		burst := max(cfg.APIRateLimitBurst, 1)
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	claims := http.NewServeMux()
	claims.HandleFunc("POST /v1/claims/process", rt.processClaim)
	if rt.deps.Submitter != nil {
		claims.HandleFunc("POST /v1/claims", rt.submitClaim)
	}
	if rt.deps.Claims != nil {
		claims.HandleFunc("GET /v1/claims/{id}", rt.getClaim)
		if rt.deps.Reports != nil {
			claims.HandleFunc("GET /v1/claims/{id}/report.xlsx", rt.claimReport)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.Handle("/v1/", rt.trafficControl(claims))

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(recoverMiddleware(handler)))
}

// trafficControl applies the rate limit before the in-flight gate so rejected
// requests never hold a slot.
func (rt *Router) trafficControl(next http.Handler) http.Handler {
	var onReject func(string)
	if rt.deps.Metrics != nil {
		onReject = func(reason string) { rt.deps.Metrics.RecordRejected(serviceName, reason) }
	}
	gated := backpressureWithReject(next, rt.maxInFlight, backpressureWait, onReject)
	return rateLimitMiddleware(gated, rt.limiter, onReject)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request) {
	files, err := rt.readUploads(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	docs := rt.deps.Loader.Load(r.Context(), files)
	result, err := rt.deps.Processor.Process(r.Context(), docs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitClaim(w http.ResponseWriter, r *http.Request) {
	files, err := rt.readUploads(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	job, err := rt.deps.Submitter.Submit(r.Context(), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getClaim(w http.ResponseWriter, r *http.Request) {
	job, err := rt.deps.Claims.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) claimReport(w http.ResponseWriter, r *http.Request) {
	job, err := rt.deps.Claims.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.Status != domain.ClaimJobCompleted || job.Result == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("claim %s is %s, report is available once completed", job.ID, job.Status),
		})
		return
	}

	report, err := rt.deps.Reports.Render(job.ID, job.Result)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", rt.deps.Reports.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "claim-"+job.ID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request) ([]domain.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxFileSize*int64(rt.maxDocuments)+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("multipart field '%s' is required: %w", uploadField, err))
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("multipart field '%s' is required", uploadField))
	}
	if len(headers) > rt.maxDocuments {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("%d files exceed the limit of %d", len(headers), rt.maxDocuments))
	}

	files := make([]domain.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := rt.readUpload(header)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}
		files = append(files, file)
	}
	return files, nil
}

func (rt *Router) readUpload(header *multipart.FileHeader) (domain.UploadedFile, error) {
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))]; !ok {
		return domain.UploadedFile{}, fmt.Errorf("invalid file type: %s, only PDF and text files are supported", header.Filename)
	}
	if header.Size > rt.maxFileSize {
		return domain.UploadedFile{}, fmt.Errorf("file %s exceeds %d bytes", header.Filename, rt.maxFileSize)
	}

	f, err := header.Open()
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	if len(data) == 0 {
		return domain.UploadedFile{}, fmt.Errorf("file %s is empty", header.Filename)
	}
	return domain.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
