package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/issuance"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/license"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/middleware"
	api "github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/api/v1"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// IssuanceService is what the admin API needs from the issuer
type IssuanceService interface {
	InitKeys(ctx context.Context) (issuance.KeyPaths, error)
	GenerateLicense(ctx context.Context, req issuance.GenerateRequest) (*domain.LicenseRecord, error)
	RevokeLicense(ctx context.Context, key string) error
	ListRecords(ctx context.Context) ([]domain.LicenseRecord, error)
	Status(ctx context.Context) domain.IssuerStatus
	ExportRecords(ctx context.Context, w io.Writer) error
	ExportRecordsCSV(ctx context.Context, w io.Writer) error
}

// IssuanceHandler serves the local admin API
type IssuanceHandler struct {
	service      IssuanceService
	validation   *middleware.ValidationMiddleware
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewIssuanceHandler creates a new issuance handler
func NewIssuanceHandler(service IssuanceService, validation *middleware.ValidationMiddleware,
	errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *IssuanceHandler {
	return &IssuanceHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "issuance")),
	}
}

// Routes mounts the admin endpoints
func (h *IssuanceHandler) Routes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/init-keys", h.InitKeys)
	r.Get("/records", h.ListRecords)
	r.Get("/records/export", h.ExportRecords)
	r.Post("/generate", h.Generate)
	r.Post("/revoke", h.Revoke)
}

// Status handles GET /api/status
func (h *IssuanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// InitKeys handles POST /api/init-keys. Existing keys are replaced, which
// invalidates every license signed with them.
func (h *IssuanceHandler) InitKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paths, err := h.service.InitKeys(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "signing keys rotated",
		slog.String("request_id", middleware.GetRequestID(ctx)))
	render.JSON(w, r, api.KeyPathsResponse{
		PrivateKeyPath:   paths.PrivateKeyPath,
		PublicKeyPath:    paths.PublicKeyPath,
		AppPublicKeyPath: paths.AppPublicKeyPath,
	})
}

// ListRecords handles GET /api/records
func (h *IssuanceHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListRecords(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.LicenseRecord{}
	}
	render.JSON(w, r, api.RecordsResponse{Records: records})
}

// Generate handles POST /api/generate
func (h *IssuanceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.GenerateLicenseRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rec, err := h.service.GenerateLicense(ctx, issuance.GenerateRequest{
		Key:        req.Key,
		Customer:   req.Customer,
		HardwareID: req.HardwareID,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license generated",
		slog.String("key", license.MaskKey(rec.Key)),
		slog.String("file", rec.FileName))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// Revoke handles POST /api/revoke
func (h *IssuanceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RevokeLicenseRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.service.RevokeLicense(ctx, req.Key); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license revoked", slog.String("key", license.MaskKey(req.Key)))
	render.JSON(w, r, api.SuccessResponse{Success: true})
}

// ExportRecords handles GET /api/records/export[?format=csv]. The file is
// built in memory so a failure still yields a problem response instead of a
// truncated download.
func (h *IssuanceHandler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	export, contentType, ext := h.service.ExportRecords, xlsxContentType, "xlsx"
	switch format := r.URL.Query().Get("format"); format {
	case "", "xlsx":
	case "csv":
		export, contentType, ext = h.service.ExportRecordsCSV, csvContentType, "csv"
	default:
		h.errorHandler.HandleError(w, r, apperrors.NewAppValidationError(
			fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	var buf bytes.Buffer
	if err := export(r.Context(), &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := fmt.Sprintf("license-records-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
