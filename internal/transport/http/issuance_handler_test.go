package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/issuance"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/middleware"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// MockIssuanceService implements IssuanceService for testing
type MockIssuanceService struct {
	mock.Mock
}

func (m *MockIssuanceService) InitKeys(ctx context.Context) (issuance.KeyPaths, error) {
	args := m.Called(ctx)
	return args.Get(0).(issuance.KeyPaths), args.Error(1)
}

func (m *MockIssuanceService) GenerateLicense(ctx context.Context, req issuance.GenerateRequest) (*domain.LicenseRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseRecord), args.Error(1)
}

func (m *MockIssuanceService) RevokeLicense(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIssuanceService) ListRecords(ctx context.Context) ([]domain.LicenseRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LicenseRecord), args.Error(1)
}

func (m *MockIssuanceService) Status(ctx context.Context) domain.IssuerStatus {
	return m.Called(ctx).Get(0).(domain.IssuerStatus)
}

func (m *MockIssuanceService) ExportRecords(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if data, ok := args.Get(0).([]byte); ok {
		_, _ = w.Write(data)
	}
	return args.Error(1)
}

func (m *MockIssuanceService) ExportRecordsCSV(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if data, ok := args.Get(0).([]byte); ok {
		_, _ = w.Write(data)
	}
	return args.Error(1)
}

func newTestRouter(svc IssuanceService) http.Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	errorHandler := apperrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		NewIssuanceHandler(svc, validation, errorHandler, logger).Routes(r)
	})
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssuanceHandler_Generate(t *testing.T) {
	expiry := "2030-01-01T00:00:00.000Z"

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockIssuanceService)
		expectedStatus int
		expectedBody   func(*testing.T, map[string]interface{})
	}{
		{
			name: "valid request creates license",
			body: `{"key":"abc-1","customer":"Acme","hardwareId":"HW","expiresAt":"2030-01-01"}`,
			setupMock: func(m *MockIssuanceService) {
				m.On("GenerateLicense", mock.Anything, issuance.GenerateRequest{
					Key: "abc-1", Customer: "Acme", HardwareID: "HW", ExpiresAt: "2030-01-01",
				}).Return(&domain.LicenseRecord{
					ID: "id-1", Key: "ABC-1", Customer: "Acme", HardwareID: "HW",
					ExpiresAt: &expiry, Status: domain.RecordStatusActive, FileName: "license-ABC-1.json",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ABC-1", body["key"])
				assert.Equal(t, "active", body["status"])
				assert.Equal(t, expiry, body["expiresAt"])
			},
		},
		{
			name: "null expiry issues a perpetual license",
			body: `{"key":null,"customer":"Acme","hardwareId":"HW","expiresAt":null}`,
			setupMock: func(m *MockIssuanceService) {
				m.On("GenerateLicense", mock.Anything, issuance.GenerateRequest{
					Customer: "Acme", HardwareID: "HW",
				}).Return(&domain.LicenseRecord{
					ID: "id-2", Key: "LIC-1", Customer: "Acme", HardwareID: "HW",
					Status: domain.RecordStatusActive, FileName: "license-LIC-1.json",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "LIC-1", body["key"])
				assert.Contains(t, body, "expiresAt")
				assert.Nil(t, body["expiresAt"])
			},
		},
		{
			name:           "missing customer and hardware id",
			body:           `{"key":"abc"}`,
			setupMock:      func(m *MockIssuanceService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "customer is required; hardwareId is required", body["detail"])
			},
		},
		{
			name:           "malformed json",
			body:           `{"customer":`,
			setupMock:      func(m *MockIssuanceService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing signing key",
			body: `{"customer":"Acme","hardwareId":"HW"}`,
			setupMock: func(m *MockIssuanceService) {
				m.On("GenerateLicense", mock.Anything, mock.Anything).
					Return(nil, apperrors.NewPreconditionError("private key not found, initialize keys first"))
			},
			expectedStatus: http.StatusPreconditionFailed,
			expectedBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "private key not found, initialize keys first", body["detail"])
				assert.Equal(t, "PRECONDITION", body["error_code"])
			},
		},
		{
			name: "storage failure hides detail",
			body: `{"customer":"Acme","hardwareId":"HW"}`,
			setupMock: func(m *MockIssuanceService) {
				m.On("GenerateLicense", mock.Anything, mock.Anything).
					Return(nil, apperrors.NewStorageError("failed to save license records", errors.New("disk full")))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody: func(t *testing.T, body map[string]interface{}) {
				assert.NotContains(t, body["detail"], "disk full")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIssuanceService)
			tt.setupMock(svc)

			rec := serve(newTestRouter(svc), http.MethodPost, "/api/generate", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedBody != nil {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				tt.expectedBody(t, body)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestIssuanceHandler_Revoke(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		callsService   bool
		expectedStatus int
	}{
		{name: "revoked", body: `{"key":"ABC"}`, callsService: true, expectedStatus: http.StatusOK},
		{name: "unknown key", body: `{"key":"NOPE"}`, serviceErr: apperrors.NewNotFoundError("license record not found"), callsService: true, expectedStatus: http.StatusNotFound},
		{name: "empty body", body: "", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIssuanceService)
			if tt.callsService {
				svc.On("RevokeLicense", mock.Anything, mock.Anything).Return(tt.serviceErr)
			}

			rec := serve(newTestRouter(svc), http.MethodPost, "/api/revoke", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestIssuanceHandler_ListRecords(t *testing.T) {
	t.Run("empty ledger renders empty array", func(t *testing.T) {
		svc := new(MockIssuanceService)
		svc.On("ListRecords", mock.Anything).Return(nil, nil)

		rec := serve(newTestRouter(svc), http.MethodGet, "/api/records", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"records":[]}`, rec.Body.String())
	})

	t.Run("store error", func(t *testing.T) {
		svc := new(MockIssuanceService)
		svc.On("ListRecords", mock.Anything).Return(nil, apperrors.NewStorageError("failed to load license records", errors.New("bad json")))

		rec := serve(newTestRouter(svc), http.MethodGet, "/api/records", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})
}

func TestIssuanceHandler_StatusAndInitKeys(t *testing.T) {
	svc := new(MockIssuanceService)
	svc.On("Status", mock.Anything).Return(domain.IssuerStatus{HasPrivateKey: true, DataDir: "/d", LicenseDir: "/d/licenses"})
	svc.On("InitKeys", mock.Anything).Return(issuance.KeyPaths{
		PrivateKeyPath: "/d/keys/private.pem", PublicKeyPath: "/d/keys/public.pem", AppPublicKeyPath: "/d/app/public.pem",
	}, nil)
	router := newTestRouter(svc)

	rec := serve(router, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasPrivateKey":true,"dataDir":"/d","licenseDir":"/d/licenses"}`, rec.Body.String())

	rec = serve(router, http.MethodPost, "/api/init-keys", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"privateKeyPath":"/d/keys/private.pem","publicKeyPath":"/d/keys/public.pem","appPublicKeyPath":"/d/app/public.pem"}`,
		rec.Body.String())
}

func TestIssuanceHandler_Export(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		method          string
		data            []byte
		err             error
		expectedStatus  int
		expectedType    string
		expectedFileExt string
	}{
		{name: "xlsx default", method: "ExportRecords", data: []byte("PK\x03\x04"), expectedStatus: http.StatusOK, expectedType: xlsxContentType, expectedFileExt: ".xlsx"},
		{name: "csv", query: "?format=csv", method: "ExportRecordsCSV", data: []byte("ID,Key\n"), expectedStatus: http.StatusOK, expectedType: csvContentType, expectedFileExt: ".csv"},
		{name: "failure before headers", method: "ExportRecords", err: apperrors.NewStorageError("failed to load license records", nil), expectedStatus: http.StatusInternalServerError, expectedType: "application/problem+json"},
		{name: "unknown format", query: "?format=pdf", expectedStatus: http.StatusBadRequest, expectedType: "application/problem+json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIssuanceService)
			if tt.method != "" {
				svc.On(tt.method, mock.Anything, mock.Anything).Return(tt.data, tt.err)
			}

			rec := serve(newTestRouter(svc), http.MethodGet, "/api/records/export"+tt.query, "")
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedType, rec.Header().Get("Content-Type"))
			if tt.expectedFileExt != "" {
				assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.expectedFileExt)
				assert.True(t, bytes.Equal(tt.data, rec.Body.Bytes()))
			}
			svc.AssertExpectations(t)
		})
	}
}
