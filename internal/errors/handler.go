package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
)

// Problem types following RFC 7807
const (
	TypeValidation   = "/errors/validation"
	TypeNotFound     = "/errors/not-found"
	TypePrecondition = "/errors/precondition-failed"
	TypeForbidden    = "/errors/forbidden"
	TypeRateLimit    = "/errors/rate-limit"
	TypeInternal     = "/errors/internal"
	TypeTimeout      = "/errors/timeout"
	TypeStorage      = "/errors/storage"
	TypeLicense      = "/errors/license"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if reqID != "" {
		problem.WithExtension("trace_id", reqID)
	}
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	WriteProblem(w, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details. The
// human-readable message is carried in both detail and the error extension.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return requestErrorToProblem(reqErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		status, problemType := StatusForType(appErr.Type)
		detail := appErr.Message
		if status >= http.StatusInternalServerError && !h.includeStack {
			detail = "An unexpected error occurred while processing your request"
		}
		return NewProblemDetails(status, problemType, http.StatusText(status), detail, r.URL.Path).
			WithExtension("error", detail).
			WithExtension("error_code", string(appErr.Type))
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// StatusForType maps an error type to its HTTP status and problem type.
func StatusForType(t ErrorType) (int, string) {
	switch t {
	case ErrTypeValidation, ErrTypeParsing:
		return http.StatusBadRequest, TypeValidation
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound
	case ErrTypePrecondition:
		return http.StatusPreconditionFailed, TypePrecondition
	case ErrTypeSignature, ErrTypeBinding, ErrTypeExpiry:
		return http.StatusForbidden, TypeLicense
	case ErrTypeStorage:
		return http.StatusInternalServerError, TypeStorage
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

func requestErrorToProblem(reqErr *RequestError, r *http.Request) *ProblemDetails {
	problem := NewProblemDetails(reqErr.Status, TypeValidation, http.StatusText(reqErr.Status),
		reqErr.Message, r.URL.Path).
		WithExtension("error", reqErr.Message).
		WithExtension("error_code", reqErr.Code)
	if len(reqErr.Limits) > 0 {
		problem.WithExtension("limits", reqErr.Limits)
	}
	return problem
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	))
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	))
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
