// Package v1handler implements the version 1 HTTP API on top of the research
// service.
package v1handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"research/internal/research"
	"research/pkg/logger"
	"research/pkg/serrors"

	"go.uber.org/zap"
)

// DefaultLimit is the page size used when a list request carries no limit.
const DefaultLimit = 20

// Deps are the external dependencies of the v1 handlers.
type Deps struct {
	Research research.Service
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// ErrorResponse is the JSON error body returned by every v1 endpoint.
type ErrorResponse struct {
	// Code is the semantic error kind, e.g. NOT_FOUND.
	Code string `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
}

var statusByKind = map[error]int{
	serrors.ErrBadRequest:   http.StatusBadRequest,
	serrors.ErrUnauthorized: http.StatusUnauthorized,
	serrors.ErrForbidden:    http.StatusForbidden,
	serrors.ErrNotFound:     http.StatusNotFound,
	serrors.ErrConflict:     http.StatusConflict,
	serrors.ErrRateLimited:  http.StatusTooManyRequests,
	serrors.ErrTimeout:      http.StatusGatewayTimeout,
	serrors.ErrUnavailable:  http.StatusServiceUnavailable,
	serrors.ErrInternal:     http.StatusInternalServerError,
}

var defaultMessageByKind = map[error]string{
	serrors.ErrBadRequest:   "bad request",
	serrors.ErrUnauthorized: "unauthorized",
	serrors.ErrForbidden:    "forbidden",
	serrors.ErrNotFound:     "resource not found",
	serrors.ErrConflict:     "conflict",
	serrors.ErrRateLimited:  "rate limited",
	serrors.ErrTimeout:      "timed out",
	serrors.ErrUnavailable:  "service unavailable",
	serrors.ErrInternal:     "internal error",
}

// NewError maps an error onto its HTTP status and JSON body. Unknown errors
// become 500 internal without leaking the cause.
func NewError(ctx context.Context, err error) (int, ErrorResponse) {
	kind := error(serrors.ErrInternal)
	message := ""

	var sem *serrors.Error
	if errors.As(err, &sem) && sem.Kind() != nil {
		kind = sem.Kind()
		message = sem.Message()
	} else {
		for k := range statusByKind {
			if errors.Is(err, k) {
				kind = k

				break
			}
		}
	}

	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = defaultMessageByKind[kind]
	}
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, err.Error())
	}

	return status, ErrorResponse{Code: kind.Error(), Message: message}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := NewError(ctx, err)
	writeJSON(ctx, w, status, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(ctx, "Could not write response", zap.Error(err))
	}
}

func jsonDecode(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return nil
}
