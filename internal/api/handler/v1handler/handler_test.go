package v1handler_test

import (
	"context"
	"errors"
	"net/http"
	"research/internal/api/handler/v1handler"
	"testing"

	"research/pkg/logger"
	"research/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Initialize logger to avoid nil pointer deref during tests
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func TestNewError_InternalOnPlainError(t *testing.T) {
	status, body := v1handler.NewError(context.Background(), errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, serrors.ErrInternal.Error(), body.Code)
	require.Equal(t, "internal error", body.Message)
}

func TestNewError_KindSentinelDirect_NotFound(t *testing.T) {
	// Pass the Kind sentinel directly
	status, body := v1handler.NewError(context.Background(), serrors.ErrNotFound)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, serrors.ErrNotFound.Error(), body.Code)
	require.Equal(t, "resource not found", body.Message)
}

func TestNewError_SemanticWithMessage_BadRequest(t *testing.T) {
	err := serrors.With(serrors.ErrBadRequest, "invalid payload: missing query")
	status, body := v1handler.NewError(context.Background(), err)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, serrors.ErrBadRequest.Error(), body.Code)
	require.Equal(t, "invalid payload: missing query", body.Message)
}

func TestNewError_SemanticWrap_Unauthorized(t *testing.T) {
	cause := errors.New("bad token")
	err := serrors.Wrap(serrors.ErrUnauthorized, cause, "unauthorized")
	status, body := v1handler.NewError(context.Background(), err)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, serrors.ErrUnauthorized.Error(), body.Code)
	// Should include provided message, not the cause
	require.Equal(t, "unauthorized", body.Message)
}

func TestNewError_RateLimited(t *testing.T) {
	status, body := v1handler.NewError(context.Background(), serrors.KindOnly(serrors.ErrRateLimited))
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, serrors.ErrRateLimited.Error(), body.Code)
	require.Equal(t, "rate limited", body.Message)
}

func TestNewError_InternalKind_GeneratesInternal(t *testing.T) {
	status, body := v1handler.NewError(context.Background(), serrors.KindOnly(serrors.ErrInternal))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, serrors.ErrInternal.Error(), body.Code)
	require.Equal(t, "internal error", body.Message)
}
