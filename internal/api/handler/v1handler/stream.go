package v1handler

import (
	"net/http"
	"research/internal/research"
	"research/pkg/events"
	"research/pkg/logger"

	"go.uber.org/zap"
)

// StreamResearch runs a research synchronously and streams its progress as
// server-sent events. Validation happens before the SSE handshake so invalid
// requests still get a JSON error; afterwards errors can only be delivered as
// a terminal error event on the stream itself.
func (h *Handler) StreamResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeRequest(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}
	if req, err = research.Normalize(req); err != nil {
		writeError(ctx, w, err)

		return
	}

	sw, err := events.NewWriter(w)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	if err := h.deps.Research.Stream(ctx, GetUserIDFromContext(ctx), req, sw.Send); err != nil {
		// the terminal error event already went out (or the client is gone);
		// the response status cannot change anymore
		logger.Warn(ctx, "Research stream ended with error", zap.Error(err))
	}
}
