package research

import (
	"research/pkg/domain"
	"research/pkg/serrors"
	"strings"
)

// Request bounds and defaults.
const (
	DefaultMaxIterations  = 5
	DefaultMaxTimeMinutes = 10
	DefaultOutputLength   = "5 pages"

	maxIterationsCap  = 20
	maxTimeMinutesCap = 60
)

// Normalize validates req and fills in defaults. Zero-valued numeric fields
// mean "use the default"; explicit out-of-range values are rejected.
func Normalize(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return Request{}, serrors.With(serrors.ErrBadRequest, "query must not be empty")
	}

	switch req.Mode {
	case "":
		req.Mode = domain.ModeIterative
	case domain.ModeIterative, domain.ModeDeep:
	default:
		return Request{}, serrors.With(serrors.ErrBadRequest, "invalid mode: %s", req.Mode)
	}

	if req.MaxIterations == 0 {
		req.MaxIterations = DefaultMaxIterations
	}
	if req.MaxIterations < 1 || req.MaxIterations > maxIterationsCap {
		return Request{}, serrors.With(serrors.ErrBadRequest,
			"maxIterations must be between 1 and %d", maxIterationsCap)
	}

	if req.MaxTimeMinutes == 0 {
		req.MaxTimeMinutes = DefaultMaxTimeMinutes
	}
	if req.MaxTimeMinutes < 1 || req.MaxTimeMinutes > maxTimeMinutesCap {
		return Request{}, serrors.With(serrors.ErrBadRequest,
			"maxTimeMinutes must be between 1 and %d", maxTimeMinutesCap)
	}

	if req.OutputLength == "" {
		req.OutputLength = DefaultOutputLength
	}

	return req, nil
}
