package serrors_test

import (
	"errors"
	"fmt"
	"research/pkg/serrors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWith_MatchesKind(t *testing.T) {
	err := serrors.With(serrors.ErrNotFound, "research %s not found", "abc")

	require.EqualError(t, err, "research abc not found")
	require.ErrorIs(t, err, serrors.ErrNotFound)
	require.NotErrorIs(t, err, serrors.ErrBadRequest)
}

func TestWrap_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := serrors.Wrap(serrors.ErrUnavailable, cause, "could not reach provider")

	require.EqualError(t, err, "could not reach provider: connection refused")
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, err.Cause())
}

func TestWrap_SurvivesFurtherWrapping(t *testing.T) {
	inner := serrors.With(serrors.ErrRateLimited, "throttled")
	outer := fmt.Errorf("could not run research: %w", inner)

	require.ErrorIs(t, outer, serrors.ErrRateLimited)

	var sem *serrors.Error
	require.ErrorAs(t, outer, &sem)
	require.Equal(t, serrors.ErrRateLimited, sem.Kind())
	require.Equal(t, "throttled", sem.Message())
}

func TestKindOnly(t *testing.T) {
	err := serrors.KindOnly(serrors.ErrConflict)

	require.EqualError(t, err, "CONFLICT")
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestNewKind_DistinctSentinels(t *testing.T) {
	a := serrors.NewKind("A")
	b := serrors.NewKind("A")

	// sentinels with the same name still compare equal by value
	require.ErrorIs(t, serrors.KindOnly(a), b)
	require.NotErrorIs(t, serrors.KindOnly(a), serrors.NewKind("B"))
}
