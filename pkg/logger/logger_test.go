package logger_test

import (
	"context"
	"research/pkg/logger"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_FallsBackToDefault(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	require.NotNil(t, logger.Get(context.Background()))
}

func TestWithFields_AttachesFieldsToContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))
	ctx = logger.WithFields(ctx, zap.String("researchId", "abc"))

	logger.Info(ctx, "Research started")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "Research started", entries[0].Message)
	require.Equal(t, "abc", entries[0].ContextMap()["researchId"])
}

func TestIsDebug(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	require.True(t, logger.IsDebug(ctx))

	core, _ = observer.New(zap.InfoLevel)
	ctx = logger.WithLogger(context.Background(), zap.New(core))

	require.False(t, logger.IsDebug(ctx))
}
