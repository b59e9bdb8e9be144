package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{name: "debug level", level: "debug"},
		{name: "info level", level: "info"},
		{name: "warn level", level: "warn"},
		{name: "error level", level: "error"},
		{name: "mixed case", level: "Info"},
		{name: "invalid falls back to info", level: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := Setup(Config{Level: tt.level})
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestFromContext_Default(t *testing.T) {
	logger := FromContext(context.Background())
	assert.Equal(t, slog.Default(), logger)
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil)).With("component", "test")

	ctx := WithLogger(context.Background(), custom)
	got := FromContext(ctx)
	require.Equal(t, custom, got)

	got.Info("hello")
	assert.Contains(t, buf.String(), "component=test")
}

func TestFromContext_NilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard on purpose
	logger := FromContext(nil)
	assert.NotNil(t, logger)
}
