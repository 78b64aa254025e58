package logger_test

import (
	"bytes"
	"testing"

	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LogsNothingByDefault(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().WithWriter(&buf)

	log.Error("boom", errors.New("err"), nil)
	log.Info("hello", nil)

	assert.Empty(t, buf.String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithConfig(logger.LevelInfo).
		WithWriter(&buf)

	log.Debug("hidden", nil)
	assert.Empty(t, buf.String())

	log.Info("shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_NamespaceConfig(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithConfig(logger.ConfigMap{
			"peer": logger.LevelDebug,
			"":     logger.LevelWarn,
		}).
		WithWriter(&buf)

	peerLog := log.WithNamespaceAppended("peer")
	otherLog := log.WithNamespaceAppended("other")

	assert.True(t, peerLog.IsLevelEnabled(logger.LevelDebug))
	assert.False(t, otherLog.IsLevelEnabled(logger.LevelDebug))
	assert.True(t, otherLog.IsLevelEnabled(logger.LevelWarn))
}

func TestLogger_NamespaceLastSegmentMatch(t *testing.T) {
	log := logger.New().WithConfig(logger.ConfigMap{
		"subscriber": logger.LevelTrace,
	})

	nested := log.
		WithNamespaceAppended("main").
		WithNamespaceAppended("subscriber")

	assert.Equal(t, "main:subscriber", nested.Namespace())
	assert.True(t, nested.IsLevelEnabled(logger.LevelTrace))
}

func TestLogger_CtxAppended(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithConfig(logger.LevelInfo).
		WithWriter(&buf).
		WithCtx(logger.Ctx{"meeting_id": "meeting-1"})

	log.Info("joined", logger.Ctx{"participant_id": "participant-a"})

	out := buf.String()
	assert.Contains(t, out, "meeting_id=meeting-1")
	assert.Contains(t, out, "participant_id=participant-a")
}

func TestLogger_ErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithConfig(logger.LevelError).
		WithWriter(&buf)

	log.Error("request failed", errors.New("connection refused"), nil)

	assert.Contains(t, buf.String(), "connection refused")
}

func TestLogger_WithConfigNil(t *testing.T) {
	log := logger.New().WithConfig(logger.LevelInfo)

	// A nil config keeps the existing configuration.
	same := log.WithConfig(nil)
	assert.True(t, same.IsLevelEnabled(logger.LevelInfo))
}

func TestNewConfigMapFromString(t *testing.T) {
	config := logger.NewConfigMapFromString("peer:debug,subscriber:trace,:warn")
	require.NotNil(t, config)

	assert.Equal(t, logger.LevelDebug, config.LevelForNamespace("peer"))
	assert.Equal(t, logger.LevelTrace, config.LevelForNamespace("subscriber"))
	assert.Equal(t, logger.LevelWarn, config.LevelForNamespace("anything"))
}

func TestNewConfigMapFromString_Empty(t *testing.T) {
	assert.Nil(t, logger.NewConfigMapFromString(""))
}

func TestLevelFromString(t *testing.T) {
	level, ok := logger.LevelFromString("warn")
	require.True(t, ok)
	assert.Equal(t, logger.LevelWarn, level)

	_, ok = logger.LevelFromString("bogus")
	assert.False(t, ok)
}
