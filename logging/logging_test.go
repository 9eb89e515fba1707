package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWriterLoggerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf).WithFields(Fields{"component": "test"})

	logger.Info("analysis done", Fields{"bpm": 120})
	logger.Debug("hidden")
	logger.Error(errors.New("boom"), "failed")

	out := buf.String()
	assert.Contains(t, out, "[INFO] analysis done bpm=120 component=test")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[ERROR] failed: boom component=test")
}

func TestWithContextCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})
	ctx = ContextWithFields(ctx, Fields{"file": "a.wav"})

	NewWriterLogger(&buf).WithContext(ctx).Info("start")
	assert.Contains(t, buf.String(), "file=a.wav request_id=abc")
}

func TestLogrusAdapter(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	logger := NewLogrusLogger(base)
	logger.SetLevel(DebugLevel)
	logger.WithFields(Fields{"component": "server"}).Debug("request", Fields{"status": 200})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLogrusRejectsBadLevel(t *testing.T) {
	_, err := NewLogrus("loud", "text")
	assert.Error(t, err)

	l, err := NewLogrus("warn", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.entry.Logger.GetLevel())
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}

func TestDisableColors(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	writer := NewWriterLogger(&buf)
	writer.useColors = true
	SetGlobalLogger(writer)
	DisableColors()
	writer.Warn("clipping")
	assert.Equal(t, "[WARN] clipping\n", buf.String())

	l, err := NewLogrus("info", "text")
	require.NoError(t, err)
	SetGlobalLogger(l)
	DisableColors()
	formatter, ok := l.entry.Logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.DisableColors)
}
