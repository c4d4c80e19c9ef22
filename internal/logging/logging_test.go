package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Level(true))
	assert.Equal(t, zapcore.InfoLevel, Level(false))
}

func TestLoggerWritesNameAndFields(t *testing.T) {
	var buf bytes.Buffer
	logs := NewZapLogger(&buf, "ronexport", zapcore.InfoLevel)

	logs.Infow("transactions discovered", "unique", 3)
	logs.Debugw("hidden at info level")
	_ = logs.Sync()

	out := buf.String()
	assert.Contains(t, out, "ronexport")
	assert.Contains(t, out, "transactions discovered")
	assert.Contains(t, out, `"unique": 3`)
	assert.NotContains(t, out, "hidden at info level")
}

func TestLoggerDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logs := NewZapLogger(&buf, "ronexport", zapcore.DebugLevel)
	logs.Debugw("listing page", "page", 2)
	_ = logs.Sync()
	assert.Contains(t, buf.String(), "listing page")
}
