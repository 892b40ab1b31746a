package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIHandler_FormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCLIHandler(&buf, slog.LevelInfo, false)).With("model", 3)

	log.Info("score saved", "word", "CAT", "score", 1.5)
	assert.Equal(t, "score saved: model=3 word=CAT score=1.5\n", buf.String())
}

func TestCLIHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCLIHandler(&buf, slog.LevelWarn, false))

	log.Info("hidden")
	log.Warn("shown", "err", "no such host")
	assert.Equal(t, "shown: err=\"no such host\"\n", buf.String())
}

func TestCLIHandler_GroupAndColor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCLIHandler(&buf, slog.LevelInfo, true)).WithGroup("api")

	log.Error("boom")
	assert.Equal(t, colorRed+"[api] boom"+colorReset+"\n", buf.String())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}
