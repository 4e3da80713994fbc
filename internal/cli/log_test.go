package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.Info("shown", "files", 3)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "files=3")
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("indexed corpus", "files", 12)

	out := buf.String()
	assert.Contains(t, out, "indexed corpus")
	assert.Contains(t, out, "files=12")
	assert.Contains(t, out, "elapsed=")
}

func TestLoggerContext(t *testing.T) {
	assert.Same(t, log.Default(), loggerFromContext(context.Background()))

	l := newLogger(&bytes.Buffer{}, log.DebugLevel)
	ctx := withLogger(context.Background(), l)
	assert.Same(t, l, loggerFromContext(ctx))
}
