package logger

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestInitializeLevels(t *testing.T) {
	t.Cleanup(func() { Initialize("info") })

	cases := map[string]log.Level{
		"debug":   log.DebugLevel,
		"INFO":    log.InfoLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range cases {
		Initialize(in)
		assert.Equal(t, want, Get().GetLevel(), in)
	}
}

func TestComponentLoggersShareLevel(t *testing.T) {
	t.Cleanup(func() { Initialize("info") })
	Initialize("warn")

	assert.Equal(t, log.WarnLevel, Repository("events").GetLevel())
	assert.Equal(t, log.WarnLevel, Scheduler().GetLevel())
}
