package logger_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	prevWriter, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	prevLevel := logger.GetLogLevel()
	t.Cleanup(func() {
		log.SetOutput(prevWriter)
		log.SetFlags(prevFlags)
		switch prevLevel {
		case logger.LevelDebug:
			logger.SetLogLevel("DEBUG")
		case logger.LevelWarn:
			logger.SetLogLevel("WARN")
		case logger.LevelError:
			logger.SetLogLevel("ERROR")
		default:
			logger.SetLogLevel("INFO")
		}
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug": logger.LevelDebug,
		"INFO":  logger.LevelInfo,
		"":      logger.LevelInfo,
		"Warn":  logger.LevelWarn,
		"error": logger.LevelError,
		"FATAL": logger.LevelFatal,
	}
	for in, want := range tests {
		got, err := logger.ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logger.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestStdLoggerFiltersByLevel(t *testing.T) {
	buf := captureOutput(t)
	logger.SetLogLevel("WARN")

	l := logger.NewStdLogger()
	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestSetLogLevelUnknownFallsBackToInfo(t *testing.T) {
	buf := captureOutput(t)
	logger.SetLogLevel("chatty")

	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
	assert.Contains(t, buf.String(), "Defaulting to INFO level")
}
