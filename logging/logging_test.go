package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostloop/rundown/logging"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, logging.LevelTrace, logging.ParseLogLevel("TRACE"))
	require.Equal(t, logging.LevelDebug, logging.ParseLogLevel("debug"))
	require.Equal(t, logging.LevelInfo, logging.ParseLogLevel("Info"))
	require.Equal(t, logging.LevelWarn, logging.ParseLogLevel("WARN"))
	require.Equal(t, logging.LevelError, logging.ParseLogLevel("ERROR"))
	require.Equal(t, logging.LevelAll, logging.ParseLogLevel("whatever"))
}

func TestLogLevelName(t *testing.T) {
	require.Equal(t, "WARN", logging.LogLevelName(logging.LevelWarn))
	require.Equal(t, "UNKNOWN", logging.LogLevelName(logging.Level(99)))
}

func TestGetLevelPatternPrecedence(t *testing.T) {
	logging.SetDefaultLevel(logging.LevelInfo)
	logging.SetLevel("db*", logging.LevelWarn)
	logging.SetLevel("db-writer", logging.LevelTrace)

	// the longest matching pattern wins
	require.Equal(t, logging.LevelTrace, logging.GetLevel("db-writer"))
	require.Equal(t, logging.LevelWarn, logging.GetLevel("db-reader"))
	require.Equal(t, logging.LevelInfo, logging.GetLevel("unrelated"))
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.NewLog("filter-test", buf)
	log.SetLevel(logging.LevelWarn)

	require.False(t, log.DebugEnabled())
	require.False(t, log.InfoEnabled())
	require.True(t, log.WarnEnabled())
	require.True(t, log.ErrorEnabled())
	require.True(t, log.LogEnabled(logging.LevelError))

	log.Debugf("dropped %d", 1)
	log.Info("dropped", "too")
	log.Warnf("kept %s", "warn")
	log.Error("kept", "error")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "kept warn")
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "kept error")
	require.Contains(t, out, "filter-test")
}

func TestFileOutputHasNoEscapes(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.NewLog("escape-test", buf)
	log.SetLevel(logging.LevelTrace)

	log.Warnf("tinted %s", "line")
	require.NotContains(t, buf.String(), "\033[")
}

func TestLogAsWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.NewLog("writer-test", buf)

	n, err := log.Write([]byte("raw line\n"))
	require.NoError(t, err)
	require.Equal(t, len("raw line\n"), n)
	require.Contains(t, buf.String(), "raw line")
}

func TestConfigure(t *testing.T) {
	logging.Configure(&logging.Config{
		Filename:     ".",
		DefaultLevel: "WARN",
		Levels: []logging.LevelConfig{
			{Pattern: "cfg-*", Level: "TRACE"},
		},
	})
	require.Equal(t, logging.LevelWarn, logging.DefaultLevel())
	require.Equal(t, logging.LevelTrace, logging.GetLevel("cfg-anything"))

	// discard preset produces a logger with no sinks; calls are cheap no-ops
	log := logging.GetLog("cfg-anything")
	require.True(t, log.TraceEnabled())
	log.Infof("goes nowhere %d", 42)
}
