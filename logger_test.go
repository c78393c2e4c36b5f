package prioexec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFmtLogger_LevelsAndWriters(t *testing.T) {
	var out, errw bytes.Buffer
	l := &FmtLogger{Level: LevelInfo, Out: &out, Err: &errw}

	l.Debugf("hidden %d", 1)
	l.Infof("hello %s", "world")
	l.Warnf("careful")
	l.Errorf("broken: %v", "x")

	require.Equal(t, "[INFO]  hello world\n", out.String())
	require.Equal(t, "[WARN]  careful\n[ERROR] broken: x\n", errw.String())
}

func TestFmtLogger_NilWriters(t *testing.T) {
	l := &FmtLogger{}
	// should not panic
	l.Infof("x")
	l.Errorf("y")
}
