package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigure_Level(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { setLogger(prev) })

	require.NoError(t, Configure(Options{Production: true, Level: "warn"}))
	assert.Equal(t, zapcore.WarnLevel, GetLogger().Level())

	assert.Error(t, Configure(Options{Level: "loud"}))
	// a failed Configure keeps the previous logger
	assert.Equal(t, zapcore.WarnLevel, GetLogger().Level())
}

func TestWith_SharesLevel(t *testing.T) {
	l, err := NewLogger(zap.NewDevelopmentConfig())
	require.NoError(t, err)

	child := l.With("request_id", "abc")
	require.NoError(t, l.SetLevel("error"))
	assert.Equal(t, zapcore.ErrorLevel, child.Level())
}
