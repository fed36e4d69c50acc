package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInitialize_ValidLevels(t *testing.T) {
	originalLog := Log
	defer func() { Log = originalLog }()

	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		for _, dev := range []bool{false, true} {
			t.Run(lvl, func(t *testing.T) {
				err := Initialize(lvl, dev)
				assert.NoError(t, err)
				assert.IsType(t, &zap.SugaredLogger{}, Log)
				assert.NotPanics(t, func() {
					Log.Infow("test log", "level", lvl)
				})
			})
		}
	}
}

func TestInitialize_InvalidLevel(t *testing.T) {
	originalLog := Log
	defer func() { Log = originalLog }()

	err := Initialize("not-a-level", false)
	assert.Error(t, err)
}

func TestLog_NopBeforeInitialize(t *testing.T) {
	assert.NotNil(t, Log)
	assert.NotPanics(t, func() {
		Log.Infow("nop logger test")
		Sync()
	})
}

func TestInitialize_ReplacesBootstrapLogger(t *testing.T) {
	originalLog := Log
	defer func() { Log = originalLog }()

	assert.NoError(t, Initialize("info", false))
	bootstrap := Log
	assert.NotSame(t, originalLog, bootstrap)

	// 設定檔等級無效時保留啟動用 logger，錯誤仍然有地方輸出
	assert.Error(t, Initialize("loud", true))
	assert.Same(t, bootstrap, Log)

	assert.NoError(t, Initialize("debug", true))
	assert.NotSame(t, bootstrap, Log)
}
