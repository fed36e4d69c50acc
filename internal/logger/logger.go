package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全域 SugaredLogger，Initialize 之前為 no-op
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize 依日誌等級建立全域 logger
//
// 參數:
//
//	level: debug / info / warn / error ...
//	development: true 時使用 console 格式輸出，方便本機閱讀
func Initialize(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = l.Sugar().With("service", "bank-ledger")
	return nil
}

// Sync 程式結束前刷出緩衝
func Sync() {
	_ = Log.Sync()
}
