package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/logger"
)

// LoggingInterceptor 記錄每個請求的方法、耗時與狀態碼並更新 metrics，panic 會轉成 Internal
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorw("grpc handler panic", "method", info.FullMethod, "panic", r)
			err = status.Errorf(codes.Internal, "internal error")
		}

		code := status.Code(err)
		elapsed := time.Since(start)
		requestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		requestDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())

		fields := []any{"method", info.FullMethod, "code", code.String(), "elapsed", elapsed}
		switch code {
		case codes.OK:
			logger.Log.Debugw("grpc request", fields...)
		case codes.Internal, codes.Unavailable, codes.DataLoss:
			logger.Log.Errorw("grpc request", append(fields, "error", err)...)
		default:
			logger.Log.Infow("grpc request", append(fields, "error", err)...)
		}
	}()
	return handler(ctx, req)
}
