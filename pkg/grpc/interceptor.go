package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingClientInterceptor 記錄每次呼叫的方法、耗時與狀態碼
func LoggingClientInterceptor(log *zap.SugaredLogger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		log.Debugw("grpc call",
			"method", method,
			"target", cc.Target(),
			"code", status.Code(err).String(),
			"elapsed", time.Since(start),
		)
		return err
	}
}
