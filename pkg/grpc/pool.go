package grpc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// 預設的 keepalive 參數
const (
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = time.Second
)

// Pool 依目標地址快取 gRPC 連線，同一地址只維護一條連線
// 所有連線都使用 JSON codec，可安全地被多個 goroutine 共用
type Pool struct {
	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn

	interceptors []grpc.UnaryClientInterceptor
	keepalive    keepalive.ClientParameters
	extra        []grpc.DialOption
}

// PoolOption Pool 設定
type PoolOption func(*Pool)

// WithInterceptor 加入 UnaryClientInterceptor，依加入順序串接
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.interceptors = append(p.interceptors, interceptor)
	}
}

// WithKeepalive 調整閒置 ping 間隔與等待回應的時間
func WithKeepalive(interval, timeout time.Duration) PoolOption {
	return func(p *Pool) {
		if interval > 0 {
			p.keepalive.Time = interval
		}
		if timeout > 0 {
			p.keepalive.Timeout = timeout
		}
	}
}

// WithDialOptions 每條新連線都會附加的額外選項 (例如 TLS)
func WithDialOptions(opts ...grpc.DialOption) PoolOption {
	return func(p *Pool) {
		p.extra = append(p.extra, opts...)
	}
}

// NewPool 建立連線池
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		conns: make(map[string]*grpc.ClientConn),
		keepalive: keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得 target 的連線，不存在或已關閉時建立新連線
// grpc.NewClient 不會立即連線，第一次呼叫 RPC 時才真正建立
//
// 參數:
//
//	target: 帳務服務地址 (e.g., "localhost:50051")
//	opts: 只套用在這次新建連線的額外選項
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[target]
	p.mu.RUnlock()
	if ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[target]; ok {
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
		delete(p.conns, target)
	}

	dialOpts := []grpc.DialOption{
		// 內部服務走私有網路，需要 TLS 時以 WithDialOptions 覆蓋
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(p.keepalive),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	if len(p.interceptors) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(p.interceptors...))
	}
	dialOpts = append(dialOpts, p.extra...)
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Len 目前快取的連線數
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Close 關閉並清空所有連線，之後仍可再次 GetConnection
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
		}
		delete(p.conns, target)
	}
	return errors.Join(errs...)
}
