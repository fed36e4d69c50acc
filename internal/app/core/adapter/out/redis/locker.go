package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
)

const (
	DefaultKeyPrefix     = "ledger:lock:account:"
	DefaultLease         = 10 * time.Second
	DefaultRetryInterval = 10 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// 只刪除自己持有的鎖
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client Locker 需要的 Redis 指令，*redis.Client 與 *redis.ClusterClient 皆滿足
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Locker 以 Redis SET NX PX 實作的分散式帳戶鎖，多個 ledger 實例共用同一組帳戶時使用
// lease 到期後鎖會自動釋放，避免持有者當機造成永久鎖死
type Locker struct {
	rdb    Client
	prefix string
	lease  time.Duration
	retry  time.Duration
}

// Option Locker 設定
type Option func(*Locker)

func WithKeyPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

func WithLease(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.lease = d
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// NewLocker 建立 Redis 帳戶鎖
//
// 參數:
//
//	rdb: redis.Client 或 redis.ClusterClient
//	opts: 其他設定
func NewLocker(rdb Client, opts ...Option) *Locker {
	l := &Locker{
		rdb:    rdb,
		prefix: DefaultKeyPrefix,
		lease:  DefaultLease,
		retry:  DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) key(id int64) string {
	return fmt.Sprintf("%s%d", l.prefix, id)
}

// Lock 依 ID 由小到大取得帳戶鎖，同一次 Lock 的所有 key 共用一個 token
//
// 回傳:
//
//	unlock: 釋放所有鎖，可重複呼叫
//	error: ctx 逾時回傳 ErrLockTimeout；Redis 無法連線回傳 ErrStorageUnavailable
func (l *Locker) Lock(ctx context.Context, ids []int64) (func(), error) {
	token := uuid.NewString()
	held := make([]string, 0, len(ids))
	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(rctx, l.rdb, []string{held[i]}, token).Err(); err != nil {
				logger.Log.Warnw("release account lock failed", "key", held[i], "error", err)
			}
		}
	}

	for _, id := range domain.LockOrder(ids...) {
		key := l.key(id)
		if err := l.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return lockError(ctx.Err(), key)
			}
			return fmt.Errorf("%w: lock %s: %v", domain.ErrStorageUnavailable, key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return lockError(ctx.Err(), key)
		case <-ticker.C:
		}
	}
}

func lockError(err error, key string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
	}
	return err
}

var _ usecase.Locker = (*Locker)(nil)
