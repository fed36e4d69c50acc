package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
)

const (
	DefaultLockTimeout     = 3 * time.Second
	DefaultHistoryLimit    = 100
	DefaultInterestWorkers = 8
	defaultPublishTimeout  = 5 * time.Second
)

// CoreUseCase 是核心業務邏輯層
// 所有餘額變動都經過 withAccounts：鎖定 -> 重新讀取 -> 計算 -> 一次提交 -> 解鎖
type CoreUseCase struct {
	store     Store
	locker    Locker
	publisher EventPublisher

	lockTimeout     time.Duration
	historyLimit    int
	interestWorkers int
	now             func() time.Time
}

// Option CoreUseCase 設定
type Option func(*CoreUseCase)

// WithLockTimeout 設定取得帳戶鎖的最長等待時間
func WithLockTimeout(d time.Duration) Option {
	return func(c *CoreUseCase) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithPublisher 設定交易事件發佈者
func WithPublisher(p EventPublisher) Option {
	return func(c *CoreUseCase) { c.publisher = p }
}

// WithHistoryLimit 設定查詢交易紀錄的預設筆數
func WithHistoryLimit(n int) Option {
	return func(c *CoreUseCase) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithInterestWorkers 設定批次計息的併發數
func WithInterestWorkers(n int) Option {
	return func(c *CoreUseCase) {
		if n > 0 {
			c.interestWorkers = n
		}
	}
}

// WithClock 替換時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(c *CoreUseCase) { c.now = now }
}

// NewCoreUseCase 建立 CoreUseCase
//
// 參數:
//
//	store: 儲存層 (記憶體 + WAL 或 MySQL)
//	locker: 帳戶鎖 (單機或 Redis)
//	opts: 其他設定
func NewCoreUseCase(store Store, locker Locker, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		store:           store,
		locker:          locker,
		lockTimeout:     DefaultLockTimeout,
		historyLimit:    DefaultHistoryLimit,
		interestWorkers: DefaultInterestWorkers,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// withAccounts 在持有 ids 所有帳戶鎖的情況下執行 fn
// 不存在的帳戶在取鎖前就回傳 ErrAccountNotFound
// fn 拿到的是鎖定後重新讀取的帳戶副本，回傳的交易會在解鎖前一次提交
func (c *CoreUseCase) withAccounts(
	ctx context.Context,
	ids []int64,
	fn func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error),
) ([]*domain.Transaction, error) {
	for _, id := range ids {
		if _, err := c.store.GetAccount(ctx, id); err != nil {
			return nil, err
		}
	}

	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	unlock, err := c.locker.Lock(lockCtx, domain.LockOrder(ids...))
	cancel()
	if err != nil {
		return nil, err
	}

	txs, err := func() ([]*domain.Transaction, error) {
		defer unlock()

		accounts := make(map[int64]*domain.Account, len(ids))
		for _, id := range ids {
			acc, err := c.store.GetAccount(ctx, id)
			if err != nil {
				return nil, err
			}
			accounts[id] = acc
		}

		txs, err := fn(accounts)
		if err != nil || len(txs) == 0 {
			return nil, err
		}
		if err := c.store.Commit(ctx, txs); err != nil {
			logger.Log.Errorw("commit failed", "accounts", ids, "error", err)
			return nil, err
		}
		return txs, nil
	}()
	if err != nil {
		return nil, err
	}

	c.publish(ctx, txs)
	return txs, nil
}

// post 以帳戶的存提款規則更新副本並產生交易紀錄
func (c *CoreUseCase) post(
	acc *domain.Account,
	typ domain.TransactionType,
	amount decimal.Decimal,
	note, related string,
	at time.Time,
) (*domain.Transaction, error) {
	var err error
	switch typ {
	case domain.TransactionTypeDeposit:
		err = acc.Deposit(amount)
	case domain.TransactionTypeWithdraw:
		err = acc.Withdraw(amount)
	default:
		err = fmt.Errorf("unsupported transaction type %s", typ)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      acc.ID,
		Type:           typ,
		Amount:         amount,
		BalanceAfter:   acc.Balance,
		Note:           note,
		RelatedAccount: related,
		CreatedAt:      at,
	}, nil
}

func (c *CoreUseCase) publish(ctx context.Context, txs []*domain.Transaction) {
	if c.publisher == nil || len(txs) == 0 {
		return
	}
	events := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		events[i] = *tx
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublishTimeout)
	defer cancel()
	if err := c.publisher.Publish(pubCtx, events); err != nil {
		logger.Log.Warnw("publish ledger events failed", "count", len(events), "error", err)
	}
}

func (c *CoreUseCase) timestamp() time.Time {
	return c.now().UTC()
}
