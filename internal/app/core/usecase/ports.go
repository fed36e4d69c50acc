package usecase

import (
	"context"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Store 帳務儲存層介面
type Store interface {
	// CreateAccount 建立帳戶並分配 ID；同一擁有者同一類型只能有一個帳戶
	// opening 為開戶時的交易 (例如開戶存款)，與帳戶一起原子性寫入：
	// acc.Balance 須等於最後一筆的 BalanceAfter，成功時回填 AccountID 與 Sequence，失敗時帳戶與交易都不存在
	CreateAccount(ctx context.Context, acc *domain.Account, opening ...*domain.Transaction) error
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	// ListAccounts 取得擁有者的所有帳戶，ownerID 為空時回傳全部
	ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error)

	// Commit 原子性地寫入一組交易：每個帳戶餘額設為該筆 BalanceAfter 並追加紀錄
	// 成功時回填 Sequence；失敗時全部不生效並回傳 ErrStorageUnavailable
	Commit(ctx context.Context, txs []*domain.Transaction) error

	// Recent 最新的 limit 筆交易 (新到舊)
	Recent(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error)
	// Entries 帳戶全部交易 (舊到新)
	Entries(ctx context.Context, accountID int64) ([]domain.Transaction, error)
}

// Locker 帳戶鎖
type Locker interface {
	// Lock 依 domain.LockOrder 順序取得所有帳戶鎖
	// ctx 截止前未取得時回傳 ErrLockTimeout，並釋放已取得的鎖
	Lock(ctx context.Context, ids []int64) (unlock func(), err error)
}

//go:generate mockgen -destination=mock_ports.go -package=usecase -self_package=github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase EventPublisher

// EventPublisher 交易提交後的通知 (盡力而為，失敗不影響已提交的交易)
type EventPublisher interface {
	Publish(ctx context.Context, txs []domain.Transaction) error
}
