package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Store MySQL 帳本
type Store struct {
	client *mysql.Client
}

func NewStore(client *mysql.Client) *Store {
	return &Store{client: client}
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

func unavailable(op string, err error) error {
	logger.Log.Errorw("mysql query failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, op, err)
}

// CreateAccount 在同一個資料庫交易中建立帳戶並寫入開戶交易，唯一索引衝突視為帳戶已存在
func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account, opening ...*domain.Transaction) error {
	row := toSQLAccount(acc)
	row.ID = 0
	rows := make([]sqlTransaction, len(opening))
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if len(opening) == 0 {
			return nil
		}
		for i, t := range opening {
			rows[i] = toSQLTransaction(t)
			rows[i].AccountID = row.ID
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: owner %s already has a %s account", domain.ErrAccountAlreadyExists, acc.OwnerID, acc.Kind)
		}
		return unavailable("create account", err)
	}

	acc.ID = row.ID
	for i, t := range opening {
		t.AccountID = row.ID
		t.Sequence = uint64(rows[i].ID)
	}
	return nil
}

func (s *Store) first(ctx context.Context, op string, query any, args ...any) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", domain.ErrAccountNotFound, args)
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	return row.toDomain(), nil
}

// GetAccount 以 ID 取得帳戶
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return s.first(ctx, "get account", "id = ?", id)
}

// GetAccountByNumber 以帳號取得帳戶
func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return s.first(ctx, "get account by number", "number = ?", number)
}

// ListAccounts 依 ID 排序，ownerID 為空時回傳全部
func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	q := s.client.DB().WithContext(ctx).Order("id")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []sqlAccount
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable("list accounts", err)
	}
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// Commit 在同一個資料庫交易中更新餘額並寫入交易紀錄
// 以 SELECT ... FOR UPDATE 依 ID 順序鎖住帳戶列，並確認餘額與交易的 BalanceBefore 相符
func (s *Store) Commit(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	ids := make([]int64, len(txs))
	for i, t := range txs {
		ids[i] = t.AccountID
	}
	lockIDs := domain.LockOrder(ids...)

	rows := make([]sqlTransaction, len(txs))
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var accounts []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", lockIDs).
			Order("id").
			Find(&accounts).Error; err != nil {
			return err
		}
		balances := make(map[int64]decimal.Decimal, len(accounts))
		for _, a := range accounts {
			balances[a.ID] = a.Balance
		}

		for _, t := range txs {
			current, ok := balances[t.AccountID]
			if !ok {
				return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, t.AccountID)
			}
			if !current.Equal(t.BalanceBefore()) {
				return fmt.Errorf("balance of account %d changed to %s", t.AccountID, current.StringFixed(domain.AmountScale))
			}
			balances[t.AccountID] = t.BalanceAfter
		}

		for _, id := range lockIDs {
			if err := tx.Model(&sqlAccount{}).Where("id = ?", id).Update("balance", balances[id]).Error; err != nil {
				return err
			}
		}

		for i, t := range txs {
			rows[i] = toSQLTransaction(t)
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return unavailable("commit", err)
	}

	for i, t := range txs {
		t.Sequence = uint64(rows[i].ID)
	}
	return nil
}

// Recent 最新的 limit 筆交易 (新到舊)
func (s *Store) Recent(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	var rows []sqlTransaction
	q := s.client.DB().WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable("recent transactions", err)
	}
	return toDomainTransactions(rows), nil
}

// Entries 帳戶全部交易 (舊到新)
func (s *Store) Entries(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	var rows []sqlTransaction
	if err := s.client.DB().WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, unavailable("transaction entries", err)
	}
	return toDomainTransactions(rows), nil
}

func toDomainTransactions(rows []sqlTransaction) []domain.Transaction {
	out := make([]domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}

var _ usecase.Store = (*Store)(nil)
