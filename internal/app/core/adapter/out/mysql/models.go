package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	OwnerID      string          `gorm:"column:owner_id;size:64;not null;uniqueIndex:idx_owner_kind"`
	Kind         string          `gorm:"size:16;not null;uniqueIndex:idx_owner_kind"`
	Number       string          `gorm:"size:14;not null;uniqueIndex"`
	Balance      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	InterestRate decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	CreatedAt    time.Time       `gorm:"type:datetime(6)"`
	UpdatedAt    time.Time       `gorm:"type:datetime(6)"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表，自增 ID 即寫入序號
type sqlTransaction struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	RefID          []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.Transaction.ID
	AccountID      int64           `gorm:"not null;index:idx_account_created,priority:1"`
	Type           uint8           `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Note           string          `gorm:"size:255"`
	RelatedAccount string          `gorm:"size:14"`
	CreatedAt      time.Time       `gorm:"type:datetime(6);index:idx_account_created,priority:2"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func toSQLAccount(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:           a.ID,
		OwnerID:      a.OwnerID,
		Kind:         string(a.Kind),
		Number:       a.Number,
		Balance:      a.Balance,
		InterestRate: a.InterestRate,
		CreatedAt:    a.CreatedAt,
	}
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           a.ID,
		OwnerID:      a.OwnerID,
		Number:       a.Number,
		Kind:         domain.AccountKind(a.Kind),
		Balance:      a.Balance,
		InterestRate: a.InterestRate,
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

func toSQLTransaction(t *domain.Transaction) sqlTransaction {
	ref := t.ID
	return sqlTransaction{
		RefID:          ref[:],
		AccountID:      t.AccountID,
		Type:           uint8(t.Type),
		Amount:         t.Amount,
		BalanceAfter:   t.BalanceAfter,
		Note:           t.Note,
		RelatedAccount: t.RelatedAccount,
		CreatedAt:      t.CreatedAt,
	}
}

func (t *sqlTransaction) toDomain() domain.Transaction {
	id, _ := uuid.FromBytes(t.RefID)
	return domain.Transaction{
		Sequence:       uint64(t.ID),
		ID:             id,
		AccountID:      t.AccountID,
		Type:           domain.TransactionType(t.Type),
		Amount:         t.Amount,
		BalanceAfter:   t.BalanceAfter,
		Note:           t.Note,
		RelatedAccount: t.RelatedAccount,
		CreatedAt:      t.CreatedAt.UTC(),
	}
}
