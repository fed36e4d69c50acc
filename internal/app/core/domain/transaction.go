package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "DEPOSIT"
	case TransactionTypeWithdraw:
		return "WITHDRAW"
	default:
		return fmt.Sprintf("TransactionType(%d)", uint8(t))
	}
}

// ParseTransactionType 由字串還原交易類型
func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case "DEPOSIT":
		return TransactionTypeDeposit, nil
	case "WITHDRAW":
		return TransactionTypeWithdraw, nil
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// Transaction 帳戶交易紀錄，寫入後不可變更
type Transaction struct {
	// Sequence: 儲存層分配的寫入順序號，時間相同時以此排序
	Sequence uint64
	// ID: 外部追蹤號 (UUID)
	ID        uuid.UUID
	AccountID int64
	Type      TransactionType
	// Amount: 金額，永遠 > 0
	Amount decimal.Decimal
	// BalanceAfter: 套用後的帳戶餘額
	BalanceAfter decimal.Decimal
	Note         string
	// RelatedAccount: 轉帳對方的帳號，非轉帳為空
	RelatedAccount string
	CreatedAt      time.Time
}

// Signed 回傳帶正負號的金額 (存款為正、提款為負)
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeWithdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}

// BalanceBefore 回推套用前的餘額
func (t *Transaction) BalanceBefore() decimal.Decimal {
	return t.BalanceAfter.Sub(t.Signed())
}

// LockOrder 回傳需要鎖定的帳號 ID (去重、由小到大)，所有鎖都依此順序取得以避免死鎖
func LockOrder(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		dup := false
		for _, seen := range out {
			if seen == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortNewestFirst 依時間新到舊排序，時間相同時以 Sequence 大者在前
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].Sequence > txs[j].Sequence
	})
}
