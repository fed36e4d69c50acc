package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const initialDepositNote = "Initial deposit"

// OpenAccountInput 開戶參數
type OpenAccountInput struct {
	OwnerID string
	Kind    string
	// InitialDeposit: 開戶金額，可為 0
	InitialDeposit decimal.Decimal
	// Rate: 指定利率，nil 時使用帳戶類型的預設值
	Rate *decimal.Decimal
}

// AuditReport 單一帳戶的對帳結果
type AuditReport struct {
	AccountID int64
	Balance   decimal.Decimal
	Sum       decimal.Decimal
	Entries   int
}

// OpenAccount 開戶
// 開戶金額 > 0 時以一筆 "Initial deposit" 存款入帳，帳戶與這筆存款一起寫入儲存層，
// 任一失敗時帳戶不存在，可以直接重試
func (c *CoreUseCase) OpenAccount(ctx context.Context, in OpenAccountInput) (*domain.Account, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		return nil, domain.ErrInvalidOwner
	}
	kind, err := domain.ParseAccountKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if in.InitialDeposit.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if in.InitialDeposit.IsPositive() {
		if err := domain.ValidateAmount(in.InitialDeposit); err != nil {
			return nil, err
		}
	}

	policy, _ := kind.Policy()
	rate := policy.DefaultRate
	if in.Rate != nil {
		rate = *in.Rate
	}
	if err := domain.ValidateRate(rate); err != nil {
		return nil, err
	}
	if !policy.InterestBearing && !rate.IsZero() {
		return nil, fmt.Errorf("%w: %s accounts do not earn interest", domain.ErrInvalidRate, kind)
	}

	acc := &domain.Account{
		OwnerID:      owner,
		Number:       domain.NewAccountNumber(),
		Kind:         kind,
		Balance:      decimal.Zero,
		InterestRate: rate,
		CreatedAt:    c.timestamp(),
	}
	var opening []*domain.Transaction
	if in.InitialDeposit.IsPositive() {
		tx, err := c.post(acc, domain.TransactionTypeDeposit, in.InitialDeposit, initialDepositNote, "", acc.CreatedAt)
		if err != nil {
			return nil, err
		}
		opening = append(opening, tx)
	}
	if err := c.store.CreateAccount(ctx, acc, opening...); err != nil {
		return nil, err
	}

	c.publish(ctx, opening)
	return acc, nil
}

// GetAccount 以 ID 取得帳戶
func (c *CoreUseCase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return c.store.GetAccount(ctx, id)
}

// GetAccountByNumber 以帳號取得帳戶
func (c *CoreUseCase) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return c.store.GetAccountByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

// ListAccounts 取得擁有者的帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	return c.store.ListAccounts(ctx, strings.TrimSpace(ownerID))
}

// Deposit 存款
func (c *CoreUseCase) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	txs, err := c.withAccounts(ctx, []int64{accountID}, func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error) {
		tx, err := c.post(accounts[accountID], domain.TransactionTypeDeposit, amount, note, "", c.timestamp())
		if err != nil {
			return nil, err
		}
		return []*domain.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}
	return txs[0], nil
}

// Withdraw 提款，餘額檢查與扣款在同一把鎖內完成
func (c *CoreUseCase) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	txs, err := c.withAccounts(ctx, []int64{accountID}, func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error) {
		tx, err := c.post(accounts[accountID], domain.TransactionTypeWithdraw, amount, note, "", c.timestamp())
		if err != nil {
			return nil, err
		}
		return []*domain.Transaction{tx}, nil
	})
	if err != nil {
		return nil, err
	}
	return txs[0], nil
}

// CurrentBalance 取得目前餘額 (只讀)
func (c *CoreUseCase) CurrentBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	acc, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// History 最近的交易紀錄 (新到舊)，limit <= 0 時使用預設筆數
func (c *CoreUseCase) History(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	if _, err := c.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.historyLimit
	}
	return c.store.Recent(ctx, accountID, limit)
}

// Audit 在帳戶鎖內重新加總全部交易，檢查與餘額及每筆 BalanceAfter 是否一致
func (c *CoreUseCase) Audit(ctx context.Context, accountID int64) (*AuditReport, error) {
	var report *AuditReport
	_, err := c.withAccounts(ctx, []int64{accountID}, func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error) {
		acc := accounts[accountID]
		entries, err := c.store.Entries(ctx, accountID)
		if err != nil {
			return nil, err
		}

		sum := decimal.Zero
		for i := range entries {
			sum = sum.Add(entries[i].Signed())
			if !sum.Equal(entries[i].BalanceAfter) {
				return nil, fmt.Errorf("%w: account %d entry %d balance after %s, running sum %s",
					domain.ErrLedgerMismatch, accountID, entries[i].Sequence,
					entries[i].BalanceAfter.StringFixed(domain.AmountScale), sum.StringFixed(domain.AmountScale))
			}
		}
		if !sum.Equal(acc.Balance) {
			return nil, fmt.Errorf("%w: account %d balance %s, history sum %s",
				domain.ErrLedgerMismatch, accountID,
				acc.Balance.StringFixed(domain.AmountScale), sum.StringFixed(domain.AmountScale))
		}

		report = &AuditReport{AccountID: accountID, Balance: acc.Balance, Sum: sum, Entries: len(entries)}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
