package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
)

// InterestResult 批次計息中單一帳戶的結果
type InterestResult struct {
	AccountID int64
	Number    string
	Amount    decimal.Decimal
	// Transaction: 利息入帳紀錄，利息為 0 時為 nil
	Transaction *domain.Transaction
	Err         error
}

// ApplyInterest 以目前餘額計息並入帳，回傳利息金額
// 非計息帳戶、利率為 0 或利息四捨五入後為 0 時不寫入任何紀錄；每次呼叫都會再計一次
func (c *CoreUseCase) ApplyInterest(ctx context.Context, accountID int64) (decimal.Decimal, *domain.Transaction, error) {
	interest := decimal.Zero
	txs, err := c.withAccounts(ctx, []int64{accountID}, func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error) {
		acc := accounts[accountID]
		interest = acc.Interest()
		if !interest.IsPositive() {
			return nil, nil
		}
		note := fmt.Sprintf("Applied interest at %s%%", domain.RatePercent(acc.InterestRate))
		tx, err := c.post(acc, domain.TransactionTypeDeposit, interest, note, "", c.timestamp())
		if err != nil {
			return nil, err
		}
		return []*domain.Transaction{tx}, nil
	})
	if err != nil {
		return decimal.Zero, nil, err
	}
	if len(txs) == 0 {
		return decimal.Zero, nil, nil
	}
	return interest, txs[0], nil
}

// ApplyAll 對所有計息帳戶執行 ApplyInterest
// 以固定數量的 worker 併發處理，單一帳戶失敗只記錄在該帳戶的結果中
func (c *CoreUseCase) ApplyAll(ctx context.Context) ([]InterestResult, error) {
	accounts, err := c.store.ListAccounts(ctx, "")
	if err != nil {
		return nil, err
	}

	targets := make([]*domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Kind.InterestBearing() {
			targets = append(targets, acc)
		}
	}

	results := make([]InterestResult, len(targets))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(c.interestWorkers, len(targets))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				acc := targets[i]
				amount, tx, err := c.ApplyInterest(ctx, acc.ID)
				if err != nil {
					logger.Log.Warnw("apply interest failed", "account", acc.Number, "error", err)
				}
				results[i] = InterestResult{AccountID: acc.ID, Number: acc.Number, Amount: amount, Transaction: tx, Err: err}
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	logger.Log.Infow("interest batch finished", "accounts", len(targets))
	return results, nil
}
