package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Transfer 轉帳：在同時持有兩個帳戶鎖 (依 ID 由小到大取得) 的情況下
// 先提款再存款，兩筆紀錄一次提交，任一步失敗則兩邊都不變
//
// 回傳:
//
//	withdrawal: 轉出帳戶的提款紀錄
//	deposit: 轉入帳戶的存款紀錄
func (c *CoreUseCase) Transfer(
	ctx context.Context,
	sourceID, targetID int64,
	amount decimal.Decimal,
	note string,
) (withdrawal, deposit *domain.Transaction, err error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, nil, err
	}
	if sourceID == targetID {
		return nil, nil, domain.ErrSameAccount
	}
	txs, err := c.withAccounts(ctx, []int64{sourceID, targetID}, func(accounts map[int64]*domain.Account) ([]*domain.Transaction, error) {
		src, dst := accounts[sourceID], accounts[targetID]
		at := c.timestamp()

		out, err := c.post(src, domain.TransactionTypeWithdraw, amount, transferNote("Transfer to ", dst.Number, note), dst.Number, at)
		if err != nil {
			return nil, err
		}
		in, err := c.post(dst, domain.TransactionTypeDeposit, amount, transferNote("Transfer from ", src.Number, note), src.Number, at)
		if err != nil {
			return nil, err
		}
		return []*domain.Transaction{out, in}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return txs[0], txs[1], nil
}

func transferNote(prefix, number, note string) string {
	if note == "" {
		return prefix + number
	}
	return prefix + number + ". " + note
}
