package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return at }
}

// flakyStore 可切換寫入失敗的 Store
type flakyStore struct {
	*memory.Store
	mu   sync.Mutex
	fail bool
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyStore) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *flakyStore) CreateAccount(ctx context.Context, acc *domain.Account, opening ...*domain.Transaction) error {
	if f.failing() {
		return domain.ErrStorageUnavailable
	}
	return f.Store.CreateAccount(ctx, acc, opening...)
}

func (f *flakyStore) Commit(ctx context.Context, txs []*domain.Transaction) error {
	if f.failing() {
		return domain.ErrStorageUnavailable
	}
	return f.Store.Commit(ctx, txs)
}

// tamperedStore 遺失最後一筆交易紀錄的 Store
type tamperedStore struct {
	*memory.Store
}

func (t tamperedStore) Entries(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	entries, err := t.Store.Entries(ctx, accountID)
	if len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}
	return entries, err
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.NewStore(nil)
	require.NoError(t, err)
	return s
}

func open(t *testing.T, c *usecase.CoreUseCase, owner, kind, initial string) *domain.Account {
	t.Helper()
	acc, err := c.OpenAccount(context.Background(), usecase.OpenAccountInput{
		OwnerID:        owner,
		Kind:           kind,
		InitialDeposit: dec(initial),
	})
	require.NoError(t, err)
	return acc
}

func balance(t *testing.T, c *usecase.CoreUseCase, id int64) string {
	t.Helper()
	b, err := c.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker())

	acc := open(t, c, "alice", "savings", "100.00")
	assert.Equal(t, domain.AccountKindSavings, acc.Kind)
	assert.Equal(t, "100.00", acc.Balance.StringFixed(2))
	assert.Equal(t, "0.0400", acc.InterestRate.StringFixed(4))

	history, err := c.History(ctx, acc.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Initial deposit", history[0].Note)

	empty := open(t, c, "alice", "Salary", "0")
	assert.True(t, empty.Balance.IsZero())
	history, _ = c.History(ctx, empty.ID, 0)
	assert.Empty(t, history)

	rate := dec("0.0125")
	custom, err := c.OpenAccount(ctx, usecase.OpenAccountInput{OwnerID: "bob", Kind: "Savings", Rate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "0.0125", custom.InterestRate.StringFixed(4))

	got, err := c.GetAccountByNumber(ctx, custom.Number)
	require.NoError(t, err)
	assert.Equal(t, custom.ID, got.ID)

	list, err := c.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOpenAccount_Errors(t *testing.T) {
	ctx := context.Background()
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker())
	open(t, c, "alice", "Savings", "0")

	rate := dec("0.01")
	tooPrecise := dec("0.00001")
	tests := []struct {
		name string
		in   usecase.OpenAccountInput
		want error
	}{
		{"empty owner", usecase.OpenAccountInput{OwnerID: " ", Kind: "Savings"}, domain.ErrInvalidOwner},
		{"unknown kind", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Crypto"}, domain.ErrInvalidAccountKind},
		{"negative deposit", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Savings", InitialDeposit: dec("-1")}, domain.ErrInvalidAmount},
		{"fractional cents", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Savings", InitialDeposit: dec("1.005")}, domain.ErrInvalidAmount},
		{"deposit above column limit", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Savings", InitialDeposit: dec("10000000000000.00")}, domain.ErrInvalidAmount},
		{"salary with rate", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Salary", Rate: &rate}, domain.ErrInvalidRate},
		{"rate precision", usecase.OpenAccountInput{OwnerID: "bob", Kind: "Savings", Rate: &tooPrecise}, domain.ErrInvalidRate},
		{"second savings", usecase.OpenAccountInput{OwnerID: "alice", Kind: "Savings"}, domain.ErrAccountAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.OpenAccount(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAccount_FailedOpeningCanBeRetried(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: newStore(t)}
	c := usecase.NewCoreUseCase(store, memory.NewLocker())
	in := usecase.OpenAccountInput{OwnerID: "alice", Kind: "Savings", InitialDeposit: dec("250.00")}

	store.setFail(true)
	_, err := c.OpenAccount(ctx, in)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	store.setFail(false)

	list, err := c.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	acc, err := c.OpenAccount(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "250.00", balance(t, c, acc.ID))

	history, err := c.History(ctx, acc.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, acc.ID, history[0].AccountID)
	assert.NotZero(t, history[0].Sequence)

	report, err := c.Audit(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)
}

func TestDepositWithdrawScenario(t *testing.T) {
	ctx := context.Background()
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker(), usecase.WithClock(fixedClock()))
	acc := open(t, c, "alice", "Savings", "1000.00")

	w, err := c.Withdraw(ctx, acc.ID, dec("200.00"), "rent")
	require.NoError(t, err)
	assert.Equal(t, "800.00", w.BalanceAfter.StringFixed(2))

	dp, err := c.Deposit(ctx, acc.ID, dec("50.00"), "refund")
	require.NoError(t, err)
	assert.Equal(t, "850.00", dp.BalanceAfter.StringFixed(2))
	assert.Equal(t, "850.00", balance(t, c, acc.ID))

	history, err := c.History(ctx, acc.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "refund", history[0].Note)
	assert.Equal(t, domain.TransactionTypeWithdraw, history[1].Type)
	assert.Equal(t, "Initial deposit", history[2].Note)

	// 可重複查詢
	again, err := c.History(ctx, acc.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, history, again)
}

func TestDepositWithdraw_Errors(t *testing.T) {
	ctx := context.Background()
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker())
	acc := open(t, c, "alice", "Savings", "100.00")

	_, err := c.Deposit(ctx, acc.ID, dec("0"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = c.Deposit(ctx, acc.ID, dec("-5"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = c.Withdraw(ctx, acc.ID, dec("-5"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = c.Withdraw(ctx, acc.ID, dec("100.01"), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = c.Deposit(ctx, 999, dec("1"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = c.CurrentBalance(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = c.History(ctx, 999, 0)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	assert.Equal(t, "100.00", balance(t, c, acc.ID))
	history, _ := c.History(ctx, acc.ID, 0)
	assert.Len(t, history, 1)

	// 全額提領後餘額為 0
	_, err = c.Withdraw(ctx, acc.ID, dec("100.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance(t, c, acc.ID))
}

func TestHistory_Limit(t *testing.T) {
	ctx := context.Background()
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker(), usecase.WithHistoryLimit(2))
	acc := open(t, c, "alice", "Checking", "1.00")
	for i := 0; i < 4; i++ {
		_, err := c.Deposit(ctx, acc.ID, dec("1.00"), "")
		require.NoError(t, err)
	}

	history, err := c.History(ctx, acc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "5.00", history[0].BalanceAfter.StringFixed(2))

	history, _ = c.History(ctx, acc.ID, 3)
	assert.Len(t, history, 3)
	history, _ = c.History(ctx, acc.ID, 50)
	assert.Len(t, history, 5)
}

func TestStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: newStore(t)}
	c := usecase.NewCoreUseCase(store, memory.NewLocker())
	a := open(t, c, "alice", "Savings", "100.00")
	b := open(t, c, "bob", "Savings", "100.00")

	store.setFail(true)
	_, err := c.Deposit(ctx, a.ID, dec("10.00"), "")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, _, err = c.Transfer(ctx, a.ID, b.ID, dec("10.00"), "")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, _, err = c.ApplyInterest(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	store.setFail(false)

	assert.Equal(t, "100.00", balance(t, c, a.ID))
	assert.Equal(t, "100.00", balance(t, c, b.ID))
	history, _ := c.History(ctx, a.ID, 0)
	assert.Len(t, history, 1)

	// 鎖已釋放，後續操作正常
	_, err = c.Deposit(ctx, a.ID, dec("10.00"), "")
	require.NoError(t, err)
}

func TestLockTimeout(t *testing.T) {
	ctx := context.Background()
	locker := memory.NewLocker()
	c := usecase.NewCoreUseCase(newStore(t), locker, usecase.WithLockTimeout(20*time.Millisecond))
	a := open(t, c, "alice", "Savings", "100.00")
	b := open(t, c, "bob", "Savings", "100.00")

	unlock, err := locker.Lock(ctx, []int64{b.ID})
	require.NoError(t, err)

	_, err = c.Deposit(ctx, b.ID, dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	_, _, err = c.Transfer(ctx, a.ID, b.ID, dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	// 帳戶 a 不受影響
	_, err = c.Deposit(ctx, a.ID, dec("1.00"), "")
	require.NoError(t, err)

	unlock()
	_, err = c.Deposit(ctx, b.ID, dec("1.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "101.00", balance(t, c, b.ID))
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	c := usecase.NewCoreUseCase(store, memory.NewLocker())
	a := open(t, c, "alice", "Savings", "100.00")
	_, err := c.Withdraw(ctx, a.ID, dec("30.50"), "")
	require.NoError(t, err)

	report, err := c.Audit(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, "69.50", report.Sum.StringFixed(2))
	assert.True(t, report.Sum.Equal(report.Balance))

	broken := usecase.NewCoreUseCase(tamperedStore{Store: store}, memory.NewLocker())
	_, err = broken.Audit(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrLedgerMismatch)

	_, err = c.Audit(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pub := usecase.NewMockEventPublisher(ctrl)
	c := usecase.NewCoreUseCase(newStore(t), memory.NewLocker(), usecase.WithPublisher(pub))

	pub.EXPECT().Publish(gomock.Any(), gomock.Len(1)).Return(nil).Times(2)
	a := open(t, c, "alice", "Savings", "100.00")
	b := open(t, c, "bob", "Savings", "100.00")

	pub.EXPECT().Publish(gomock.Any(), gomock.Len(2)).DoAndReturn(
		func(_ context.Context, txs []domain.Transaction) error {
			assert.Equal(t, a.ID, txs[0].AccountID)
			assert.Equal(t, b.ID, txs[1].AccountID)
			assert.NotZero(t, txs[0].Sequence)
			return errors.New("broker down")
		})

	// 發佈失敗不影響已提交的轉帳
	_, _, err := c.Transfer(ctx, a.ID, b.ID, dec("25.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "75.00", balance(t, c, a.ID))

	// 失敗的操作不發佈
	_, err = c.Withdraw(ctx, a.ID, dec("1000.00"), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestMissingAccountSkipsLocking(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	// 沒有設定任何 Lock 期望，取鎖就會讓測試失敗
	locker := usecase.NewMockLocker(ctrl)
	c := usecase.NewCoreUseCase(newStore(t), locker)
	ctx := context.Background()

	_, err := c.Deposit(ctx, 404, dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = c.Withdraw(ctx, 404, dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, _, err = c.ApplyInterest(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = c.Audit(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, _, err = c.Transfer(ctx, 404, 405, dec("1.00"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
