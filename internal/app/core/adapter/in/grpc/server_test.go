package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	grpcpkg "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(store, memory.NewLocker())

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor))
	RegisterLedgerServiceServer(s, NewGrpcServer(core))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(grpcpkg.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestGrpc_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)

	a, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "alice", Kind: "Savings", InitialDeposit: "2000.00"})
	require.NoError(t, err)
	assert.Equal(t, "2000.00", a.Account.Balance)
	assert.Equal(t, "0.0400", a.Account.InterestRate)

	b, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "bob", Kind: "Salary"})
	require.NoError(t, err)
	assert.Equal(t, "0.00", b.Account.Balance)

	got, err := c.GetAccount(ctx, &GetAccountRequest{Number: b.Account.Number})
	require.NoError(t, err)
	assert.Equal(t, b.Account.ID, got.Account.ID)

	w, err := c.Withdraw(ctx, &AmountRequest{AccountID: a.Account.ID, Amount: "200", Note: "rent"})
	require.NoError(t, err)
	assert.Equal(t, "WITHDRAW", w.Transaction.Type)
	assert.Equal(t, "1800.00", w.Transaction.BalanceAfter)

	_, err = c.Deposit(ctx, &AmountRequest{AccountID: b.Account.ID, Amount: "50.00"})
	require.NoError(t, err)

	tr, err := c.Transfer(ctx, &TransferRequest{SourceID: a.Account.ID, TargetID: b.Account.ID, Amount: "100.00", Note: "gift"})
	require.NoError(t, err)
	assert.Equal(t, "Transfer to "+b.Account.Number+". gift", tr.Withdrawal.Note)
	assert.Equal(t, "150.00", tr.Deposit.BalanceAfter)

	bal, err := c.GetBalance(ctx, &AccountRequest{AccountID: a.Account.ID})
	require.NoError(t, err)
	assert.Equal(t, "1700.00", bal.Balance)

	hist, err := c.GetHistory(ctx, &HistoryRequest{AccountID: a.Account.ID})
	require.NoError(t, err)
	require.Len(t, hist.Transactions, 3)
	assert.Equal(t, b.Account.Number, hist.Transactions[0].RelatedAccount)

	interest, err := c.ApplyInterest(ctx, &AccountRequest{AccountID: a.Account.ID})
	require.NoError(t, err)
	assert.Equal(t, "68.00", interest.Amount)
	require.NotNil(t, interest.Transaction)
	assert.Equal(t, "Applied interest at 4.00%", interest.Transaction.Note)

	none, err := c.ApplyInterest(ctx, &AccountRequest{AccountID: b.Account.ID})
	require.NoError(t, err)
	assert.Equal(t, "0.00", none.Amount)
	assert.Nil(t, none.Transaction)

	all, err := c.ApplyInterestAll(ctx, &ApplyInterestAllRequest{})
	require.NoError(t, err)
	require.Len(t, all.Results, 1)
	assert.Equal(t, "70.72", all.Results[0].Amount)

	audit, err := c.Audit(ctx, &AccountRequest{AccountID: a.Account.ID})
	require.NoError(t, err)
	assert.Equal(t, audit.Balance, audit.Sum)
	assert.Equal(t, 5, audit.Entries)

	list, err := c.ListAccounts(ctx, &ListAccountsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Accounts, 2)
}

func TestGrpc_Errors(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)
	a, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "alice", Kind: "Savings", InitialDeposit: "10"})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code codes.Code
		want error
	}{
		{"bad amount text", func() error {
			_, err := c.Deposit(ctx, &AmountRequest{AccountID: a.Account.ID, Amount: "ten"})
			return err
		}, codes.InvalidArgument, domain.ErrInvalidAmount},
		{"insufficient", func() error {
			_, err := c.Withdraw(ctx, &AmountRequest{AccountID: a.Account.ID, Amount: "10.01"})
			return err
		}, codes.FailedPrecondition, domain.ErrInsufficientFunds},
		{"not found", func() error {
			_, err := c.GetBalance(ctx, &AccountRequest{AccountID: 404})
			return err
		}, codes.NotFound, domain.ErrAccountNotFound},
		{"same account", func() error {
			_, err := c.Transfer(ctx, &TransferRequest{SourceID: a.Account.ID, TargetID: a.Account.ID, Amount: "1"})
			return err
		}, codes.InvalidArgument, domain.ErrSameAccount},
		{"duplicate kind", func() error {
			_, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "alice", Kind: "Savings"})
			return err
		}, codes.AlreadyExists, domain.ErrAccountAlreadyExists},
		{"kind text that looks like another error", func() error {
			_, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "bob", Kind: "invalid amount"})
			return err
		}, codes.InvalidArgument, domain.ErrInvalidAccountKind},
		{"bad rate", func() error {
			_, err := c.OpenAccount(ctx, &OpenAccountRequest{OwnerID: "bob", Kind: "Savings", InterestRate: "abc"})
			return err
		}, codes.InvalidArgument, domain.ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
			assert.ErrorIs(t, err, tt.want)
			for _, other := range errorCodes {
				if other.err != tt.want {
					assert.NotErrorIs(t, err, other.err)
				}
			}
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.Nil(t, toStatus(nil))
	assert.Equal(t, codes.Aborted, status.Code(toStatus(domain.ErrLockTimeout)))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(domain.ErrStorageUnavailable)))
	assert.Equal(t, codes.DataLoss, status.Code(toStatus(domain.ErrLedgerMismatch)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(errors.New("boom"))))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))

	err := FromStatus(toStatus(fmt.Errorf("%w: account 3", domain.ErrLockTimeout)))
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, codes.Aborted, status.Code(err))

	// 沒有 ErrorInfo 的 status 不會只憑訊息被還原
	err = FromStatus(status.Error(codes.Aborted, "lock timeout: account 3"))
	assert.NotErrorIs(t, err, domain.ErrLockTimeout)
}

func TestLoggingInterceptor_RecoversPanic(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod("Deposit")}
	counter := requestsTotal.WithLabelValues(info.FullMethod, codes.Internal.String())
	before := testutil.ToFloat64(counter)

	_, err := LoggingInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
