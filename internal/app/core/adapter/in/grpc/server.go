package grpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// GrpcServer 帳務服務的 gRPC 入口，只負責轉換訊息與錯誤，業務規則都在 usecase
// 擁有者身分由呼叫端 (驗證服務) 提供，這裡不做驗證
type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// parseAmount 解析十進位字串，格式錯誤視為無效金額
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return d, nil
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*AccountResponse, error) {
	in := usecase.OpenAccountInput{OwnerID: req.OwnerID, Kind: req.Kind, InitialDeposit: decimal.Zero}
	if req.InitialDeposit != "" {
		amount, err := parseAmount(req.InitialDeposit)
		if err != nil {
			return nil, toStatus(err)
		}
		in.InitialDeposit = amount
	}
	if req.InterestRate != "" {
		rate, err := decimal.NewFromString(req.InterestRate)
		if err != nil {
			return nil, toStatus(fmt.Errorf("%w: %q", domain.ErrInvalidRate, req.InterestRate))
		}
		in.Rate = &rate
	}

	acc, err := s.core.OpenAccount(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *GetAccountRequest) (*AccountResponse, error) {
	var (
		acc *domain.Account
		err error
	)
	if req.Number != "" {
		acc, err = s.core.GetAccountByNumber(ctx, req.Number)
	} else {
		acc, err = s.core.GetAccount(ctx, req.AccountID)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &AccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) ListAccounts(ctx context.Context, req *ListAccountsRequest) (*ListAccountsResponse, error) {
	accounts, err := s.core.ListAccounts(ctx, req.OwnerID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListAccountsResponse{Accounts: make([]Account, len(accounts))}
	for i, acc := range accounts {
		resp.Accounts[i] = toAccount(acc)
	}
	return resp, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	tx, err := s.core.Deposit(ctx, req.AccountID, amount, req.Note)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransactionResponse{Transaction: toTransaction(tx)}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	tx, err := s.core.Withdraw(ctx, req.AccountID, amount, req.Note)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransactionResponse{Transaction: toTransaction(tx)}, nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	out, in, err := s.core.Transfer(ctx, req.SourceID, req.TargetID, amount, req.Note)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{Withdrawal: toTransaction(out), Deposit: toTransaction(in)}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *AccountRequest) (*BalanceResponse, error) {
	balance, err := s.core.CurrentBalance(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BalanceResponse{AccountID: req.AccountID, Balance: amountString(balance)}, nil
}

func (s *GrpcServer) GetHistory(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	txs, err := s.core.History(ctx, req.AccountID, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &HistoryResponse{Transactions: make([]Transaction, len(txs))}
	for i := range txs {
		resp.Transactions[i] = toTransaction(&txs[i])
	}
	return resp, nil
}

func (s *GrpcServer) ApplyInterest(ctx context.Context, req *AccountRequest) (*InterestResponse, error) {
	amount, tx, err := s.core.ApplyInterest(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &InterestResponse{AccountID: req.AccountID, Amount: amountString(amount)}
	if tx != nil {
		t := toTransaction(tx)
		resp.Transaction = &t
	}
	return resp, nil
}

func (s *GrpcServer) ApplyInterestAll(ctx context.Context, _ *ApplyInterestAllRequest) (*ApplyInterestAllResponse, error) {
	results, err := s.core.ApplyAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ApplyInterestAllResponse{Results: make([]InterestResult, len(results))}
	for i, r := range results {
		resp.Results[i] = toInterestResult(r)
	}
	return resp, nil
}

func (s *GrpcServer) Audit(ctx context.Context, req *AccountRequest) (*AuditResponse, error) {
	report, err := s.core.Audit(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AuditResponse{
		AccountID: report.AccountID,
		Balance:   amountString(report.Balance),
		Sum:       amountString(report.Sum),
		Entries:   report.Entries,
	}, nil
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
