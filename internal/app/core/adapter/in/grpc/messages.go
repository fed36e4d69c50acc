package grpc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// 金額與利率一律以十進位字串傳輸，避免浮點誤差

type Account struct {
	ID           int64     `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Number       string    `json:"number"`
	Kind         string    `json:"kind"`
	Balance      string    `json:"balance"`
	InterestRate string    `json:"interest_rate"`
	CreatedAt    time.Time `json:"created_at"`
}

type Transaction struct {
	ID             string    `json:"id"`
	Sequence       uint64    `json:"sequence"`
	AccountID      int64     `json:"account_id"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	BalanceAfter   string    `json:"balance_after"`
	Note           string    `json:"note,omitempty"`
	RelatedAccount string    `json:"related_account,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type OpenAccountRequest struct {
	OwnerID        string `json:"owner_id"`
	Kind           string `json:"kind"`
	InitialDeposit string `json:"initial_deposit,omitempty"`
	// InterestRate: 空字串代表使用帳戶類型的預設利率
	InterestRate string `json:"interest_rate,omitempty"`
}

type AccountResponse struct {
	Account Account `json:"account"`
}

// GetAccountRequest 以 ID 或帳號查詢，帳號優先
type GetAccountRequest struct {
	AccountID int64  `json:"account_id,omitempty"`
	Number    string `json:"number,omitempty"`
}

type ListAccountsRequest struct {
	OwnerID string `json:"owner_id"`
}

type ListAccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type AmountRequest struct {
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
}

type TransactionResponse struct {
	Transaction Transaction `json:"transaction"`
}

type TransferRequest struct {
	SourceID int64  `json:"source_id"`
	TargetID int64  `json:"target_id"`
	Amount   string `json:"amount"`
	Note     string `json:"note,omitempty"`
}

type TransferResponse struct {
	Withdrawal Transaction `json:"withdrawal"`
	Deposit    Transaction `json:"deposit"`
}

type AccountRequest struct {
	AccountID int64 `json:"account_id"`
}

type BalanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

type HistoryRequest struct {
	AccountID int64 `json:"account_id"`
	// Limit: <= 0 時使用預設筆數
	Limit int `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type InterestResponse struct {
	AccountID   int64        `json:"account_id"`
	Amount      string       `json:"amount"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type ApplyInterestAllRequest struct{}

type InterestResult struct {
	AccountID int64  `json:"account_id"`
	Number    string `json:"number"`
	Amount    string `json:"amount"`
	Error     string `json:"error,omitempty"`
}

type ApplyInterestAllResponse struct {
	Results []InterestResult `json:"results"`
}

type AuditResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
	Sum       string `json:"sum"`
	Entries   int    `json:"entries"`
}

func amountString(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

func toAccount(a *domain.Account) Account {
	return Account{
		ID:           a.ID,
		OwnerID:      a.OwnerID,
		Number:       a.Number,
		Kind:         string(a.Kind),
		Balance:      amountString(a.Balance),
		InterestRate: a.InterestRate.StringFixed(domain.RateScale),
		CreatedAt:    a.CreatedAt,
	}
}

func toTransaction(t *domain.Transaction) Transaction {
	return Transaction{
		ID:             t.ID.String(),
		Sequence:       t.Sequence,
		AccountID:      t.AccountID,
		Type:           t.Type.String(),
		Amount:         amountString(t.Amount),
		BalanceAfter:   amountString(t.BalanceAfter),
		Note:           t.Note,
		RelatedAccount: t.RelatedAccount,
		CreatedAt:      t.CreatedAt,
	}
}

func toInterestResult(r usecase.InterestResult) InterestResult {
	out := InterestResult{AccountID: r.AccountID, Number: r.Number, Amount: amountString(r.Amount)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}
