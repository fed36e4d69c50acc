package grpc

import (
	"context"

	"google.golang.org/grpc"

	grpcpkg "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

// Client 帳務服務的 gRPC 客戶端，錯誤會經過 FromStatus 還原成帳務錯誤
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcpkg.CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *Client) OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[OpenAccountRequest, AccountResponse](ctx, c, "OpenAccount", in, opts...)
}

func (c *Client) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[GetAccountRequest, AccountResponse](ctx, c, "GetAccount", in, opts...)
}

func (c *Client) ListAccounts(ctx context.Context, in *ListAccountsRequest, opts ...grpc.CallOption) (*ListAccountsResponse, error) {
	return invoke[ListAccountsRequest, ListAccountsResponse](ctx, c, "ListAccounts", in, opts...)
}

func (c *Client) Deposit(ctx context.Context, in *AmountRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[AmountRequest, TransactionResponse](ctx, c, "Deposit", in, opts...)
}

func (c *Client) Withdraw(ctx context.Context, in *AmountRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[AmountRequest, TransactionResponse](ctx, c, "Withdraw", in, opts...)
}

func (c *Client) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferRequest, TransferResponse](ctx, c, "Transfer", in, opts...)
}

func (c *Client) GetBalance(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[AccountRequest, BalanceResponse](ctx, c, "GetBalance", in, opts...)
}

func (c *Client) GetHistory(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryRequest, HistoryResponse](ctx, c, "GetHistory", in, opts...)
}

func (c *Client) ApplyInterest(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*InterestResponse, error) {
	return invoke[AccountRequest, InterestResponse](ctx, c, "ApplyInterest", in, opts...)
}

func (c *Client) ApplyInterestAll(ctx context.Context, in *ApplyInterestAllRequest, opts ...grpc.CallOption) (*ApplyInterestAllResponse, error) {
	return invoke[ApplyInterestAllRequest, ApplyInterestAllResponse](ctx, c, "ApplyInterestAll", in, opts...)
}

func (c *Client) Audit(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AuditResponse, error) {
	return invoke[AccountRequest, AuditResponse](ctx, c, "Audit", in, opts...)
}
