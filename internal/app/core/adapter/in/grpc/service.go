package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "ledger.LedgerService"

// LedgerServiceServer 帳務 gRPC 服務
type LedgerServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*AccountResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*AccountResponse, error)
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
	Deposit(context.Context, *AmountRequest) (*TransactionResponse, error)
	Withdraw(context.Context, *AmountRequest) (*TransactionResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetBalance(context.Context, *AccountRequest) (*BalanceResponse, error)
	GetHistory(context.Context, *HistoryRequest) (*HistoryResponse, error)
	ApplyInterest(context.Context, *AccountRequest) (*InterestResponse, error)
	ApplyInterestAll(context.Context, *ApplyInterestAllRequest) (*ApplyInterestAllResponse, error)
	Audit(context.Context, *AccountRequest) (*AuditResponse, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary 產生單一方法的 grpc.MethodHandler
func unary[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(LedgerServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc 手寫的服務描述，訊息以 JSON codec 傳輸
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenAccount", LedgerServiceServer.OpenAccount),
		unary("GetAccount", LedgerServiceServer.GetAccount),
		unary("ListAccounts", LedgerServiceServer.ListAccounts),
		unary("Deposit", LedgerServiceServer.Deposit),
		unary("Withdraw", LedgerServiceServer.Withdraw),
		unary("Transfer", LedgerServiceServer.Transfer),
		unary("GetBalance", LedgerServiceServer.GetBalance),
		unary("GetHistory", LedgerServiceServer.GetHistory),
		unary("ApplyInterest", LedgerServiceServer.ApplyInterest),
		unary("ApplyInterestAll", LedgerServiceServer.ApplyInterestAll),
		unary("Audit", LedgerServiceServer.Audit),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}
