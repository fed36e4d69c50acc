package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// errorDomain ErrorInfo.Domain，用來辨識帳務服務的錯誤
const errorDomain = "ledger.bank"

// errorCodes 帳務錯誤對應的 gRPC 狀態碼與 ErrorInfo reason
var errorCodes = []struct {
	err    error
	code   codes.Code
	reason string
}{
	{domain.ErrInvalidAmount, codes.InvalidArgument, "INVALID_AMOUNT"},
	{domain.ErrSameAccount, codes.InvalidArgument, "SAME_ACCOUNT"},
	{domain.ErrInvalidOwner, codes.InvalidArgument, "INVALID_OWNER"},
	{domain.ErrInvalidAccountKind, codes.InvalidArgument, "INVALID_ACCOUNT_KIND"},
	{domain.ErrInvalidRate, codes.InvalidArgument, "INVALID_RATE"},
	{domain.ErrInsufficientFunds, codes.FailedPrecondition, "INSUFFICIENT_FUNDS"},
	{domain.ErrLedgerMismatch, codes.DataLoss, "LEDGER_MISMATCH"},
	{domain.ErrAccountNotFound, codes.NotFound, "ACCOUNT_NOT_FOUND"},
	{domain.ErrAccountAlreadyExists, codes.AlreadyExists, "ACCOUNT_ALREADY_EXISTS"},
	{domain.ErrLockTimeout, codes.Aborted, "LOCK_TIMEOUT"},
	{domain.ErrStorageUnavailable, codes.Unavailable, "STORAGE_UNAVAILABLE"},
}

// toStatus 將帳務錯誤轉成 gRPC status，並附上 ErrorInfo 讓客戶端不必解析訊息
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			st := status.New(e.code, err.Error())
			if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: e.reason, Domain: errorDomain}); derr == nil {
				st = detailed
			}
			return st.Err()
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus 依 ErrorInfo reason 將伺服器回傳的 status 還原成帳務錯誤，讓呼叫端可以用 errors.Is 判斷
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, e := range errorCodes {
			if e.reason == info.GetReason() {
				return fmt.Errorf("%w: %w", e.err, err)
			}
		}
	}
	return err
}
