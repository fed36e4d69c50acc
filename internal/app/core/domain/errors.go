package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數，且最多兩位小數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount 轉出與轉入為同一帳戶
	ErrSameAccount = errors.New("source and target are the same account")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 同一擁有者已有相同類型的帳戶
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrInvalidOwner 缺少擁有者識別
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrInvalidAccountKind 不支援的帳戶類型
	ErrInvalidAccountKind = errors.New("invalid account kind")

	// ErrInvalidRate 利率超出範圍或精度
	ErrInvalidRate = errors.New("invalid interest rate")

	// ErrLockTimeout 在限定時間內無法取得帳戶鎖，可由呼叫端重試
	ErrLockTimeout = errors.New("lock timeout")

	// ErrStorageUnavailable 儲存層無法持久化，本次操作視為未套用
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLedgerMismatch 交易紀錄加總與餘額不一致
	ErrLedgerMismatch = errors.New("ledger mismatch")
)
