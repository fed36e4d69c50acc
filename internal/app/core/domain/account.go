package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind 帳戶類型
type AccountKind string

const (
	AccountKindSavings  AccountKind = "Savings"
	AccountKindSalary   AccountKind = "Salary"
	AccountKindChecking AccountKind = "Checking"
)

// KindPolicy 帳戶類型對應的計息規則
type KindPolicy struct {
	// InterestBearing: 是否計息
	InterestBearing bool
	// DefaultRate: 開戶時未指定利率所使用的預設值
	DefaultRate decimal.Decimal
}

// 以查表取代繼承：利率資格只看帳戶類型
var kindPolicies = map[AccountKind]KindPolicy{
	AccountKindSavings:  {InterestBearing: true, DefaultRate: decimal.RequireFromString("0.0400")},
	AccountKindSalary:   {InterestBearing: false, DefaultRate: decimal.Zero},
	AccountKindChecking: {InterestBearing: false, DefaultRate: decimal.Zero},
}

// ParseAccountKind 解析帳戶類型 (不分大小寫)
func ParseAccountKind(s string) (AccountKind, error) {
	for kind := range kindPolicies {
		if strings.EqualFold(string(kind), strings.TrimSpace(s)) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountKind, s)
}

// Policy 取得帳戶類型的計息規則
func (k AccountKind) Policy() (KindPolicy, bool) {
	p, ok := kindPolicies[k]
	return p, ok
}

// InterestBearing 帳戶類型是否計息
func (k AccountKind) InterestBearing() bool {
	p, ok := kindPolicies[k]
	return ok && p.InterestBearing
}

// Account 帳戶
type Account struct {
	// ID: 帳戶 ID，由儲存層分配，用於鎖定順序
	ID int64
	// OwnerID: 外部擁有者識別 (由驗證服務提供)
	OwnerID string
	// Number: 對外顯示的帳號
	Number string
	Kind   AccountKind
	// Balance: 餘額，精度 2 位小數，永遠 >= 0
	Balance decimal.Decimal
	// InterestRate: 利率，精度 4 位小數，非計息類型為 0
	InterestRate decimal.Decimal
	CreatedAt    time.Time
}

// NewAccountNumber 產生對外帳號，格式 AC + 12 位十六進位
func NewAccountNumber() string {
	id := uuid.New()
	return "AC" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	next := a.Balance.Add(amount)
	if next.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: balance would exceed %s", ErrInvalidAmount, MaxAmount.StringFixed(AmountScale))
	}
	a.Balance = next
	return nil
}

// Withdraw 提款，檢查與扣款使用同一個觀察到的餘額
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Interest 以目前餘額計算利息 (四捨五入至兩位)；非計息帳戶回傳 0
func (a *Account) Interest() decimal.Decimal {
	if !a.Kind.InterestBearing() || !a.InterestRate.IsPositive() {
		return decimal.Zero
	}
	return RoundAmount(a.Balance.Mul(a.InterestRate))
}
