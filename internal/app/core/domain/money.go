package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 金額精度：小數點後 2 位；利率精度：小數點後 4 位
const (
	AmountScale = 2
	RateScale   = 4
)

var hundred = decimal.NewFromInt(100)

// MaxAmount 單筆金額與帳戶餘額的上限，對應儲存層的 decimal(15,2)
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// ValidateAmount 檢查金額為正數、不超過金額精度且不超過 MaxAmount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, amount.String(), MaxAmount.StringFixed(AmountScale))
	}
	return nil
}

// ValidateRate 檢查利率介於 0 與 1 之間且不超過利率精度
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidRate
	}
	if !rate.Equal(rate.Truncate(RateScale)) {
		return ErrInvalidRate
	}
	return nil
}

// RoundAmount 四捨五入至金額精度 (正數時即 round-half-up)
func RoundAmount(v decimal.Decimal) decimal.Decimal {
	return v.Round(AmountScale)
}

// RatePercent 將利率轉成兩位小數的百分比字串，例如 0.04 -> "4.00"
func RatePercent(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(2)
}
