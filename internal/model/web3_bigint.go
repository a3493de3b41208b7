package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Web3BigInt is an unscaled on-chain integer together with the token decimals
// needed to render it.
type Web3BigInt struct {
	Value   string `json:"value"`
	Decimal int    `json:"decimal"`
}

func NewWeb3BigInt(value *big.Int, decimals int) Web3BigInt {
	if value == nil {
		value = new(big.Int)
	}
	return Web3BigInt{
		Value:   value.String(),
		Decimal: decimals,
	}
}

func (w *Web3BigInt) BigInt() (*big.Int, bool) {
	return new(big.Int).SetString(w.Value, 10)
}

// ToDecimal scales the raw value by 10^-Decimal without losing precision.
// Unparseable values scale to zero.
func (w *Web3BigInt) ToDecimal() decimal.Decimal {
	num, ok := w.BigInt()
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(num, -int32(w.Decimal))
}

// Add returns nil when the operands use different decimals.
func (w *Web3BigInt) Add(number *Web3BigInt) *Web3BigInt {
	return w.combine(number, (*big.Int).Add)
}

// Sub returns nil when the operands use different decimals.
func (w *Web3BigInt) Sub(number *Web3BigInt) *Web3BigInt {
	return w.combine(number, (*big.Int).Sub)
}

func (w *Web3BigInt) combine(number *Web3BigInt, op func(z, x, y *big.Int) *big.Int) *Web3BigInt {
	if number == nil || w.Decimal != number.Decimal {
		return nil
	}

	num1, ok := w.BigInt()
	if !ok {
		num1 = new(big.Int)
	}
	num2, ok := number.BigInt()
	if !ok {
		num2 = new(big.Int)
	}

	result := op(new(big.Int), num1, num2)

	return &Web3BigInt{
		Value:   result.String(),
		Decimal: w.Decimal,
	}
}
