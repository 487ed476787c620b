// Package utils
package utils

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
)

var ErrInvalidDecimal = errors.New("invalid decimal string")

var ten = big.NewInt(10)

func pow10(decimals int64) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(decimals), nil)
}

// ParseUnits converts a human-readable decimal string into the token's
// smallest integer unit. The fraction must not carry more digits than the
// scale allows. The inverse of FormatUnits; round-trips exactly.
func ParseUnits(value string, decimals int64) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrInvalidDecimal
	}
	neg := false
	if strings.HasPrefix(value, "-") {
		neg = true
		value = value[1:]
	}
	parts := strings.SplitN(value, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, ErrInvalidDecimal
	}
	if whole == "" {
		whole = "0"
	}
	if int64(len(frac)) > decimals {
		return nil, ErrInvalidDecimal
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, ErrInvalidDecimal
	}
	result := new(big.Int).Mul(w, pow10(decimals))
	if frac != "" {
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, ErrInvalidDecimal
		}
		result.Add(result, f)
	}
	if neg {
		result.Neg(result)
	}
	return result, nil
}

// FormatUnits renders a smallest-unit integer as a decimal string scaled by
// 10^decimals. Trailing fraction zeros are trimmed but one fractional digit
// is always kept when decimals > 0, e.g. 1e18 at 18 decimals is "1.0".
func FormatUnits(value *big.Int, decimals int64) string {
	if decimals == 0 {
		return value.String()
	}
	v := new(big.Int).Set(value)
	neg := v.Sign() < 0
	if neg {
		v.Neg(v)
	}
	whole, frac := new(big.Int).QuoRem(v, pow10(decimals), new(big.Int))
	fracStr := strings.TrimRight(
		strings.Repeat("0", int(decimals)-len(frac.String()))+frac.String(), "0")
	if fracStr == "" {
		fracStr = "0"
	}
	out := whole.String() + "." + fracStr
	if neg {
		out = "-" + out
	}
	return out
}

// BalanceToFloat derives the float sort key stored next to the decimal
// string. Lossy; for index ordering only.
func BalanceToFloat(balance string) float64 {
	f, _ := strconv.ParseFloat(balance, 64)
	return f
}
