package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

const etherDecimals = 18

var weiPerEther = big.NewInt(params.Ether)

// ParseEther converts a decimal ether amount such as "10" or "0.25" into wei.
// Negative amounts parse successfully so that command validation can reject them.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	negative := false
	if s[0] == '-' || s[0] == '+' {
		negative = s[0] == '-'
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, etherDecimals)
	}

	digits := whole + frac + strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		wei.Neg(wei)
	}
	return wei, nil
}

// FormatEther renders a wei amount as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	abs := new(big.Int).Abs(wei)
	whole, rem := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))

	out := whole.String()
	if rem.Sign() != 0 {
		frac := rem.String()
		frac = strings.Repeat("0", etherDecimals-len(frac)) + frac
		out += "." + strings.TrimRight(frac, "0")
	}
	if wei.Sign() < 0 {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
