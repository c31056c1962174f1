package lotterydomain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Amount is a non-negative value in the smallest currency unit. It holds
// 256 bits so wei scale balances such as 500e18 fit.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount of u units.
func NewAmount(u uint64) Amount {
	var a Amount
	a.v.SetUint64(u)
	return a
}

// ParseAmount parses a base-10 integer. Signs, fractions, exponents and
// whitespace are rejected.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
		}
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("%q: %w", s, ErrAmountOverflow)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseEntryFee parses a strictly positive amount.
func ParseEntryFee(s string) (Amount, error) {
	a, err := ParseAmount(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidEntryFee, err)
	}
	if a.IsZero() {
		return Amount{}, ErrInvalidEntryFee
	}
	return a, nil
}

func (a Amount) String() string { return a.v.ToBig().String() }

func (a Amount) IsZero() bool { return a.v.IsZero() }

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// Float64 approximates the amount for metrics.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).SetInt(a.v.ToBig()).Float64()
	return f
}

func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// Sub returns a-b, or ErrInsufficientPool when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Lt(&b.v) {
		return Amount{}, ErrInsufficientPool
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, nil
}

// MulUint64 returns a*m.
func (a Amount) MulUint64(m uint64) (Amount, error) {
	var out Amount
	if _, overflow := out.v.MulOverflow(&a.v, uint256.NewInt(m)); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// MulDiv returns a*num/den rounded down. The product is computed without
// truncation.
func (a Amount) MulDiv(num, den Amount) Amount {
	if den.IsZero() {
		return Amount{}
	}
	p := new(big.Int).Mul(a.v.ToBig(), num.v.ToBig())
	p.Quo(p, den.v.ToBig())
	v, _ := uint256.FromBig(p)
	return Amount{v: *v}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount: %w", ErrInvalidAmount)
		}
		s = n.String()
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as a decimal string for numeric(78,0) columns.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("scan amount: negative value %d", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return fmt.Errorf("scan amount: %w", err)
	}
	*a = parsed
	return nil
}
