package opentime

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidRational = errors.New("invalid rational")

// Rational is an exact fraction, normalized so that the denominator is
// positive. The zero value is 0/1. The underlying big.Rat is never
// mutated once built, so copies of a Rational may share it.
type Rational struct {
	r *big.Rat
}

func (q Rational) rat() *big.Rat {
	if q.r == nil {
		return new(big.Rat)
	}
	return q.r
}

// NewRational returns num/den. It fails when den is zero.
func NewRational(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("%w: zero denominator", ErrInvalidRational)
	}
	return Rational{r: new(big.Rat).SetFrac64(num, den)}, nil
}

// MustRational is NewRational for constant arguments.
func MustRational(num, den int64) Rational {
	out, err := NewRational(num, den)
	if err != nil {
		panic(err)
	}
	return out
}

// ParseRational reads "n/d" or a bare integer.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, fmt.Errorf("%w: empty string", ErrInvalidRational)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Rational{}, fmt.Errorf("%w: %q", ErrInvalidRational, s)
	}
	return Rational{r: r}, nil
}

func (q Rational) Num() int64 { return q.rat().Num().Int64() }
func (q Rational) Den() int64 { return q.rat().Denom().Int64() }

func (q Rational) Float64() float64 {
	f, _ := q.rat().Float64()
	return f
}

func (q Rational) Add(other Rational) Rational {
	return Rational{r: new(big.Rat).Add(q.rat(), other.rat())}
}

func (q Rational) Sub(other Rational) Rational {
	return Rational{r: new(big.Rat).Sub(q.rat(), other.rat())}
}

func (q Rational) Mul(other Rational) Rational {
	return Rational{r: new(big.Rat).Mul(q.rat(), other.rat())}
}

// Quo fails on division by zero.
func (q Rational) Quo(other Rational) (Rational, error) {
	if other.rat().Sign() == 0 {
		return Rational{}, fmt.Errorf("%w: division by zero", ErrInvalidRational)
	}
	return Rational{r: new(big.Rat).Quo(q.rat(), other.rat())}, nil
}

func (q Rational) Equal(other Rational) bool {
	return q.rat().Cmp(other.rat()) == 0
}

// String always renders "n/d", including whole numbers.
func (q Rational) String() string {
	return q.rat().String()
}
