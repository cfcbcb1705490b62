package opentime

import (
	"errors"
	"testing"
)

func TestParseRational(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1/2", "1/2", false},
		{"2/4", "1/2", false},
		{"-3/9", "-1/3", false},
		{"5", "5/1", false},
		{"", "", true},
		{"1/0", "", true},
		{"abc", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRational(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRational) {
					t.Fatalf("ParseRational(%q) error = %v, want ErrInvalidRational", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRational(%q) error = %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseRational(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestRational_Arithmetic(t *testing.T) {
	half := MustRational(1, 2)
	third := MustRational(1, 3)

	if got := half.Add(third).String(); got != "5/6" {
		t.Errorf("Add() = %s, want 5/6", got)
	}
	if got := half.Sub(third).String(); got != "1/6" {
		t.Errorf("Sub() = %s, want 1/6", got)
	}
	if got := half.Mul(third).String(); got != "1/6" {
		t.Errorf("Mul() = %s, want 1/6", got)
	}
	q, err := half.Quo(third)
	if err != nil || q.String() != "3/2" {
		t.Errorf("Quo() = %s, %v, want 3/2", q, err)
	}
	if _, err := half.Quo(Rational{}); !errors.Is(err, ErrInvalidRational) {
		t.Errorf("Quo(0) error = %v, want ErrInvalidRational", err)
	}
	if half.Float64() != 0.5 {
		t.Errorf("Float64() = %v, want 0.5", half.Float64())
	}
	if half.Num() != 1 || half.Den() != 2 {
		t.Errorf("Num/Den = %d/%d", half.Num(), half.Den())
	}
	if !half.Equal(MustRational(2, 4)) {
		t.Error("1/2 should equal 2/4")
	}
}

func TestNewRational_ZeroDenominator(t *testing.T) {
	if _, err := NewRational(1, 0); !errors.Is(err, ErrInvalidRational) {
		t.Fatalf("NewRational(1, 0) error = %v, want ErrInvalidRational", err)
	}
}

func TestRational_CopiesDoNotAlias(t *testing.T) {
	half := MustRational(1, 2)
	cp := half
	sum := cp.Add(half)
	prod := cp.Mul(sum)

	if half.String() != "1/2" || cp.String() != "1/2" {
		t.Fatalf("operands changed: half = %s, copy = %s", half, cp)
	}
	if sum.String() != "1/1" || prod.String() != "1/2" {
		t.Fatalf("sum, product = %s, %s, want 1/1, 1/2", sum, prod)
	}

	var zero Rational
	if zero.String() != "0/1" || zero.Add(half).String() != "1/2" {
		t.Fatalf("zero value = %s, zero+1/2 = %s", zero, zero.Add(half))
	}
}
