package util

import (
	"errors"
	"math"
	"testing"
)

func TestCeilDiv(t *testing.T) {
	cases := []struct {
		a, b, want uint64
	}{
		{1, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{0, 7, 0},
		{999, 1000, 1},
		{2000, 1000, 2},
		{math.MaxUint64, 1, math.MaxUint64},
	}
	for _, c := range cases {
		got, err := CeilDiv(c.a, c.b)
		if err != nil {
			t.Fatalf("CeilDiv(%d,%d): unexpected error %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("CeilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCeilDivZeroDivisor(t *testing.T) {
	if _, err := CeilDiv(42, 0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestMagnitude(t *testing.T) {
	cases := []struct {
		in   int64
		want uint64
	}{
		{0, 0},
		{1000, 1000},
		{-400, 400},
		{math.MaxInt64, uint64(math.MaxInt64)},
		{math.MinInt64, 1 << 63},
	}
	for _, c := range cases {
		if got := Magnitude(c.in); got != c.want {
			t.Errorf("Magnitude(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
