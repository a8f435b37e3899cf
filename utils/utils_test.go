// utils_test.go — formatting and mixing helpers.

package utils

import (
	"math"
	"testing"
)

func TestItoa(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-1, "-1"},
		{42, "42"},
		{-9001, "-9001"},
		{math.MaxInt64, "9223372036854775807"},
	}
	for _, tc := range cases {
		if got := Itoa(tc.in); got != tc.want {
			t.Fatalf("Itoa(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUtox(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0x0"},
		{1, "0x1"},
		{15, "0xf"},
		{255, "0xff"},
		{999, "0x3e7"},
		{math.MaxUint64, "0xffffffffffffffff"},
	}
	for _, tc := range cases {
		if got := Utox(tc.in); got != tc.want {
			t.Fatalf("Utox(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestB2s(t *testing.T) {
	if got := B2s(nil); got != "" {
		t.Fatalf("B2s(nil) = %q", got)
	}
	if got := B2s([]byte("sched")); got != "sched" {
		t.Fatalf("B2s = %q", got)
	}
}

func TestMix64Distribution(t *testing.T) {
	if Mix64(0) != 0 {
		t.Fatal("Mix64(0) must be the fixed point 0")
	}
	// Sequential inputs must not collide and must differ from the input.
	seen := make(map[uint64]bool, 1000)
	for i := uint64(1); i <= 1000; i++ {
		h := Mix64(i)
		if h == i {
			t.Fatalf("Mix64(%d) is an unexpected fixed point", i)
		}
		if seen[h] {
			t.Fatalf("Mix64 collision at input %d", i)
		}
		seen[h] = true
	}
}

func TestCputicksMonotonicish(t *testing.T) {
	a := Cputicks()
	b := Cputicks()
	if b < a {
		t.Fatalf("Cputicks went backwards: %d then %d", a, b)
	}
}
