package moneypkg

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromDecimal(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		digits  int32
		want    Money
		wantErr error
	}{
		{name: "Integer", input: "10", digits: 2, want: 1000},
		{name: "Fraction", input: "10.50", digits: 2, want: 1050},
		{name: "ShortFraction", input: "0.5", digits: 2, want: 50},
		{name: "Spaces", input: " 7.25 ", digits: 2, want: 725},
		{name: "ZeroDigits", input: "1500", digits: 0, want: 1500},
		{name: "Negative", input: "-3.10", digits: 2, want: -310},
		{name: "TrailingZeros", input: "1.2000", digits: 2, want: 120},
		{name: "TooManyDigits", input: "1.005", digits: 2, wantErr: ErrInvalidAmount},
		{name: "FractionWithZeroDigits", input: "1.5", digits: 0, wantErr: ErrInvalidAmount},
		{name: "NotANumber", input: "!@#$", digits: 2, wantErr: ErrInvalidAmount},
		{name: "Empty", input: "", digits: 2, wantErr: ErrInvalidAmount},
		{name: "Overflow", input: "92233720368547758.08", digits: 2, wantErr: ErrAmountOverflow},
		{name: "MaxInt64", input: "92233720368547758.07", digits: 2, want: math.MaxInt64},
		{name: "Exponent", input: "1.5e3", digits: 2, want: 150000},
		{name: "NegativeExponent", input: "25e-2", digits: 2, want: 25},
		{name: "LargestExponentThatFits", input: "9e16", digits: 2, want: 9e18},
		{name: "ExponentOverflow", input: "1e17", digits: 2, wantErr: ErrAmountOverflow},
		{name: "HugeExponent", input: "1e20000000", digits: 2, wantErr: ErrAmountOverflow},
		{name: "MaxExponent", input: "1e2147483647", digits: 2, wantErr: ErrAmountOverflow},
		{name: "HugeNegativeExponent", input: "1e-2000000000", digits: 2, wantErr: ErrInvalidAmount},
		{name: "ZeroWithHugeExponent", input: "0e2000000000", digits: 2, want: 0},
		{name: "TooLong", input: "1" + strings.Repeat("0", 64), digits: 2, wantErr: ErrInvalidAmount},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := FromDecimal(tc.input, tc.digits)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Zero(t, got)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestHugeExponentReturnsQuickly(t *testing.T) {
	t.Parallel()

	start := time.Now()

	for _, input := range []string{"1e20000000", "1e2147483647", "-1e2147483647", "1e-2147483648"} {
		_, err := ParsePositive(input, 2)
		require.Error(t, err, input)
	}

	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestParsePositive(t *testing.T) {
	m, err := ParsePositive("0.01", 2)
	require.NoError(t, err)
	require.Equal(t, Money(1), m)

	_, err = ParsePositive("0", 2)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParsePositive("-1", 2)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseNonNegative(t *testing.T) {
	m, err := ParseNonNegative("0", 2)
	require.NoError(t, err)
	require.Zero(t, m)

	_, err = ParseNonNegative("-0.01", 2)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestStringFixed(t *testing.T) {
	require.Equal(t, "10.50", Money(1050).StringFixed(2))
	require.Equal(t, "0.05", Money(5).StringFixed(2))
	require.Equal(t, "-3.10", Money(-310).StringFixed(2))
	require.Equal(t, "0.00", Money(0).StringFixed(2))
	require.Equal(t, "1500", Money(1500).StringFixed(0))
	require.Equal(t, "1.500", Money(1500).StringFixed(3))
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "10.50", "123456789.99"} {
		m, err := FromDecimal(s, 2)
		require.NoError(t, err)
		require.Equal(t, s, m.StringFixed(2))
	}
}

func TestAdd(t *testing.T) {
	got, err := Money(1000).Add(500)
	require.NoError(t, err)
	require.Equal(t, Money(1500), got)

	got, err = Money(1000).Add(-1200)
	require.NoError(t, err)
	require.Equal(t, Money(-200), got)

	_, err = Money(math.MaxInt64).Add(1)
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = Money(math.MinInt64).Add(-1)
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestSub(t *testing.T) {
	got, err := Money(1000).Sub(700)
	require.NoError(t, err)
	require.Equal(t, Money(300), got)

	got, err = Money(0).Sub(-5)
	require.NoError(t, err)
	require.Equal(t, Money(5), got)

	_, err = Money(math.MinInt64).Sub(1)
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = Money(math.MaxInt64).Sub(-1)
	require.ErrorIs(t, err, ErrAmountOverflow)
}
