// Package randompkg provides functionality for generating random application items in tests.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max inclusive.
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min+1)
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := int64(len(alphabet))

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Name generates a random account name.
func Name() string {
	return String(8)
}

// Description generates a random transaction description.
func Description() string {
	return fmt.Sprintf("%s %s", String(5), String(7))
}

// MoneyBetween generates a random amount of minor units between min and max inclusive.
func MoneyBetween(min, max int64) moneypkg.Money {
	return moneypkg.Money(IntBetween(min, max))
}
