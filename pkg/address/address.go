// Package address normalises the external account addresses that key every identity in the ledger.
package address

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/sha3"
)

// Address is a 20-byte hex account address in EIP-55 checksum form.
type Address string

// Zero is the unset address.
const Zero Address = "0x0000000000000000000000000000000000000000"

var (
	ErrInvalidAddress = errors.New("invalid address")
	validate          = validator.New()
)

// Parse accepts any casing and returns the checksummed address.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if err := validate.Var(s, "required,eth_addr"); err != nil {
		return "", ErrInvalidAddress
	}
	return Address(checksum(strings.ToLower(s[2:]))), nil
}

// MustParse panics on invalid input. Intended for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsZero() bool {
	return a == "" || a == Zero
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
