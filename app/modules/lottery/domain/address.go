package lotterydomain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an owner or bettor.
type Address = common.Address

// ParseAddress accepts a 0x-prefixed or bare 40 digit hex address. The zero
// address is rejected.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("%q: %w", s, ErrInvalidAddress)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return Address{}, fmt.Errorf("zero address: %w", ErrInvalidAddress)
	}
	return addr, nil
}
