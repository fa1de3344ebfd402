package crypto

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RulesHash returns the keccak256 of the resolution rules with whitespace
// runs collapsed and case folded, as a 0x-prefixed hex string. Empty rules
// hash to the empty string.
func RulesHash(rules string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(rules)), " ")
	if norm == "" {
		return ""
	}
	return ethcrypto.Keccak256Hash([]byte(norm)).Hex()
}

// RulesMatch compares two rule texts by hash. ok is false when either side
// has no rules to compare.
func RulesMatch(a, b string) (match, ok bool) {
	ha, hb := RulesHash(a), RulesHash(b)
	if ha == "" || hb == "" {
		return false, false
	}
	return ha == hb, true
}

// IsMarketAddress reports whether id is a 0x-prefixed 20-byte hex address.
func IsMarketAddress(id string) bool {
	return strings.HasPrefix(id, "0x") && common.IsHexAddress(id)
}

// ChecksumAddress returns the EIP-55 form of a hex address.
func ChecksumAddress(id string) string {
	return common.HexToAddress(id).Hex()
}
