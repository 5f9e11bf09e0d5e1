package wallet

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// AddressLength is the number of hex characters in a wallet address.
const AddressLength = namespaceLength + suffixLength

const (
	namespaceLength = 6
	suffixLength    = 64
)

// namespace is the address prefix owned by the family, fixed at init.
var namespace = hexDigest(FamilyName)[:namespaceLength]

// Namespace returns the 6-character hex prefix shared by every wallet
// address.
func Namespace() string { return namespace }

// DeriveAddress returns the state address holding the balance of the
// account identified by signer. Any string, including the empty one,
// maps to a 70-character lowercase hex address.
func DeriveAddress(signer string) string {
	return namespace + hexDigest(signer)[:suffixLength]
}

// IsWalletAddress reports whether addr is a well-formed address under
// the wallet namespace.
func IsWalletAddress(addr string) bool {
	if len(addr) != AddressLength || !strings.HasPrefix(addr, namespace) {
		return false
	}
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

func hexDigest(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
