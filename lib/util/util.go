// Package util contains helper functions used around the code.
package util

import "strings"

// Address length boundaries of a base58 encoded 32-byte key.
const (
	MinAddressLen = 32
	MaxAddressLen = 44
)

// IsValidAddress returns true if s looks like a base58 encoded public key: between 32 and 44 alphanumeric characters
// none of which is one of the visually ambiguous '0', 'I', 'O' or 'l'.
func IsValidAddress(s string) bool {
	if len(s) < MinAddressLen || len(s) > MaxAddressLen {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			continue
		}

		return false
	}

	return !strings.ContainsAny(s, "0IOl")
}
