package siws

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var domainPattern = regexp.MustCompile(`^(localhost|(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,})(?::\d{1,5})?$`)

// IsValidDomain reports whether domain is a host name, with an optional port,
// as it appears in the message header.
func IsValidDomain(domain string) bool {
	return domainPattern.MatchString(domain)
}

var validSolanaNetworksPattern = regexp.MustCompile("^(solana:)?(main|dev|test|local)net$")

// IsValidSolanaNetwork accepts both the bare cluster name ("mainnet") and the
// CAIP-2 style namespace form ("solana:mainnet").
func IsValidSolanaNetwork(network string) bool {
	return validSolanaNetworksPattern.MatchString(network)
}

// GenerateNonce returns 16 random bytes encoded as hex.
func GenerateNonce() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return hex.EncodeToString(nonce), nil
}
