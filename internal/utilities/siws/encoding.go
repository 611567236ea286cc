package siws

import (
	"crypto/ed25519"

	"github.com/btcsuite/btcutil/base58"
)

// DecodePublicKey decodes a Base58 encoded Solana address into an Ed25519
// public key.
func DecodePublicKey(address string) (ed25519.PublicKey, error) {
	if address == "" {
		return nil, malformed("public key is empty")
	}

	// base58.Decode returns an empty slice for input outside the alphabet.
	decoded := base58.Decode(address)
	if len(decoded) == 0 {
		return nil, malformed("public key is not valid base58")
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, malformed("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}

	return ed25519.PublicKey(decoded), nil
}

// EncodePublicKey returns the Base58 address of an Ed25519 public key.
func EncodePublicKey(key ed25519.PublicKey) string {
	return base58.Encode(key)
}

// SignatureFromByteValues reassembles a signature that was transported as a
// list of per-byte numbers, e.g. a JSON serialized Uint8Array. Order is kept
// as is and nothing is padded or truncated.
func SignatureFromByteValues(values []int) ([]byte, error) {
	signature := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, malformed("signature byte at position %d is out of range: %d", i, v)
		}
		signature[i] = byte(v)
	}
	return signature, nil
}

// ByteValues is the inverse of SignatureFromByteValues.
func ByteValues(b []byte) []int {
	values := make([]int, len(b))
	for i, v := range b {
		values[i] = int(v)
	}
	return values
}
