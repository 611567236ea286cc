package siws

import (
	"crypto/ed25519"
)

// VerifySignature reports whether signature is a valid Ed25519 signature by
// the Base58 encoded publicKey over the UTF-8 bytes of message.
//
// A signature that is well formed but does not match returns false and no
// error. An error (matching ErrMalformedInput) is only returned when the
// signature or key cannot possibly be checked.
func VerifySignature(message string, signature []byte, publicKey string) (bool, error) {
	key, err := DecodePublicKey(publicKey)
	if err != nil {
		return false, err
	}

	return verify(message, signature, key)
}

// VerifySignatureWithKey is VerifySignature for a raw 32 byte public key.
func VerifySignatureWithKey(message string, signature []byte, publicKey []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, malformed("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}

	return verify(message, signature, ed25519.PublicKey(publicKey))
}

// VerifySignature checks the signature against the address named in the
// message itself.
func (m *ParsedMessage) VerifySignature(signature []byte) (bool, error) {
	return VerifySignature(m.Raw, signature, m.Address)
}

func verify(message string, signature []byte, key ed25519.PublicKey) (bool, error) {
	if len(signature) == 0 {
		return false, malformed("signature is empty")
	}
	if len(signature) != ed25519.SignatureSize {
		return false, malformed("signature must be %d bytes, got %d", ed25519.SignatureSize, len(signature))
	}

	return ed25519.Verify(key, []byte(message), signature), nil
}
