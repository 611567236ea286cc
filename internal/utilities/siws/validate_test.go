package siws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	parsed, err := ParseMessage(exampleMessage)
	require.NoError(t, err)

	issuedAt := time.Date(2024, 6, 17, 12, 11, 43, 537000000, time.UTC)

	examples := []struct {
		name   string
		params ValidationParams
		err    error
	}{
		{
			name:   "no expectations",
			params: ValidationParams{},
		},
		{
			name: "all expectations met",
			params: ValidationParams{
				ExpectedDomain:  "example.com",
				ExpectedAddress: exampleAddress,
				ExpectedNonce:   "oBbLoEldZs",
				ExpectedChainID: "mainnet",
				Now:             issuedAt.Add(time.Minute),
				MaxAge:          5 * time.Minute,
			},
		},
		{
			name:   "domain",
			params: ValidationParams{ExpectedDomain: "evil.com"},
			err:    ErrDomainMismatch,
		},
		{
			name:   "address",
			params: ValidationParams{ExpectedAddress: "4Cw1koUQtqybLFem7uqhzMBznMPGARbFS4cjaYbM9RnR"},
			err:    ErrAddressMismatch,
		},
		{
			name:   "nonce",
			params: ValidationParams{ExpectedNonce: "other"},
			err:    ErrNonceMismatch,
		},
		{
			name:   "chain",
			params: ValidationParams{ExpectedChainID: "devnet"},
			err:    ErrChainIDMismatch,
		},
		{
			name:   "issued too long ago",
			params: ValidationParams{Now: issuedAt.Add(time.Hour), MaxAge: 10 * time.Minute},
			err:    ErrIssuedTooLongAgo,
		},
		{
			name:   "issued in the future",
			params: ValidationParams{Now: issuedAt.Add(-time.Hour), MaxAge: 10 * time.Minute},
			err:    ErrIssuedInFuture,
		},
	}

	for _, example := range examples {
		t.Run(example.name, func(t *testing.T) {
			err := parsed.Validate(example.params)
			if example.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, example.err)
			}
		})
	}
}

func TestValidateTimeWindow(t *testing.T) {
	message := exampleHeader + "\n\n" +
		"Issued At: 2024-01-01T00:00:00Z\n" +
		"Expiration Time: 2024-01-01T00:10:00Z\n" +
		"Not Before: 2024-01-01T00:01:00Z"

	parsed, err := ParseMessage(message)
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.ErrorIs(t, parsed.Validate(ValidationParams{Now: start}), ErrMessageNotYetValid)
	require.NoError(t, parsed.Validate(ValidationParams{Now: start.Add(5 * time.Minute)}))
	require.ErrorIs(t, parsed.Validate(ValidationParams{Now: start.Add(11 * time.Minute)}), ErrMessageExpired)
}

func TestValidateMissingFields(t *testing.T) {
	parsed, err := ParseMessage(exampleHeader)
	require.NoError(t, err)

	require.NoError(t, parsed.Validate(ValidationParams{}))
	require.ErrorIs(t, parsed.Validate(ValidationParams{RequireNonce: true}), ErrMissingNonce)
	require.ErrorIs(t, parsed.Validate(ValidationParams{ExpectedNonce: "abc"}), ErrMissingNonce)
	require.ErrorIs(t, parsed.Validate(ValidationParams{RequireIssuedAt: true}), ErrMissingIssuedAt)
	require.ErrorIs(t, parsed.Validate(ValidationParams{MaxAge: time.Minute}), ErrMissingIssuedAt)
}

func TestValidateInvalidTimestamp(t *testing.T) {
	parsed, err := ParseMessage(exampleHeader + "\n\nIssued At: yesterday")
	require.NoError(t, err)

	require.ErrorIs(t, parsed.Validate(ValidationParams{}), ErrInvalidTimestamp)
}

func TestHelpers(t *testing.T) {
	for _, domain := range []string{"example.com", "localhost", "localhost:3000", "solana-phantom.ratersapp.com"} {
		require.True(t, IsValidDomain(domain), domain)
	}
	for _, domain := range []string{"", "***", "example", "https://example.com"} {
		require.False(t, IsValidDomain(domain), domain)
	}

	for _, network := range []string{"mainnet", "devnet", "testnet", "localnet", "solana:mainnet"} {
		require.True(t, IsValidSolanaNetwork(network), network)
	}
	for _, network := range []string{"", "mainnet-beta", "ethereum:1", "solana:"} {
		require.False(t, IsValidSolanaNetwork(network), network)
	}

	a, err := GenerateNonce()
	require.NoError(t, err)
	b, err := GenerateNonce()
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}
