package siws

import (
	"time"
)

// ValidationParams are the values a relying party expects in a parsed
// message. Empty expectations are not checked.
type ValidationParams struct {
	ExpectedDomain  string
	ExpectedAddress string
	ExpectedNonce   string
	ExpectedChainID string

	// RequireNonce and RequireIssuedAt reject messages that leave the
	// respective field out.
	RequireNonce    bool
	RequireIssuedAt bool

	// Now defaults to time.Now when zero.
	Now time.Time

	// MaxAge bounds how far Issued At may lie from Now in either direction.
	// Zero disables the check.
	MaxAge time.Duration
}

// Validate checks the message fields against params. The signature is not
// looked at; call VerifySignature for that.
func (m *ParsedMessage) Validate(params ValidationParams) error {
	if params.ExpectedDomain != "" && m.Domain != params.ExpectedDomain {
		return ErrDomainMismatch
	}

	if params.ExpectedAddress != "" && m.Address != params.ExpectedAddress {
		return ErrAddressMismatch
	}

	if m.Nonce == nil && (params.RequireNonce || params.ExpectedNonce != "") {
		return ErrMissingNonce
	}
	if params.ExpectedNonce != "" && *m.Nonce != params.ExpectedNonce {
		return ErrNonceMismatch
	}

	if params.ExpectedChainID != "" && Value(m.ChainID) != params.ExpectedChainID {
		return ErrChainIDMismatch
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	notBefore, err := parseOptionalTimestamp(m.NotBefore)
	if err != nil {
		return err
	}
	if !notBefore.IsZero() && now.Before(notBefore) {
		return ErrMessageNotYetValid
	}

	expiresAt, err := parseOptionalTimestamp(m.ExpirationTime)
	if err != nil {
		return err
	}
	if !expiresAt.IsZero() && now.After(expiresAt) {
		return ErrMessageExpired
	}

	issuedAt, err := parseOptionalTimestamp(m.IssuedAt)
	if err != nil {
		return err
	}
	if issuedAt.IsZero() {
		if params.RequireIssuedAt || params.MaxAge > 0 {
			return ErrMissingIssuedAt
		}
		return nil
	}

	if params.MaxAge > 0 {
		if now.After(issuedAt.Add(params.MaxAge)) {
			return ErrIssuedTooLongAgo
		}
		if now.Before(issuedAt.Add(-params.MaxAge)) {
			return ErrIssuedInFuture
		}
	}

	return nil
}

// IssuedAtTime returns Issued At as a time, or the zero time when absent.
func (m *ParsedMessage) IssuedAtTime() (time.Time, error) {
	return parseOptionalTimestamp(m.IssuedAt)
}

// ExpirationTimeValue returns Expiration Time as a time, or the zero time
// when absent.
func (m *ParsedMessage) ExpirationTimeValue() (time.Time, error) {
	return parseOptionalTimestamp(m.ExpirationTime)
}

func parseOptionalTimestamp(v *string) (time.Time, error) {
	if v == nil {
		return time.Time{}, nil
	}

	// RFC3339 accepts fractional seconds on input as well.
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}

	return t, nil
}
