package siws

// SignInInput is the structured form of a sign-in request. A nil optional
// field is absent and is omitted from the rendered message entirely.
type SignInInput struct {
	Domain  string `json:"domain"`
	Address string `json:"address"`

	Statement      *string  `json:"statement,omitempty"`
	URI            *string  `json:"uri,omitempty"`
	Version        *string  `json:"version,omitempty"`
	ChainID        *string  `json:"chainId,omitempty"`
	Nonce          *string  `json:"nonce,omitempty"`
	IssuedAt       *string  `json:"issuedAt,omitempty"`
	ExpirationTime *string  `json:"expirationTime,omitempty"`
	NotBefore      *string  `json:"notBefore,omitempty"`
	RequestID      *string  `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// ParsedMessage is a sign-in message recovered from its text form.
type ParsedMessage struct {
	SignInInput

	// Raw is the exact text that was parsed. Signatures are computed over it.
	Raw string `json:"-"`
}

// String returns a pointer to v, for filling optional SignInInput fields.
func String(v string) *string {
	return &v
}

// Value returns the value of an optional field, or "" when it is absent.
func Value(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
