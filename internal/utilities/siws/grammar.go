package siws

import "strings"

const (
	headerSuffix   = " wants you to sign in with your Solana account:"
	resourcesLabel = "Resources:"
	resourcePrefix = "- "
	labelSeparator = ": "
)

// messageField is one single-line "Label: value" entry of the fields block.
type messageField struct {
	label string
	name  string
	ref   func(in *SignInInput) **string
}

// messageFields lists the single-line fields in the only order the grammar
// accepts. The resources list always comes last.
var messageFields = []messageField{
	{label: "URI", name: "uri", ref: func(in *SignInInput) **string { return &in.URI }},
	{label: "Version", name: "version", ref: func(in *SignInInput) **string { return &in.Version }},
	{label: "Chain ID", name: "chainId", ref: func(in *SignInInput) **string { return &in.ChainID }},
	{label: "Nonce", name: "nonce", ref: func(in *SignInInput) **string { return &in.Nonce }},
	{label: "Issued At", name: "issuedAt", ref: func(in *SignInInput) **string { return &in.IssuedAt }},
	{label: "Expiration Time", name: "expirationTime", ref: func(in *SignInInput) **string { return &in.ExpirationTime }},
	{label: "Not Before", name: "notBefore", ref: func(in *SignInInput) **string { return &in.NotBefore }},
	{label: "Request ID", name: "requestId", ref: func(in *SignInInput) **string { return &in.RequestID }},
}

// matchField reports which entry of messageFields the line belongs to, along
// with its value. Labels match case-insensitively.
func matchField(line string) (int, string, bool) {
	for i, f := range messageFields {
		n := len(f.label) + len(labelSeparator)
		if len(line) < n {
			continue
		}
		if strings.EqualFold(line[:len(f.label)], f.label) && line[len(f.label):n] == labelSeparator {
			return i, line[n:], true
		}
	}
	return -1, "", false
}

func isResourcesHeader(line string) bool {
	return strings.EqualFold(line, resourcesLabel)
}

func splitHeader(line string) (string, bool) {
	if len(line) <= len(headerSuffix) {
		return "", false
	}
	cut := len(line) - len(headerSuffix)
	if !strings.EqualFold(line[cut:], headerSuffix) {
		return "", false
	}
	return line[:cut], true
}
