package siws

import (
	"strings"
)

const lineBreaks = "\r\n"

// ConstructMessage renders the canonical text to be signed for the given
// input:
//
//	${domain} wants you to sign in with your Solana account:
//	${address}
//
//	${statement}
//
//	URI: ${uri}
//	Version: ${version}
//	Chain ID: ${chainId}
//	Nonce: ${nonce}
//	Issued At: ${issuedAt}
//	Expiration Time: ${expirationTime}
//	Not Before: ${notBefore}
//	Request ID: ${requestId}
//	Resources:
//	- ${resources[0]}
//	- ${resources[n]}
//
// Absent fields are left out together with their line. The output never ends
// in a line break. Rendering the same input always yields the same text.
func ConstructMessage(input SignInInput) (string, error) {
	if err := validateInput(&input); err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString(input.Domain)
	sb.WriteString(headerSuffix)
	sb.WriteString("\n")
	sb.WriteString(input.Address)

	if input.Statement != nil {
		sb.WriteString("\n\n")
		sb.WriteString(*input.Statement)
	}

	var lines []string
	for _, f := range messageFields {
		if v := *f.ref(&input); v != nil {
			lines = append(lines, f.label+labelSeparator+*v)
		}
	}
	if len(input.Resources) > 0 {
		lines = append(lines, resourcesLabel)
		for _, resource := range input.Resources {
			lines = append(lines, resourcePrefix+resource)
		}
	}

	if len(lines) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(lines, "\n"))
	}

	return sb.String(), nil
}

func validateInput(input *SignInInput) error {
	if input.Domain == "" {
		return invalidInput("domain", "must not be empty")
	}
	if strings.ContainsAny(input.Domain, lineBreaks) {
		return invalidInput("domain", "must not contain line breaks")
	}
	if input.Address == "" {
		return invalidInput("address", "must not be empty")
	}
	if strings.ContainsAny(input.Address, lineBreaks) {
		return invalidInput("address", "must not contain line breaks")
	}

	if s := input.Statement; s != nil {
		switch {
		case *s == "":
			return invalidInput("statement", "must not be empty when present")
		case strings.Contains(*s, "\r"):
			return invalidInput("statement", "must use \\n line breaks")
		case strings.HasPrefix(*s, "\n") || strings.HasSuffix(*s, "\n"):
			return invalidInput("statement", "must not begin or end with a line break")
		case startsFieldsBlock(lastParagraph(*s)):
			return invalidInput("statement", "last paragraph must not start with a field label")
		}
	}

	for _, f := range messageFields {
		v := *f.ref(input)
		if v == nil {
			continue
		}
		if *v == "" {
			return invalidInput(f.name, "must not be empty when present")
		}
		if strings.ContainsAny(*v, lineBreaks) {
			return invalidInput(f.name, "must not contain line breaks")
		}
	}

	for _, resource := range input.Resources {
		if resource == "" {
			return invalidInput("resources", "entries must not be empty")
		}
		if strings.ContainsAny(resource, lineBreaks) {
			return invalidInput("resources", "entries must not contain line breaks")
		}
	}

	return nil
}

// lastParagraph returns the first line of the last blank-line delimited
// paragraph of s. The parser reads a paragraph starting with a field label as
// the fields block, so such a statement could not be read back.
func lastParagraph(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i > 0; i-- {
		if lines[i-1] == "" {
			return lines[i]
		}
	}
	return lines[0]
}
