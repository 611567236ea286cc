package siws

import (
	"strings"
)

// ParseMessage recovers the structured fields of a sign-in message.
//
// The text is read line by line. After the header and address lines comes
// an optional statement and an optional fields block, each preceded by
// exactly one blank line. The fields block is the last blank-line delimited
// paragraph and is recognised by its first line being a field label. Fields
// must appear in the canonical order, each at most once.
//
// Text that does not follow the grammar yields a *ParseError and no fields.
func ParseMessage(raw string) (*ParsedMessage, error) {
	lines := strings.Split(raw, "\n")

	// Wallets sometimes append line breaks to the message.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) < 2 {
		return nil, parseFailure(-1, "message needs a header line and an address line")
	}

	domain, ok := splitHeader(lines[0])
	if !ok {
		return nil, parseFailure(0, "first line does not end in %q", strings.TrimPrefix(headerSuffix, " "))
	}

	if lines[1] == "" {
		return nil, parseFailure(1, "address is missing")
	}

	msg := &ParsedMessage{
		SignInInput: SignInInput{
			Domain:  domain,
			Address: lines[1],
		},
		Raw: raw,
	}

	if len(lines) == 2 {
		return msg, nil
	}

	if lines[2] != "" {
		return nil, parseFailure(2, "address must be followed by a blank line")
	}

	const bodyOffset = 3
	body := lines[bodyOffset:]
	if body[0] == "" {
		return nil, parseFailure(bodyOffset, "expected a single blank line after the address")
	}

	last := -1
	for i := len(body) - 1; i >= 0; i-- {
		if body[i] == "" {
			last = i
			break
		}
	}

	tail := body[last+1:]
	if !startsFieldsBlock(tail[0]) {
		statement := strings.Join(body, "\n")
		msg.Statement = &statement
		return msg, nil
	}

	var fields SignInInput
	if err := parseFields(tail, bodyOffset+last+1, &fields); err != nil {
		return nil, err
	}

	if last >= 0 {
		if body[last-1] == "" {
			return nil, parseFailure(bodyOffset+last, "expected a single blank line before the fields block")
		}
		statement := strings.Join(body[:last], "\n")
		msg.Statement = &statement
	}

	for _, f := range messageFields {
		*f.ref(&msg.SignInInput) = *f.ref(&fields)
	}
	msg.Resources = fields.Resources

	return msg, nil
}

func startsFieldsBlock(line string) bool {
	if isResourcesHeader(line) {
		return true
	}
	_, _, ok := matchField(line)
	return ok
}

// parseFields runs the fields block state machine. next is the index of the
// earliest field still acceptable, so labels can only move forward. Once the
// Resources: header is seen every remaining line must be a resource entry.
func parseFields(lines []string, offset int, into *SignInInput) error {
	next := 0
	inResources := false

	for i, line := range lines {
		if inResources {
			if !strings.HasPrefix(line, resourcePrefix) || len(line) == len(resourcePrefix) {
				return parseFailure(offset+i, "expected a %q prefixed resource entry", resourcePrefix)
			}
			into.Resources = append(into.Resources, line[len(resourcePrefix):])
			continue
		}

		if isResourcesHeader(line) {
			inResources = true
			continue
		}

		index, value, ok := matchField(line)
		if !ok {
			return parseFailure(offset+i, "unrecognized line %q", line)
		}

		label := messageFields[index].label
		if index < next {
			return parseFailure(offset+i, "%s is out of order or repeated", label)
		}
		if value == "" {
			return parseFailure(offset+i, "%s has an empty value", label)
		}

		v := value
		*messageFields[index].ref(into) = &v
		next = index + 1
	}

	if inResources && len(into.Resources) == 0 {
		return parseFailure(offset+len(lines)-1, "Resources must list at least one entry")
	}

	return nil
}
