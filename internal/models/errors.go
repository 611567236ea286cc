package models

// IsNotFoundError returns whether an error represents a "not found" error.
func IsNotFoundError(err error) bool {
	switch err.(type) {
	case ChallengeNotFoundError, *ChallengeNotFoundError:
		return true
	}
	return false
}

// ChallengeNotFoundError represents when a challenge is unknown, consumed or
// expired.
type ChallengeNotFoundError struct{}

func (e ChallengeNotFoundError) Error() string {
	return "Challenge not found"
}

// ChallengeAlreadyExistsError represents when a nonce is issued twice.
type ChallengeAlreadyExistsError struct{}

func (e ChallengeAlreadyExistsError) Error() string {
	return "Challenge already exists"
}
