package metering

import (
	"github.com/sirupsen/logrus"
)

// Outcome of a verification attempt.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRejected Outcome = "rejected"
)

// SignInData contains structured data for sign-in events.
type SignInData struct {
	// Wallet address that signed the message
	Address string `json:"address,omitempty"`
	// Domain requesting the sign-in
	Domain string `json:"domain,omitempty"`
	URI    string `json:"uri,omitempty"`
	// Chain ID (e.g., "mainnet", "solana:devnet")
	ChainID string `json:"chain_id,omitempty"`
	Nonce   string `json:"nonce,omitempty"`

	// Reason is set when the attempt was not valid.
	Reason string `json:"reason,omitempty"`
}

var logger logrus.FieldLogger = logrus.StandardLogger().WithField("metering", true)

// RecordSignIn logs the outcome of a verification attempt.
func RecordSignIn(outcome Outcome, data *SignInData) {
	fields := logrus.Fields{
		"action":  "sign_in",
		"outcome": string(outcome),
	}

	if data != nil {
		if data.Address != "" {
			fields["solana_address"] = data.Address
		}
		if data.Domain != "" {
			fields["solana_domain"] = data.Domain
		}
		if data.URI != "" {
			fields["solana_uri"] = data.URI
		}
		if data.ChainID != "" {
			fields["solana_chain_id"] = data.ChainID
		}
		if data.Nonce != "" {
			fields["nonce"] = data.Nonce
		}
		if data.Reason != "" {
			fields["reason"] = data.Reason
		}
	}

	logger.WithFields(fields).Info("Sign in")
}
