package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ratersapp/siws/internal/metering"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/observability"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/ratersapp/siws/internal/utilities/siws"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Messages returned with {"valid": false} when a verification request is
// incomplete.
const (
	msgBodyNotFound      = "Body not found."
	msgBodyNotJSON       = "Body is not valid JSON."
	msgSignatureNotFound = "Signature not found."
	msgMessageNotFound   = "Message not found."
	msgPublicKeyNotFound = "PublicKey not found."
	msgNonceNotFound     = "Nonce was not issued, has expired or has already been used."
)

var (
	verificationsCounter    = observability.ObtainMetricCounter("siws_verifications_total", "Number of sign-in messages checked")
	challengesIssuedCounter = observability.ObtainMetricCounter("siws_challenges_issued_total", "Number of sign-in challenges handed out")
)

// ChallengeResponse is what a client needs, besides its own domain and
// address, to build a sign-in message.
type ChallengeResponse struct {
	Domain    string   `json:"domain,omitempty"`
	Statement string   `json:"statement"`
	Version   string   `json:"version"`
	Nonce     string   `json:"nonce"`
	ChainID   string   `json:"chainId"`
	IssuedAt  string   `json:"issuedAt"`
	Resources []string `json:"resources"`
}

// SignatureParams carries a signature as the list of its byte values, the
// way wallets serialize a Uint8Array to JSON.
type SignatureParams struct {
	Data []int `json:"data"`
}

// VerifyParams is the body of POST /siws.
type VerifyParams struct {
	Signature *SignatureParams `json:"signature"`
	Message   string           `json:"message"`
	PublicKey string           `json:"publicKey"`
}

// Decode checks that every part of p is present and decodes the signature.
// A non-empty reason explains why p cannot be verified.
func (p *VerifyParams) Decode() (signature []byte, reason string) {
	switch {
	case p.Signature == nil || p.Signature.Data == nil:
		return nil, msgSignatureNotFound
	case p.Message == "":
		return nil, msgMessageNotFound
	case p.PublicKey == "":
		return nil, msgPublicKeyNotFound
	}

	signature, err := siws.SignatureFromByteValues(p.Signature.Data)
	if err != nil {
		return nil, err.Error()
	}
	return signature, ""
}

// ParseAndValidate parses the message of p and checks it against vp. The
// message must name p.PublicKey as its address. The parsed message is nil
// only when parsing failed.
func (p *VerifyParams) ParseAndValidate(vp siws.ValidationParams) (*siws.ParsedMessage, error) {
	parsed, err := siws.ParseMessage(p.Message)
	if err != nil {
		return nil, err
	}
	vp.ExpectedAddress = p.PublicKey
	return parsed, parsed.Validate(vp)
}

// VerifyResponse is always sent with status 200. Message explains why a
// request could not be checked.
type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Challenge hands out a fresh nonce together with the configured message
// fields.
func (a *API) Challenge(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := a.config.Challenge

	now := a.Now().UTC()

	if a.issueLimiter != nil && !a.issueLimiter.AllowAt(now) {
		return tooManyRequestsError(ErrorCodeOverNonceIssueLimit, "Too many challenges issued, please try again later")
	}

	nonce, err := siws.GenerateNonce()
	if err != nil {
		return internalServerError("Unable to generate nonce").WithInternalError(err)
	}

	if a.nonces != nil {
		issueCtx := nonces.WithClientIP(ctx, utilities.GetIPAddress(r))
		if err := a.nonces.Issue(issueCtx, nonce, config.NonceTTL); err != nil {
			return httpError(http.StatusInternalServerError, ErrorCodeNonceStoreFailure, "Unable to issue challenge").WithInternalError(err)
		}
	}

	challengesIssuedCounter.Add(ctx, 1)
	observability.LogEntrySetField(r, "nonce", nonce)

	resources := config.Resources
	if resources == nil {
		resources = []string{}
	}

	return sendJSON(w, http.StatusOK, &ChallengeResponse{
		Domain:    config.Domain,
		Statement: config.Statement,
		Version:   config.Version,
		Nonce:     nonce,
		ChainID:   config.ChainID,
		IssuedAt:  now.Format(time.RFC3339),
		Resources: resources,
	})
}

// Verify checks a signed sign-in message.
func (a *API) Verify(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	result, err := a.verify(r)
	if err != nil {
		return err
	}

	verificationsCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("valid", result.Valid)))
	observability.LogEntrySetFields(r, logrus.Fields{
		"valid":  result.Valid,
		"reason": result.Message,
	})

	return sendJSON(w, http.StatusOK, result)
}

func (a *API) verify(r *http.Request) (*VerifyResponse, error) {
	config := a.config.Challenge

	body, err := utilities.GetBodyBytes(r)
	if err != nil {
		if errors.Is(err, utilities.ErrBodyTooLarge) {
			return nil, httpError(http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge, "Request body too large")
		}
		return nil, internalServerError("Could not read body").WithInternalError(err)
	}
	if len(body) == 0 {
		return invalid(msgBodyNotFound), nil
	}

	params := &VerifyParams{}
	if err := json.Unmarshal(body, params); err != nil {
		return invalid(msgBodyNotJSON), nil
	}

	signature, reason := params.Decode()
	if reason != "" {
		return invalid(reason), nil
	}

	observability.LogEntrySetField(r, "public_key", params.PublicKey)

	var parsed *siws.ParsedMessage
	if config.RequireCanonical || config.Domain != "" || a.nonces != nil {
		parsed, err = params.ParseAndValidate(siws.ValidationParams{
			ExpectedDomain: config.Domain,
			RequireNonce:   a.nonces != nil,
			Now:            a.Now(),
			MaxAge:         config.MaximumValidityDuration,
		})
		if parsed == nil {
			return invalid(err.Error()), nil
		}
		if err != nil {
			metering.RecordSignIn(metering.OutcomeRejected, signInData(parsed, params.PublicKey, err.Error()))
			return invalid(err.Error()), nil
		}
	}

	valid, err := siws.VerifySignature(params.Message, signature, params.PublicKey)
	if err != nil {
		return invalid(err.Error()), nil
	}
	if !valid {
		metering.RecordSignIn(metering.OutcomeInvalid, signInData(parsed, params.PublicKey, ""))
		return &VerifyResponse{Valid: false}, nil
	}

	if a.nonces != nil {
		nonce := siws.Value(parsed.Nonce)
		if err := a.nonces.Consume(r.Context(), nonce); err != nil {
			if errors.Is(err, nonces.ErrNonceNotFound) {
				return invalid(msgNonceNotFound), nil
			}
			return nil, httpError(http.StatusInternalServerError, ErrorCodeNonceStoreFailure, "Unable to check nonce").WithInternalError(err)
		}
		observability.LogEntrySetField(r, "nonce", nonce)
	}

	metering.RecordSignIn(metering.OutcomeValid, signInData(parsed, params.PublicKey, ""))
	return &VerifyResponse{Valid: true}, nil
}

func signInData(parsed *siws.ParsedMessage, publicKey, reason string) *metering.SignInData {
	data := &metering.SignInData{Address: publicKey, Reason: reason}
	if parsed != nil {
		data.Domain = parsed.Domain
		data.URI = siws.Value(parsed.URI)
		data.ChainID = siws.Value(parsed.ChainID)
		data.Nonce = siws.Value(parsed.Nonce)
	}
	return data
}

// Preflight answers OPTIONS requests that the CORS handler lets through.
func (a *API) Preflight(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
	return nil
}

func invalid(message string) *VerifyResponse {
	return &VerifyResponse{Valid: false, Message: message}
}
