package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/ratersapp/siws/internal/utilities/siws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SIWSTestSuite struct {
	suite.Suite
	API    *API
	Config *conf.GlobalConfiguration
	Store  *nonces.MemoryStore

	key ed25519.PrivateKey
}

func TestSIWS(t *testing.T) {
	suite.Run(t, &SIWSTestSuite{})
}

func (ts *SIWSTestSuite) SetupTest() {
	ts.Config = testConfig(ts.T())
	ts.Store = nil
	ts.key = testKey()
	ts.API = setupAPIForTest(ts.T(), ts.Config, nil)
}

func (ts *SIWSTestSuite) withNonceStore() {
	ts.Store = nonces.NewMemoryStore(time.Minute)
	ts.API = setupAPIForTest(ts.T(), ts.Config, ts.Store)

	// messages are stamped with the wall clock
	ts.API.overrideTime = nil
}

func (ts *SIWSTestSuite) address() string {
	return siws.EncodePublicKey(ts.key.Public().(ed25519.PublicKey))
}

func (ts *SIWSTestSuite) message(nonce string) string {
	input := siws.SignInInput{
		Domain:    "solana-phantom.ratersapp.com",
		Address:   ts.address(),
		Statement: siws.String(ts.Config.Challenge.Statement),
		Version:   siws.String("1"),
		ChainID:   siws.String("mainnet"),
		Nonce:     siws.String(nonce),
		IssuedAt:  siws.String(testNow.Format(time.RFC3339)),
		Resources: ts.Config.Challenge.Resources,
	}

	message, err := siws.ConstructMessage(input)
	require.NoError(ts.T(), err)
	return message
}

func (ts *SIWSTestSuite) sign(message string) []int {
	return siws.ByteValues(ed25519.Sign(ts.key, []byte(message)))
}

func (ts *SIWSTestSuite) challenge() *ChallengeResponse {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost/siws", nil)
	ts.API.handler.ServeHTTP(w, req)
	require.Equal(ts.T(), http.StatusOK, w.Code)

	resp := &ChallengeResponse{}
	require.NoError(ts.T(), json.NewDecoder(w.Body).Decode(resp))
	return resp
}

func (ts *SIWSTestSuite) verifyRaw(body []byte) *VerifyResponse {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://localhost/siws", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ts.API.handler.ServeHTTP(w, req)
	require.Equal(ts.T(), http.StatusOK, w.Code)
	require.Equal(ts.T(), "application/json", w.Header().Get("Content-Type"))

	resp := &VerifyResponse{}
	require.NoError(ts.T(), json.NewDecoder(w.Body).Decode(resp))
	return resp
}

func (ts *SIWSTestSuite) verify(params any) *VerifyResponse {
	body, err := json.Marshal(params)
	require.NoError(ts.T(), err)
	return ts.verifyRaw(body)
}

func (ts *SIWSTestSuite) TestChallenge() {
	resp := ts.challenge()

	require.Equal(ts.T(), conf.DefaultChallengeStatement, resp.Statement)
	require.Equal(ts.T(), "1", resp.Version)
	require.Equal(ts.T(), "mainnet", resp.ChainID)
	require.Equal(ts.T(), "2024-06-17T12:11:43Z", resp.IssuedAt)
	require.Equal(ts.T(), []string{"https://solana-phantom.ratersapp.com", "https://phantom.app/"}, resp.Resources)
	require.Len(ts.T(), resp.Nonce, 32)
	require.Empty(ts.T(), resp.Domain)

	require.NotEqual(ts.T(), resp.Nonce, ts.challenge().Nonce)
}

func (ts *SIWSTestSuite) TestChallengeIssueLimit() {
	ts.Config.RateLimitNonceIssue = conf.Rate{Events: 2, OverTime: time.Hour}
	ts.API = setupAPIForTest(ts.T(), ts.Config, nil)

	ts.challenge()
	ts.challenge()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost/siws", nil)
	ts.API.handler.ServeHTTP(w, req)
	require.Equal(ts.T(), http.StatusTooManyRequests, w.Code)
	require.Equal(ts.T(), ErrorCodeOverNonceIssueLimit, w.Header().Get("x-siws-error-code"))
}

func (ts *SIWSTestSuite) TestChallengeIssueLimitRecordsNoNonce() {
	ts.Config.RateLimitNonceIssue = conf.Rate{Events: 1, OverTime: time.Hour}
	ts.withNonceStore()

	ts.challenge()
	require.Equal(ts.T(), 1, ts.Store.Len())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "http://localhost/siws", nil)
		ts.API.handler.ServeHTTP(w, req)
		require.Equal(ts.T(), http.StatusTooManyRequests, w.Code)
	}
	require.Equal(ts.T(), 1, ts.Store.Len())
}

func (ts *SIWSTestSuite) TestChallengeIssuesNonceWithPastClock() {
	ts.Store = nonces.NewMemoryStore(time.Minute)
	ts.API = setupAPIForTest(ts.T(), ts.Config, ts.Store)
	require.True(ts.T(), ts.API.Now().Before(time.Now().Add(-ts.Config.Challenge.NonceTTL)))

	resp := ts.challenge()
	require.Equal(ts.T(), "2024-06-17T12:11:43Z", resp.IssuedAt)
	require.NoError(ts.T(), ts.Store.Consume(context.Background(), resp.Nonce))
}

func (ts *SIWSTestSuite) TestVerifyBodyTooLarge() {
	body := bytes.Repeat([]byte("a"), utilities.MaxRequestBodyBytes+1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://localhost/siws", bytes.NewReader(body))
	ts.API.handler.ServeHTTP(w, req)
	require.Equal(ts.T(), http.StatusRequestEntityTooLarge, w.Code)
	require.Equal(ts.T(), ErrorCodeRequestTooLarge, w.Header().Get("x-siws-error-code"))
}

func (ts *SIWSTestSuite) TestChallengeIssuesNonce() {
	ts.withNonceStore()

	resp := ts.challenge()
	require.Equal(ts.T(), 1, ts.Store.Len())
	require.NoError(ts.T(), ts.Store.Consume(context.Background(), resp.Nonce))
}

func (ts *SIWSTestSuite) TestVerify() {
	message := ts.message("oBbLoEldZs")

	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	})
	require.True(ts.T(), resp.Valid)
	require.Empty(ts.T(), resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyMismatch() {
	message := ts.message("oBbLoEldZs")
	signature := ts.sign(message)

	tampered := ts.message("tampered00")
	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: signature},
		Message:   tampered,
		PublicKey: ts.address(),
	})
	require.False(ts.T(), resp.Valid)
	require.Empty(ts.T(), resp.Message)

	signature[0] ^= 0xff
	resp = ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: signature},
		Message:   message,
		PublicKey: ts.address(),
	})
	require.False(ts.T(), resp.Valid)
	require.Empty(ts.T(), resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyIncompleteRequests() {
	message := ts.message("oBbLoEldZs")
	signature := ts.sign(message)

	cases := []struct {
		desc    string
		body    string
		message string
	}{
		{
			desc:    "empty body",
			body:    "",
			message: msgBodyNotFound,
		},
		{
			desc:    "not json",
			body:    "signature=abc",
			message: msgBodyNotJSON,
		},
		{
			desc:    "no signature",
			body:    `{"message":"hello","publicKey":"abc"}`,
			message: msgSignatureNotFound,
		},
		{
			desc:    "signature without data",
			body:    `{"signature":{},"message":"hello","publicKey":"abc"}`,
			message: msgSignatureNotFound,
		},
		{
			desc:    "no message",
			body:    `{"signature":{"data":[1,2,3]},"publicKey":"abc"}`,
			message: msgMessageNotFound,
		},
		{
			desc:    "no public key",
			body:    `{"signature":{"data":[1,2,3]},"message":"hello"}`,
			message: msgPublicKeyNotFound,
		},
	}

	for _, c := range cases {
		ts.Run(c.desc, func() {
			resp := ts.verifyRaw([]byte(c.body))
			require.False(ts.T(), resp.Valid)
			require.Equal(ts.T(), c.message, resp.Message)
		})
	}

	ts.Run("byte out of range", func() {
		data := append([]int{}, signature...)
		data[3] = 256
		resp := ts.verify(&VerifyParams{Signature: &SignatureParams{Data: data}, Message: message, PublicKey: ts.address()})
		require.False(ts.T(), resp.Valid)
		require.Contains(ts.T(), resp.Message, "out of range")
	})

	ts.Run("short signature", func() {
		resp := ts.verify(&VerifyParams{Signature: &SignatureParams{Data: signature[:63]}, Message: message, PublicKey: ts.address()})
		require.False(ts.T(), resp.Valid)
		require.Contains(ts.T(), resp.Message, "64 bytes")
	})
}

func (ts *SIWSTestSuite) TestVerifyNonCanonicalMessage() {
	message := "Hello"
	signature := ts.sign(message)
	params := &VerifyParams{
		Signature: &SignatureParams{Data: signature},
		Message:   message,
		PublicKey: ts.address(),
	}

	resp := ts.verify(params)
	require.False(ts.T(), resp.Valid)
	require.Contains(ts.T(), resp.Message, "unable to parse message")

	ts.Config.Challenge.RequireCanonical = false
	ts.API = setupAPIForTest(ts.T(), ts.Config, nil)

	resp = ts.verify(params)
	require.True(ts.T(), resp.Valid)
}

func (ts *SIWSTestSuite) TestVerifyAddressMustMatchKey() {
	other := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{9}, ed25519.SeedSize))
	message := ts.message("oBbLoEldZs")

	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: siws.ByteValues(ed25519.Sign(other, []byte(message)))},
		Message:   message,
		PublicKey: siws.EncodePublicKey(other.Public().(ed25519.PublicKey)),
	})
	require.False(ts.T(), resp.Valid)
	require.Equal(ts.T(), siws.ErrAddressMismatch.Error(), resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyDomain() {
	ts.Config.Challenge.Domain = "example.com"
	ts.API = setupAPIForTest(ts.T(), ts.Config, nil)

	require.Equal(ts.T(), "example.com", ts.challenge().Domain)

	message := ts.message("oBbLoEldZs")
	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	})
	require.False(ts.T(), resp.Valid)
	require.Equal(ts.T(), siws.ErrDomainMismatch.Error(), resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyMaximumValidity() {
	ts.Config.Challenge.MaximumValidityDuration = time.Minute
	ts.API = setupAPIForTest(ts.T(), ts.Config, nil)

	message := ts.message("oBbLoEldZs")
	params := &VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	}
	require.True(ts.T(), ts.verify(params).Valid)

	ts.API.overrideTime = func() time.Time {
		return testNow.Add(2 * time.Minute)
	}
	resp := ts.verify(params)
	require.False(ts.T(), resp.Valid)
	require.Equal(ts.T(), siws.ErrIssuedTooLongAgo.Error(), resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyConsumesNonce() {
	ts.withNonceStore()

	challenge := ts.challenge()

	input := siws.SignInInput{
		Domain:    "solana-phantom.ratersapp.com",
		Address:   ts.address(),
		Statement: siws.String(challenge.Statement),
		Version:   siws.String(challenge.Version),
		ChainID:   siws.String(challenge.ChainID),
		Nonce:     siws.String(challenge.Nonce),
		IssuedAt:  siws.String(challenge.IssuedAt),
		Resources: challenge.Resources,
	}
	message, err := siws.ConstructMessage(input)
	require.NoError(ts.T(), err)

	params := &VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	}

	require.True(ts.T(), ts.verify(params).Valid)

	replayed := ts.verify(params)
	require.False(ts.T(), replayed.Valid)
	require.Equal(ts.T(), msgNonceNotFound, replayed.Message)
}

func (ts *SIWSTestSuite) TestVerifyUnknownNonce() {
	ts.withNonceStore()

	message := ts.message("never-issued")
	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	})
	require.False(ts.T(), resp.Valid)
	require.Equal(ts.T(), msgNonceNotFound, resp.Message)
}

func (ts *SIWSTestSuite) TestVerifyRequiresNonceWithStore() {
	ts.withNonceStore()

	input := siws.SignInInput{
		Domain:  "solana-phantom.ratersapp.com",
		Address: ts.address(),
	}
	message, err := siws.ConstructMessage(input)
	require.NoError(ts.T(), err)

	resp := ts.verify(&VerifyParams{
		Signature: &SignatureParams{Data: ts.sign(message)},
		Message:   message,
		PublicKey: ts.address(),
	})
	require.False(ts.T(), resp.Valid)
	require.Equal(ts.T(), siws.ErrMissingNonce.Error(), resp.Message)
}

func (ts *SIWSTestSuite) TestCORS() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "http://localhost/siws", nil)
	req.Header.Set("Origin", "https://solana-phantom.ratersapp.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	ts.API.handler.ServeHTTP(w, req)

	require.Equal(ts.T(), http.StatusOK, w.Code)
	assert.Equal(ts.T(), "https://solana-phantom.ratersapp.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(ts.T(), "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(ts.T(), "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(ts.T(), http.MethodPost, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(ts.T(), "content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(ts.T(), w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "http://localhost/siws", nil)
	req.Header.Set("Origin", "https://phantom.app")
	ts.API.handler.ServeHTTP(w, req)

	require.Equal(ts.T(), http.StatusOK, w.Code)
	assert.Equal(ts.T(), "https://phantom.app", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(ts.T(), "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func (ts *SIWSTestSuite) TestPlainOptions() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "http://localhost/siws", nil)
	ts.API.handler.ServeHTTP(w, req)

	require.Equal(ts.T(), http.StatusOK, w.Code)
	require.Empty(ts.T(), w.Body.String())
}
