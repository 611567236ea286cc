// Package e2eapi runs the API on an httptest server and talks to it the way
// a wallet front end would.
package e2eapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/ratersapp/siws/internal/api"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/nonces"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/ratersapp/siws/internal/utilities/siws"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

type Instance struct {
	Config    *conf.GlobalConfiguration
	Nonces    nonces.Store
	APIServer *httptest.Server
}

// New starts an API for cfg, with the nonce store cfg selects.
func New(cfg *conf.GlobalConfiguration) (*Instance, error) {
	store, err := nonces.New(context.Background(), cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("e2eapi: nonce store: %w", err)
	}

	version := utilities.Version
	if version == "" {
		version = "1"
	}

	return &Instance{
		Config:    cfg,
		Nonces:    store,
		APIServer: httptest.NewServer(api.NewAPIWithVersion(cfg, nil, store, version)),
	}, nil
}

// Close stops the server, then releases the nonce store.
func (o *Instance) Close() error {
	o.APIServer.Close()
	if o.Nonces != nil {
		return o.Nonces.Close()
	}
	return nil
}

// Challenge requests a new challenge from the instance.
func (o *Instance) Challenge(ctx context.Context) (*api.ChallengeResponse, error) {
	res := new(api.ChallengeResponse)
	if err := Do(ctx, http.MethodGet, o.APIServer.URL+"/siws", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Verify posts params to the instance.
func (o *Instance) Verify(ctx context.Context, params *api.VerifyParams) (*api.VerifyResponse, error) {
	res := new(api.VerifyResponse)
	if err := Do(ctx, http.MethodPost, o.APIServer.URL+"/siws", params, res); err != nil {
		return nil, err
	}
	return res, nil
}

// SignChallenge builds the message a wallet would show for ch, signs it with
// key and returns the verification request for it. An empty uri leaves the
// URI line out.
func SignChallenge(ch *api.ChallengeResponse, uri string, key ed25519.PrivateKey) (*api.VerifyParams, error) {
	address := siws.EncodePublicKey(key.Public().(ed25519.PublicKey))

	input := siws.SignInInput{
		Domain:    ch.Domain,
		Address:   address,
		Statement: siws.String(ch.Statement),
		Version:   siws.String(ch.Version),
		ChainID:   siws.String(ch.ChainID),
		Nonce:     siws.String(ch.Nonce),
		IssuedAt:  siws.String(ch.IssuedAt),
		Resources: ch.Resources,
	}
	if uri != "" {
		input.URI = siws.String(uri)
	}

	msg, err := siws.ConstructMessage(input)
	if err != nil {
		return nil, err
	}

	return &api.VerifyParams{
		Signature: &api.SignatureParams{Data: siws.ByteValues(ed25519.Sign(key, []byte(msg)))},
		Message:   msg,
		PublicKey: address,
	}, nil
}

// Do sends req as JSON and decodes the response into res. Error responses
// are returned as *api.HTTPError.
func Do(ctx context.Context, method, url string, req, res any) error {
	var body io.Reader
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	data, err := do(ctx, method, url, body)
	if err != nil || data == nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(httpRes.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if httpRes.StatusCode < http.StatusBadRequest {
		return data, nil
	}

	apiErr := new(api.HTTPError)
	if err := json.Unmarshal(data, apiErr); err != nil {
		return nil, fmt.Errorf("e2eapi: %d response is not an API error: %w", httpRes.StatusCode, err)
	}
	apiErr.HTTPStatus = httpRes.StatusCode
	return nil, apiErr
}
