package e2eapi

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ratersapp/siws/internal/api"
	"github.com/ratersapp/siws/internal/e2e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 7)
	}
	return ed25519.NewKeyFromSeed(seed)
}

func newInstance(t *testing.T) *Instance {
	t.Helper()
	inst, err := New(e2e.Must(e2e.Config()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func TestSignInRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	inst := newInstance(t)

	ch, err := inst.Challenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", ch.Domain)
	assert.Equal(t, "devnet", ch.ChainID)
	require.NotEmpty(t, ch.Nonce)

	params, err := SignChallenge(ch, "http://localhost:3000", testKey())
	require.NoError(t, err)

	res, err := inst.Verify(ctx, params)
	require.NoError(t, err)
	require.True(t, res.Valid, res.Message)

	t.Run("replayed message", func(t *testing.T) {
		res, err := inst.Verify(ctx, params)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("signature from another challenge", func(t *testing.T) {
		other, err := inst.Challenge(ctx)
		require.NoError(t, err)
		otherParams, err := SignChallenge(other, "", testKey())
		require.NoError(t, err)

		otherParams.Signature = params.Signature
		res, err := inst.Verify(ctx, otherParams)
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})
}

func TestNewUnknownStore(t *testing.T) {
	cfg := e2e.Must(e2e.Config())
	cfg.Nonce.Store = "etcd"

	inst, err := New(cfg)
	require.Error(t, err)
	require.Nil(t, inst)
}

func TestDo(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	inst := newInstance(t)

	t.Run("unencodable request", func(t *testing.T) {
		err := Do(ctx, http.MethodPost, inst.APIServer.URL, make(chan string), nil)
		require.ErrorContains(t, err, "json: unsupported type: chan string")
	})

	t.Run("api error", func(t *testing.T) {
		var res map[string]any
		err := Do(ctx, http.MethodGet, inst.APIServer.URL+"/404", nil, &res)
		require.ErrorContains(t, err, "404: Not found")

		var httpErr *api.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.HTTPStatus)
		assert.Equal(t, api.ErrorCodeNotFound, httpErr.ErrorCode)
	})

	t.Run("undecodable response", func(t *testing.T) {
		var res chan string
		err := Do(ctx, http.MethodGet, inst.APIServer.URL+"/health", nil, &res)
		require.ErrorContains(t, err, "json: cannot unmarshal object into Go value of type chan string")
	})

	t.Run("bad request", func(t *testing.T) {
		require.ErrorContains(t, Do(ctx, "\x01", inst.APIServer.URL, nil, nil), "net/http: invalid method")
		require.ErrorContains(t, Do(ctx, http.MethodPost, "invalid", nil, nil), "unsupported protocol")
	})
}
