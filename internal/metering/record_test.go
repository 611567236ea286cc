package metering

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSignIn(t *testing.T) {
	l, hook := test.NewNullLogger()
	prev := logger
	logger = l.WithField("metering", true)
	defer func() { logger = prev }()

	RecordSignIn(OutcomeValid, &SignInData{
		Address: "GQ7HPZJ7xmcxHqaR9Jm2QuLznUoYBdHvSZbZ3mBPT5Uq",
		Domain:  "solana-phantom.ratersapp.com",
		ChainID: "mainnet",
		Nonce:   "32891756",
	})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Sign in", entry.Message)
	assert.Equal(t, true, entry.Data["metering"])
	assert.Equal(t, "sign_in", entry.Data["action"])
	assert.Equal(t, "valid", entry.Data["outcome"])
	assert.Equal(t, "GQ7HPZJ7xmcxHqaR9Jm2QuLznUoYBdHvSZbZ3mBPT5Uq", entry.Data["solana_address"])
	assert.Equal(t, "solana-phantom.ratersapp.com", entry.Data["solana_domain"])
	assert.Equal(t, "mainnet", entry.Data["solana_chain_id"])
	assert.Equal(t, "32891756", entry.Data["nonce"])
	assert.NotContains(t, entry.Data, "solana_uri")
	assert.NotContains(t, entry.Data, "reason")

	RecordSignIn(OutcomeInvalid, nil)
	entry = hook.LastEntry()
	assert.Equal(t, "invalid", entry.Data["outcome"])
	assert.Len(t, hook.AllEntries(), 2)
}
