package models

import (
	"testing"
	"time"

	"github.com/ratersapp/siws/internal/storage"
	"github.com/ratersapp/siws/internal/storage/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestChallengeExpiry(t *testing.T) {
	now := time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC)

	c, err := NewChallenge("abc", "127.0.0.1", now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, c.ID.IsNil())
	require.False(t, c.HasExpired(now))
	require.True(t, c.HasExpired(now.Add(time.Minute)))
	require.False(t, c.IsConsumed())
}

func TestIsNotFoundError(t *testing.T) {
	require.True(t, IsNotFoundError(ChallengeNotFoundError{}))
	require.True(t, IsNotFoundError(&ChallengeNotFoundError{}))
	require.False(t, IsNotFoundError(ChallengeAlreadyExistsError{}))
	require.False(t, IsNotFoundError(nil))
}

type ChallengeTestSuite struct {
	suite.Suite
	db *storage.Connection
}

func (ts *ChallengeTestSuite) SetupTest() {
	TruncateAll(ts.db)
}

func TestChallenge(t *testing.T) {
	_, conn := test.SetupDBConnection(t)

	ts := &ChallengeTestSuite{
		db: conn,
	}

	suite.Run(t, ts)
}

func (ts *ChallengeTestSuite) TestCreateAndFind() {
	c, err := NewChallenge("0123456789abcdef", "10.0.0.1", time.Now().Add(time.Minute))
	require.NoError(ts.T(), err)
	require.NoError(ts.T(), c.Create(ts.db))

	found, err := FindChallengeByNonce(ts.db, "0123456789abcdef")
	require.NoError(ts.T(), err)
	require.Equal(ts.T(), c.ID, found.ID)
	require.Equal(ts.T(), "10.0.0.1", found.IPAddress)

	duplicate, err := NewChallenge("0123456789abcdef", "10.0.0.2", time.Now().Add(time.Minute))
	require.NoError(ts.T(), err)
	require.ErrorIs(ts.T(), duplicate.Create(ts.db), ChallengeAlreadyExistsError{})

	_, err = FindChallengeByNonce(ts.db, "unknown")
	require.True(ts.T(), IsNotFoundError(err))
}

func (ts *ChallengeTestSuite) TestConsumeOnce() {
	now := time.Now()

	c, err := NewChallenge("once", "10.0.0.1", now.Add(time.Minute))
	require.NoError(ts.T(), err)
	require.NoError(ts.T(), c.Create(ts.db))

	require.NoError(ts.T(), ConsumeChallenge(ts.db, "once", now))

	err = ConsumeChallenge(ts.db, "once", now)
	require.True(ts.T(), IsNotFoundError(err))

	found, err := FindChallengeByNonce(ts.db, "once")
	require.NoError(ts.T(), err)
	require.True(ts.T(), found.IsConsumed())
}

func (ts *ChallengeTestSuite) TestConsumeExpired() {
	now := time.Now()

	c, err := NewChallenge("stale", "10.0.0.1", now.Add(-time.Second))
	require.NoError(ts.T(), err)
	require.NoError(ts.T(), c.Create(ts.db))

	err = ConsumeChallenge(ts.db, "stale", now)
	require.True(ts.T(), IsNotFoundError(err))

	deleted, err := DeleteExpiredChallenges(ts.db, now)
	require.NoError(ts.T(), err)
	require.Equal(ts.T(), 1, deleted)
}
