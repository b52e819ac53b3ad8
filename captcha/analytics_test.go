package captcha_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaher/pcaptcha/captcha"
	"github.com/dmaher/pcaptcha/storage/memory"
)

func seedSession(t *testing.T, store *captcha.Store, sess *captcha.Session) {
	t.Helper()
	_, err := store.EnsureSession(sess.ID)
	require.NoError(t, err)
	require.NoError(t, store.UpdateSession(sess.ID, func(s *captcha.Session) error {
		s.Generated = sess.Generated
		s.Solved = sess.Solved
		s.Failed = sess.Failed
		s.Attempts = sess.Attempts
		return nil
	}))
}

func resolvedAttempt(presented time.Time, taken float64, success bool) captcha.Attempt {
	completed := presented.Add(time.Duration(taken * float64(time.Second)))
	return captcha.Attempt{
		ChallengeID: "c",
		PresentedAt: presented,
		CompletedAt: &completed,
		Success:     &success,
		TimeTaken:   taken,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	store := captcha.NewStore(memory.NewRepository())
	sum, err := captcha.NewAnalytics(store).Summarize()
	require.NoError(t, err)

	assert.Zero(t, sum.TotalSessions)
	assert.Zero(t, sum.AvgGeneratedPerSession)
	assert.Zero(t, sum.AvgSolvedPerSession)
	assert.Nil(t, sum.MostCommonGenerationHour)
	assert.Nil(t, sum.MostCommonSolveHour)
	assert.Nil(t, sum.AvgTimeToSolve)
	assert.Nil(t, sum.AvgTimeToFail)
}

func TestSummarizeAverages(t *testing.T) {
	store := captcha.NewStore(memory.NewRepository())
	at := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	seedSession(t, store, &captcha.Session{
		ID: "a", Generated: 4, Solved: 2, Failed: 1,
		Attempts: []captcha.Attempt{
			resolvedAttempt(at, 2.0, true),
			resolvedAttempt(at, 4.0, true),
			resolvedAttempt(at, 6.0, false),
			{ChallengeID: "c", PresentedAt: at}, // abandoned
		},
	})
	seedSession(t, store, &captcha.Session{
		ID: "b", Generated: 2, Solved: 0, Failed: 1,
		Attempts: []captcha.Attempt{
			resolvedAttempt(at, 10.0, false),
			{ChallengeID: "c", PresentedAt: at},
		},
	})

	sum, err := captcha.NewAnalytics(store).Summarize()
	require.NoError(t, err)

	assert.Equal(t, 2, sum.TotalSessions)
	assert.Equal(t, 6, sum.TotalGenerated)
	assert.Equal(t, 2, sum.TotalSolved)
	assert.Equal(t, 2, sum.TotalFailed)

	assert.InDelta(t, 3.0, sum.AvgGeneratedPerSession, 0.001)
	assert.InDelta(t, 1.0, sum.AvgRegeneratedPerSession, 0.001) // (6-4)/2
	assert.InDelta(t, 1.0, sum.AvgSolvedPerSession, 0.001)
	assert.InDelta(t, 1.0, sum.AvgFailedPerSession, 0.001)

	require.NotNil(t, sum.AvgTimeToSolve)
	assert.InDelta(t, 3.0, *sum.AvgTimeToSolve, 0.001)
	require.NotNil(t, sum.AvgTimeToFail)
	assert.InDelta(t, 8.0, *sum.AvgTimeToFail, 0.001)
}

func TestSummarizeHourModes(t *testing.T) {
	store := captcha.NewStore(memory.NewRepository())
	at := func(hour int) time.Time {
		return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
	}

	seedSession(t, store, &captcha.Session{
		ID: "a", Generated: 3, Solved: 2, Failed: 0,
		Attempts: []captcha.Attempt{
			resolvedAttempt(at(9), 1.0, true),
			resolvedAttempt(at(9), 1.0, true),
			{ChallengeID: "c", PresentedAt: at(13)},
		},
	})

	sum, err := captcha.NewAnalytics(store).Summarize()
	require.NoError(t, err)

	require.NotNil(t, sum.MostCommonGenerationHour)
	assert.Equal(t, 9, *sum.MostCommonGenerationHour)
	require.NotNil(t, sum.MostCommonSolveHour)
	assert.Equal(t, 9, *sum.MostCommonSolveHour)
	require.NotNil(t, sum.MostCommonRegenerationHour)
	assert.Equal(t, 13, *sum.MostCommonRegenerationHour)
	assert.Nil(t, sum.MostCommonFailHour)
}

// Hour-mode ties keep the first hour encountered in ledger order.
func TestSummarizeHourModeTieBreak(t *testing.T) {
	store := captcha.NewStore(memory.NewRepository())
	at := func(hour int) time.Time {
		return time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
	}

	seedSession(t, store, &captcha.Session{
		ID: "a", Generated: 2,
		Attempts: []captcha.Attempt{
			{ChallengeID: "c", PresentedAt: at(17)},
			{ChallengeID: "c", PresentedAt: at(3)},
		},
	})

	sum, err := captcha.NewAnalytics(store).Summarize()
	require.NoError(t, err)
	require.NotNil(t, sum.MostCommonGenerationHour)
	assert.Equal(t, 17, *sum.MostCommonGenerationHour)
}
