package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
)

func finishedState() engine.State {
	s := engine.NewState("AB12", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	s.Status = engine.StatusGameFinished
	s.GlobalWinnerUserID = "u1"
	s.Scores = map[string]int{"u1": 550, "u2": 250}
	s.PlayedThemes = []string{"phishing", "ransomware"}
	s.History = []engine.RoundResult{
		{
			RoundNumber: 1, ThemeID: "phishing", ThemeName: "Phishing",
			AttackerTool: "fake_email", DefenderTool: "spam_filter",
			IsCorrect: true, ResponseTimeSeconds: 5,
			ScoreGained: 250, WinnerRole: engine.RoleDefender, WinnerUserID: "u2",
		},
		{
			RoundNumber: 2, ThemeID: "ransomware", ThemeName: "Ransomware",
			AttackerTool: "crypto_locker",
			TimedOut:    true, ResponseTimeSeconds: 20,
			ScoreGained: 200, WinnerRole: engine.RoleAttacker, WinnerUserID: "u1",
		},
	}
	return s
}

func TestFromState(t *testing.T) {
	s := finishedState()
	m := FromState(s)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "AB12", m.RoomCode)
	assert.Equal(t, "u1", m.WinnerUserID)
	assert.False(t, m.Draw)
	assert.Equal(t, 2, m.TotalRounds)
	assert.Equal(t, s.Scores, m.Scores)
	assert.Equal(t, s.PlayedThemes, m.PlayedThemes)

	require.Len(t, m.Rounds, 2)
	for i, r := range m.Rounds {
		assert.Equal(t, m.ID, r.MatchID)
		assert.Equal(t, s.History[i].RoundNumber, r.RoundNumber)
		assert.Equal(t, s.History[i].ScoreGained, r.ScoreGained)
		assert.Equal(t, string(s.History[i].WinnerRole), r.WinnerRole)
	}
	assert.True(t, m.Rounds[1].TimedOut)
	assert.Empty(t, m.Rounds[1].DefenderTool)
}

func TestFromStateAssignsUniqueIDs(t *testing.T) {
	a := FromState(finishedState())
	b := FromState(finishedState())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNilStoreIsNoOp(t *testing.T) {
	var st *Store
	// Must not panic when the archive is not configured.
	st.SaveFinished(finishedState())
}
