package protocol

import (
	"time"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
)

type PlayersPresence struct {
	Attacker bool `json:"attacker"`
	Defender bool `json:"defender"`
}

// Snapshot is the full session state pushed to clients after every committed
// mutation. Applying it is idempotent; clients replace local state wholesale.
type Snapshot struct {
	SessionID          string               `json:"sessionId"`
	GameStatus         engine.Status        `json:"gameStatus"`
	ActiveThemeID      string               `json:"activeThemeId,omitempty"`
	AttackerTool       string               `json:"attackerTool,omitempty"`
	DefenderTool       string               `json:"defenderTool,omitempty"`
	RoundNumber        int                  `json:"roundNumber"`
	Streak             int                  `json:"streak"`
	StartTime          int64                `json:"startTime,omitempty"`
	DurationSeconds    float64              `json:"durationSeconds,omitempty"`
	RemainingSeconds   float64              `json:"remainingSeconds,omitempty"`
	AttackerScore      int                  `json:"attackerScore"`
	DefenderScore      int                  `json:"defenderScore"`
	ScoresByUserID     map[string]int       `json:"scoresByUserId"`
	PlayedThemes       []string             `json:"playedThemes"`
	ThemeWinnerUserID  string               `json:"themeWinnerUserId,omitempty"`
	GlobalWinnerUserID string               `json:"globalWinnerUserId,omitempty"`
	Draw               bool                 `json:"draw,omitempty"`
	FinalScores        map[string]int       `json:"finalScores,omitempty"`
	History            []engine.RoundResult `json:"history"`
	Players            PlayersPresence      `json:"players"`
}

type ServerMessage struct {
	Type         string              `json:"type"`
	State        *Snapshot           `json:"state,omitempty"`
	Role         engine.Role         `json:"role,omitempty"`
	ConnectionID string              `json:"connectionId,omitempty"`
	ToolID       string              `json:"toolId,omitempty"`
	RoundNumber  int                 `json:"roundNumber,omitempty"`
	StartTime    int64               `json:"startTime,omitempty"`
	Result       *engine.RoundResult `json:"result,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// NewSnapshot renders state as of now. Remaining time is elapsed-adjusted so
// a reconnecting client never gets the full round duration back.
func NewSnapshot(s engine.State, now time.Time) *Snapshot {
	snap := &Snapshot{
		SessionID:          s.RoomCode,
		GameStatus:         s.Status,
		ActiveThemeID:      s.ActiveThemeID,
		AttackerTool:       s.AttackerTool,
		DefenderTool:       s.DefenderTool,
		RoundNumber:        s.RoundNumber,
		Streak:             s.Streak,
		DurationSeconds:    s.RoundDuration.Seconds(),
		ScoresByUserID:     s.Scores,
		PlayedThemes:       s.PlayedThemes,
		ThemeWinnerUserID:  s.ThemeWinnerUserID,
		GlobalWinnerUserID: s.GlobalWinnerUserID,
		Draw:               s.Draw,
		History:            s.History,
	}
	if !s.RoundStartedAt.IsZero() {
		snap.StartTime = s.RoundStartedAt.UnixMilli()
	}
	if s.Status == engine.StatusAttacking {
		snap.RemainingSeconds = s.Remaining(now).Seconds()
	}
	if a, ok := s.Players[engine.RoleAttacker]; ok {
		snap.Players.Attacker = a.Connected
		snap.AttackerScore = s.Scores[a.UserID]
	}
	if d, ok := s.Players[engine.RoleDefender]; ok {
		snap.Players.Defender = d.Connected
		snap.DefenderScore = s.Scores[d.UserID]
	}
	if s.Status == engine.StatusGameFinished {
		snap.FinalScores = s.Scores
	}
	return snap
}
