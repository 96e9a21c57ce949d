package engine

import (
	"maps"
	"slices"
	"time"
)

type Player struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	Connected bool   `json:"connected"`
}

// RoundResult is immutable once appended to History.
type RoundResult struct {
	RoundNumber         int     `json:"roundNumber"`
	ThemeID             string  `json:"themeId"`
	ThemeName           string  `json:"themeName"`
	AttackerTool        string  `json:"attackerTool"`
	DefenderTool        string  `json:"defenderTool,omitempty"`
	IsCorrect           bool    `json:"isCorrect"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	ScoreGained         int     `json:"scoreGained"`
	WinnerRole          Role    `json:"winnerRole"`
	WinnerUserID        string  `json:"winnerUserId"`
	TimedOut            bool    `json:"timedOut"`
}

type State struct {
	RoomCode           string
	Status             Status
	Players            map[Role]Player
	ActiveThemeID      string
	AttackerTool       string
	DefenderTool       string
	// RoundAttackerID is pinned when the round starts, so a breach or
	// timeout still credits the right identity even if the attacker's seat
	// was released mid-round.
	RoundAttackerID string
	RoundStartedAt  time.Time
	RoundDuration      time.Duration
	RoundNumber        int
	Streak             int
	Scores             map[string]int
	PlayedThemes       []string
	ThemeWinnerUserID  string
	GlobalWinnerUserID string
	Draw               bool
	History            []RoundResult
	CreatedAt          time.Time
	LastActivityAt     time.Time
}

func NewState(code string, now time.Time) State {
	return State{
		RoomCode:       code,
		Status:         StatusLobby,
		Players:        map[Role]Player{},
		Scores:         map[string]int{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func (s State) clone() State {
	ns := s
	ns.Players = maps.Clone(s.Players)
	ns.Scores = maps.Clone(s.Scores)
	ns.PlayedThemes = slices.Clone(s.PlayedThemes)
	ns.History = slices.Clone(s.History)
	return ns
}

func (s State) roleOf(userID string) (Role, bool) {
	for role, p := range s.Players {
		if p.UserID == userID {
			return role, true
		}
	}
	return "", false
}

// Remaining is the elapsed-adjusted time left in the current round. A
// reconnecting client gets this, never the full duration.
func (s State) Remaining(now time.Time) time.Duration {
	if s.Status != StatusAttacking {
		return 0
	}
	left := s.RoundDuration - now.Sub(s.RoundStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (s *State) resetRoundFields() {
	s.ActiveThemeID = ""
	s.AttackerTool = ""
	s.DefenderTool = ""
	s.RoundAttackerID = ""
	s.RoundStartedAt = time.Time{}
	s.RoundDuration = 0
}
