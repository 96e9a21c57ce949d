package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
)

// Match archives one finished game. Live session state is never persisted;
// only completed matches land here, for after-the-fact reporting.
type Match struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	RoomCode     string         `gorm:"index;not null" json:"roomCode"`
	WinnerUserID string         `json:"winnerUserId"`
	Draw         bool           `json:"draw"`
	TotalRounds  int            `json:"totalRounds"`
	Scores       map[string]int `gorm:"serializer:json;type:jsonb" json:"scores"`
	PlayedThemes []string       `gorm:"serializer:json;type:jsonb" json:"playedThemes"`
	FinishedAt   time.Time      `gorm:"autoCreateTime" json:"finishedAt"`
	Rounds       []Round        `gorm:"foreignKey:MatchID" json:"rounds"`
}

type Round struct {
	ID                  uint    `gorm:"primaryKey" json:"-"`
	MatchID             string  `gorm:"index;not null" json:"-"`
	RoundNumber         int     `json:"roundNumber"`
	ThemeID             string  `json:"themeId"`
	ThemeName           string  `json:"themeName"`
	AttackerTool        string  `json:"attackerTool"`
	DefenderTool        string  `json:"defenderTool,omitempty"`
	IsCorrect           bool    `json:"isCorrect"`
	TimedOut            bool    `json:"timedOut"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	ScoreGained         int     `json:"scoreGained"`
	WinnerRole          string  `json:"winnerRole"`
	WinnerUserID        string  `json:"winnerUserId"`
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	if err := db.AutoMigrate(&Match{}, &Round{}); err != nil {
		return nil, fmt.Errorf("migrate report store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// FromState maps a finished session to its archive rows.
func FromState(s engine.State) Match {
	m := Match{
		ID:           uuid.NewString(),
		RoomCode:     s.RoomCode,
		WinnerUserID: s.GlobalWinnerUserID,
		Draw:         s.Draw,
		TotalRounds:  len(s.History),
		Scores:       s.Scores,
		PlayedThemes: s.PlayedThemes,
	}
	for _, r := range s.History {
		m.Rounds = append(m.Rounds, Round{
			MatchID:             m.ID,
			RoundNumber:         r.RoundNumber,
			ThemeID:             r.ThemeID,
			ThemeName:           r.ThemeName,
			AttackerTool:        r.AttackerTool,
			DefenderTool:        r.DefenderTool,
			IsCorrect:           r.IsCorrect,
			TimedOut:            r.TimedOut,
			ResponseTimeSeconds: r.ResponseTimeSeconds,
			ScoreGained:         r.ScoreGained,
			WinnerRole:          string(r.WinnerRole),
			WinnerUserID:        r.WinnerUserID,
		})
	}
	return m
}

// SaveFinished archives a finished match. Safe to call on a nil store, which
// makes the archive strictly optional wiring.
func (st *Store) SaveFinished(s engine.State) {
	if st == nil {
		return
	}
	m := FromState(s)
	if err := st.db.Create(&m).Error; err != nil {
		st.log.Warn("failed to archive match",
			zap.String("room", s.RoomCode),
			zap.Error(err))
		return
	}
	st.log.Info("match archived",
		zap.String("room", s.RoomCode),
		zap.Int("rounds", m.TotalRounds))
}
