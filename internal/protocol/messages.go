package protocol

// Client -> server message types.
const (
	MsgJoinGame       = "join_game"
	MsgStartGame      = "start_game"
	MsgExecuteAttack  = "execute_attack"
	MsgExecuteDefense = "execute_defense"
	MsgTimeExpired    = "time_expired"
	MsgChooseNextRole = "choose_next_role"
	MsgNextRound      = "next_round"
	MsgReplayGame     = "replay_game"
	MsgResetGame      = "reset_game"
	MsgRequestState   = "request_state"
)

// Server -> client event types.
const (
	EvtGameState          = "game_state"
	EvtPlayerJoined       = "player_joined"
	EvtPlayerDisconnected = "player_disconnected"
	EvtAttackExecuted     = "attack_executed"
	EvtRoundResult        = "round_result"
	EvtGameReset          = "game_reset"
	EvtGameReplay         = "game_replay"
	EvtNextRoundReady     = "next_round_ready"
	EvtError              = "error"
)

// ThemeRef is the shape clients send when they pass a whole theme object;
// only the id matters to the server.
type ThemeRef struct {
	ID string `json:"id"`
}

type ClientMessage struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"sessionId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Role          string    `json:"role,omitempty"`
	ThemeID       string    `json:"themeId,omitempty"`
	Theme         *ThemeRef `json:"theme,omitempty"`
	ToolID        string    `json:"toolId,omitempty"`
	IsCorrect     bool      `json:"isCorrect,omitempty"`
	TimeRemaining float64   `json:"timeRemaining,omitempty"`
}

// ResolvedThemeID returns the theme id regardless of which field the client
// used to send it.
func (m ClientMessage) ResolvedThemeID() string {
	if m.ThemeID != "" {
		return m.ThemeID
	}
	if m.Theme != nil {
		return m.Theme.ID
	}
	return ""
}
