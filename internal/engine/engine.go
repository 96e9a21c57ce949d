package engine

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/mfcosta-games/cyber-siege-backend/internal/catalog"
)

var ErrRoomFull = errors.New("role already bound to another player")
var ErrAwaitingHost = errors.New("no host seated in this room yet")
var ErrUnknownRole = errors.New("unknown role")
var ErrUnknownTheme = errors.New("unknown theme")
var ErrInvalidThemeReselection = errors.New("theme already played")
var ErrUnauthorizedSelection = errors.New("only the theme winner may select")
var ErrStaleAction = errors.New("action targets an already-resolved round")
var ErrWrongPhase = errors.New("action not valid in the current phase")
var ErrNotYourRole = errors.New("action not allowed for this role")
var ErrDeadlineNotReached = errors.New("round deadline has not passed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Role string

const (
	RoleAttacker Role = "attacker"
	RoleDefender Role = "defender"
)

func (r Role) Valid() bool { return r == RoleAttacker || r == RoleDefender }

func (r Role) Complement() Role {
	if r == RoleAttacker {
		return RoleDefender
	}
	return RoleAttacker
}

type Status string

const (
	StatusLobby          Status = "LOBBY"
	StatusReady          Status = "READY"
	StatusAttacking      Status = "ATTACKING"
	StatusDefended       Status = "DEFENDED"
	StatusBreached       Status = "BREACHED"
	StatusThemeCompleted Status = "THEME_COMPLETED"
	StatusGameFinished   Status = "GAME_FINISHED"
)

type CommandType string

const (
	CmdJoin             CommandType = "Join"
	CmdStartGame        CommandType = "StartGame"
	CmdAttack           CommandType = "Attack"
	CmdDefense          CommandType = "Defense"
	CmdTimeExpired      CommandType = "TimeExpired"
	CmdNextRound        CommandType = "NextRound"
	CmdChooseNextRole   CommandType = "ChooseNextRole"
	CmdReplay           CommandType = "Replay"
	CmdReset            CommandType = "Reset"
	CmdMarkDisconnected CommandType = "MarkDisconnected"
	CmdReleaseSeat      CommandType = "ReleaseSeat"
)

// Command is one client (or timer) action against a session. Now is stamped
// by the session actor so the engine itself never reads a clock.
type Command struct {
	Type          CommandType
	UserID        string
	Role          Role
	ThemeID       string
	ToolID        string
	IsCorrect     bool
	TimeRemaining float64
	Now           time.Time
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtPlayerDisconnected EventType = "PlayerDisconnected"
	EvtSeatReleased       EventType = "SeatReleased"
	EvtAttackExecuted     EventType = "AttackExecuted"
	EvtRoundResolved      EventType = "RoundResolved"
	EvtThemeCompleted     EventType = "ThemeCompleted"
	EvtGameFinished       EventType = "GameFinished"
	EvtRolesAssigned      EventType = "RolesAssigned"
	EvtNextRoundReady     EventType = "NextRoundReady"
	EvtGameReset          EventType = "GameReset"
	EvtGameReplay         EventType = "GameReplay"
)

type Event struct {
	Type   EventType
	Role   Role
	UserID string
	ToolID string
	Result *RoundResult
}

// Engine applies commands to session state. Apply never mutates the input
// state: every change happens on a clone, and errors leave state untouched.
type Engine struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) Engine { return Engine{cat: cat} }

func (e Engine) CatalogSize() int { return e.cat.Size() }

func (e Engine) Apply(s State, cmd Command) ([]Event, State, error) {
	events, ns, err := e.apply(s, cmd)
	if err != nil {
		return nil, s, err
	}
	if !cmd.Now.IsZero() {
		ns.LastActivityAt = cmd.Now
	}
	return events, ns, nil
}

func (e Engine) apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return e.applyJoin(s, cmd)
	case CmdStartGame:
		return e.applyStartGame(s, cmd)
	case CmdAttack:
		return e.applyAttack(s, cmd)
	case CmdDefense:
		return e.applyDefense(s, cmd)
	case CmdTimeExpired:
		return e.applyTimeExpired(s, cmd)
	case CmdNextRound:
		return e.applyNextRound(s, cmd)
	case CmdChooseNextRole:
		return e.applyChooseNextRole(s, cmd)
	case CmdReplay:
		return e.applyReplay(s)
	case CmdReset:
		return e.applyReset(s)
	case CmdMarkDisconnected:
		return applyMarkDisconnected(s, cmd)
	case CmdReleaseSeat:
		return applyReleaseSeat(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func (e Engine) applyJoin(s State, cmd Command) ([]Event, State, error) {
	// Reconnection: the same identity rebinds its existing seat and nothing
	// else moves. History and scores must be identical afterwards.
	if role, seated := s.roleOf(cmd.UserID); seated {
		ns := s.clone()
		p := ns.Players[role]
		p.Connected = true
		ns.Players[role] = p
		return []Event{{Type: EvtPlayerJoined, Role: role, UserID: cmd.UserID}}, ns, nil
	}

	role := cmd.Role
	switch {
	case role == "":
		if len(s.Players) == 0 {
			return nil, s, ErrAwaitingHost
		}
		if _, taken := s.Players[RoleAttacker]; !taken {
			role = RoleAttacker
		} else if _, taken := s.Players[RoleDefender]; !taken {
			role = RoleDefender
		} else {
			return nil, s, ErrRoomFull
		}
	case !role.Valid():
		return nil, s, ErrUnknownRole
	default:
		if _, taken := s.Players[role]; taken {
			return nil, s, ErrRoomFull
		}
	}

	ns := s.clone()
	ns.Players[role] = Player{UserID: cmd.UserID, Role: role, Connected: true}
	events := []Event{{Type: EvtPlayerJoined, Role: role, UserID: cmd.UserID}}

	if cmd.ThemeID != "" && ns.Status == StatusLobby {
		if err := e.selectTheme(&ns, cmd.ThemeID); err != nil {
			return nil, s, err
		}
	}
	events = append(events, readyCheck(&ns)...)
	return events, ns, nil
}

// applyStartGame is the host shortcut: seat the caller if needed, pick the
// theme, and move to READY once both seats are filled.
func (e Engine) applyStartGame(s State, cmd Command) ([]Event, State, error) {
	switch s.Status {
	case StatusLobby:
	case StatusThemeCompleted:
		if cmd.UserID != s.ThemeWinnerUserID {
			return nil, s, ErrUnauthorizedSelection
		}
	default:
		return nil, s, ErrWrongPhase
	}

	ns := s.clone()
	var events []Event

	if role, seated := ns.roleOf(cmd.UserID); seated {
		p := ns.Players[role]
		p.Connected = true
		ns.Players[role] = p
	} else {
		role := cmd.Role
		if role == "" {
			role = RoleAttacker
		}
		if !role.Valid() {
			return nil, s, ErrUnknownRole
		}
		if _, taken := ns.Players[role]; taken {
			return nil, s, ErrRoomFull
		}
		ns.Players[role] = Player{UserID: cmd.UserID, Role: role, Connected: true}
		events = append(events, Event{Type: EvtPlayerJoined, Role: role, UserID: cmd.UserID})
	}

	if ns.Status == StatusThemeCompleted {
		ns.resetRoundFields()
		ns.Status = StatusLobby
	}
	if cmd.ThemeID != "" {
		if err := e.selectTheme(&ns, cmd.ThemeID); err != nil {
			return nil, s, err
		}
	}
	events = append(events, readyCheck(&ns)...)
	return events, ns, nil
}

func (e Engine) applyAttack(s State, cmd Command) ([]Event, State, error) {
	switch s.Status {
	case StatusReady:
	case StatusAttacking:
		// Duplicate attack for a round already in flight: no-op, not a new round.
		return nil, s, ErrStaleAction
	default:
		return nil, s, ErrWrongPhase
	}
	attacker, ok := s.Players[RoleAttacker]
	if !ok || attacker.UserID != cmd.UserID {
		return nil, s, ErrNotYourRole
	}

	ns := s.clone()
	ns.AttackerTool = cmd.ToolID
	ns.DefenderTool = ""
	ns.RoundAttackerID = attacker.UserID
	ns.RoundStartedAt = cmd.Now
	ns.RoundNumber++
	ns.Status = StatusAttacking
	return []Event{{Type: EvtAttackExecuted, Role: RoleAttacker, UserID: cmd.UserID, ToolID: cmd.ToolID}}, ns, nil
}

func (e Engine) applyDefense(s State, cmd Command) ([]Event, State, error) {
	switch s.Status {
	case StatusAttacking:
	case StatusDefended, StatusBreached:
		return nil, s, ErrStaleAction
	default:
		return nil, s, ErrWrongPhase
	}
	defender, ok := s.Players[RoleDefender]
	if !ok || defender.UserID != cmd.UserID {
		return nil, s, ErrNotYourRole
	}

	elapsed := cmd.Now.Sub(s.RoundStartedAt)
	if elapsed > s.RoundDuration {
		// The server-side deadline already passed; its timeout resolution is
		// authoritative over this late submission.
		return nil, s, ErrStaleAction
	}

	maxTime := s.RoundDuration.Seconds()
	// Clients report their own countdown; never let it exceed what the
	// server-owned clock says is actually left.
	remaining := math.Min(cmd.TimeRemaining, maxTime-elapsed.Seconds())
	if remaining < 0 {
		remaining = 0
	}

	correct := cmd.IsCorrect
	if c, known := e.cat.DefenseCorrect(s.ActiveThemeID, cmd.ToolID); known {
		correct = c
	}

	ns := s.clone()
	ns.DefenderTool = cmd.ToolID
	res := RoundResult{
		RoundNumber:         ns.RoundNumber,
		ThemeID:             ns.ActiveThemeID,
		ThemeName:           e.themeName(ns.ActiveThemeID),
		AttackerTool:        ns.AttackerTool,
		DefenderTool:        cmd.ToolID,
		IsCorrect:           correct,
		ResponseTimeSeconds: maxTime - remaining,
	}
	if correct {
		res.ScoreGained = Score(remaining, maxTime, true, ns.Streak)
		res.WinnerRole = RoleDefender
		res.WinnerUserID = defender.UserID
		ns.Streak++
		ns.Status = StatusDefended
	} else {
		res.ScoreGained = BreachBonus
		res.WinnerRole = RoleAttacker
		res.WinnerUserID = s.RoundAttackerID
		ns.Streak = 0
		ns.Status = StatusBreached
	}
	ns.Scores[res.WinnerUserID] += res.ScoreGained
	ns.History = append(ns.History, res)
	return []Event{{Type: EvtRoundResolved, Result: &res}}, ns, nil
}

func (e Engine) applyTimeExpired(s State, cmd Command) ([]Event, State, error) {
	switch s.Status {
	case StatusAttacking:
	case StatusDefended, StatusBreached:
		return nil, s, ErrStaleAction
	default:
		return nil, s, ErrWrongPhase
	}
	if cmd.Now.Before(s.RoundStartedAt.Add(s.RoundDuration)) {
		// Clients may announce expiry early; only the server clock decides.
		return nil, s, ErrDeadlineNotReached
	}

	ns := s.clone()
	res := RoundResult{
		RoundNumber:         ns.RoundNumber,
		ThemeID:             ns.ActiveThemeID,
		ThemeName:           e.themeName(ns.ActiveThemeID),
		AttackerTool:        ns.AttackerTool,
		ResponseTimeSeconds: s.RoundDuration.Seconds(),
		ScoreGained:         TimeoutBonus,
		WinnerRole:          RoleAttacker,
		WinnerUserID:        ns.RoundAttackerID,
		TimedOut:            true,
	}
	ns.Streak = 0
	ns.Status = StatusBreached
	ns.Scores[res.WinnerUserID] += res.ScoreGained
	ns.History = append(ns.History, res)
	return []Event{{Type: EvtRoundResolved, Result: &res}}, ns, nil
}

func (e Engine) applyNextRound(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusDefended && s.Status != StatusBreached {
		return nil, s, ErrWrongPhase
	}
	ns := s.clone()
	ns.ThemeWinnerUserID = themeWinner(ns, ns.ActiveThemeID)
	if !slices.Contains(ns.PlayedThemes, ns.ActiveThemeID) {
		ns.PlayedThemes = append(ns.PlayedThemes, ns.ActiveThemeID)
	}
	if len(ns.PlayedThemes) >= e.cat.Size() {
		ns.Status = StatusGameFinished
		ns.GlobalWinnerUserID, ns.Draw = globalWinner(ns.Scores)
		return []Event{{Type: EvtGameFinished, UserID: ns.GlobalWinnerUserID}}, ns, nil
	}
	ns.Status = StatusThemeCompleted
	return []Event{{Type: EvtThemeCompleted, UserID: ns.ThemeWinnerUserID}}, ns, nil
}

func (e Engine) applyChooseNextRole(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusThemeCompleted {
		return nil, s, ErrWrongPhase
	}
	if cmd.UserID != s.ThemeWinnerUserID {
		return nil, s, ErrUnauthorizedSelection
	}
	if !cmd.Role.Valid() {
		return nil, s, ErrUnknownRole
	}

	ns := s.clone()
	reassigned := make(map[Role]Player, len(ns.Players))
	for _, p := range ns.Players {
		if p.UserID == cmd.UserID {
			p.Role = cmd.Role
		} else {
			p.Role = cmd.Role.Complement()
		}
		reassigned[p.Role] = p
	}
	ns.Players = reassigned
	ns.resetRoundFields()
	ns.Status = StatusLobby
	return []Event{{Type: EvtRolesAssigned, Role: cmd.Role, UserID: cmd.UserID}}, ns, nil
}

func (e Engine) applyReplay(s State) ([]Event, State, error) {
	ns := s.clone()
	ns.resetRoundFields()
	ns.Streak = 0
	ns.PlayedThemes = nil
	ns.ThemeWinnerUserID = ""
	ns.GlobalWinnerUserID = ""
	ns.Draw = false
	ns.Status = StatusLobby
	return []Event{{Type: EvtGameReplay}}, ns, nil
}

func (e Engine) applyReset(s State) ([]Event, State, error) {
	ns := s.clone()
	ns.resetRoundFields()
	ns.Scores = map[string]int{}
	ns.History = nil
	ns.PlayedThemes = nil
	ns.RoundNumber = 0
	ns.Streak = 0
	ns.ThemeWinnerUserID = ""
	ns.GlobalWinnerUserID = ""
	ns.Draw = false
	ns.Status = StatusLobby
	return []Event{{Type: EvtGameReset}}, ns, nil
}

func applyMarkDisconnected(s State, cmd Command) ([]Event, State, error) {
	role, seated := s.roleOf(cmd.UserID)
	if !seated || !s.Players[role].Connected {
		return nil, s, nil
	}
	ns := s.clone()
	p := ns.Players[role]
	p.Connected = false
	ns.Players[role] = p
	return []Event{{Type: EvtPlayerDisconnected, Role: role, UserID: cmd.UserID}}, ns, nil
}

func applyReleaseSeat(s State, cmd Command) ([]Event, State, error) {
	role, seated := s.roleOf(cmd.UserID)
	if !seated || s.Players[role].Connected {
		return nil, s, nil
	}
	ns := s.clone()
	delete(ns.Players, role)
	if ns.Status == StatusReady {
		ns.Status = StatusLobby
	}
	return []Event{{Type: EvtSeatReleased, Role: role, UserID: cmd.UserID}}, ns, nil
}

func (e Engine) selectTheme(ns *State, themeID string) error {
	t, ok := e.cat.Theme(themeID)
	if !ok {
		return ErrUnknownTheme
	}
	if slices.Contains(ns.PlayedThemes, themeID) {
		return ErrInvalidThemeReselection
	}
	ns.ActiveThemeID = themeID
	ns.RoundDuration = time.Duration(t.DurationSeconds) * time.Second
	return nil
}

func (e Engine) themeName(themeID string) string {
	if t, ok := e.cat.Theme(themeID); ok {
		return t.Name
	}
	return themeID
}

func readyCheck(ns *State) []Event {
	if ns.Status == StatusLobby && ns.ActiveThemeID != "" && len(ns.Players) == 2 {
		ns.Status = StatusReady
		return []Event{{Type: EvtNextRoundReady}}
	}
	return nil
}
