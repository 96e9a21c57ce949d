package ws

import (
	"testing"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/protocol"
)

func TestJoinCommand(t *testing.T) {
	cmd := joinCommand(protocol.ClientMessage{
		Type:   protocol.MsgJoinGame,
		UserID: "u1",
		Role:   "attacker",
		Theme:  &protocol.ThemeRef{ID: "phishing"},
	})
	if cmd.Type != engine.CmdJoin || cmd.UserID != "u1" || cmd.Role != engine.RoleAttacker {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if cmd.ThemeID != "phishing" {
		t.Fatalf("theme object should resolve to its id, got %q", cmd.ThemeID)
	}

	cmd = joinCommand(protocol.ClientMessage{
		Type:    protocol.MsgStartGame,
		UserID:  "u1",
		ThemeID: "ransomware",
	})
	if cmd.Type != engine.CmdStartGame || cmd.ThemeID != "ransomware" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestToCommand(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.ClientMessage
		want engine.Command
		ok   bool
	}{
		{
			name: "attack",
			msg:  protocol.ClientMessage{Type: protocol.MsgExecuteAttack, ToolID: "ddos_botnet"},
			want: engine.Command{Type: engine.CmdAttack, ToolID: "ddos_botnet"},
			ok:   true,
		},
		{
			name: "attack without tool",
			msg:  protocol.ClientMessage{Type: protocol.MsgExecuteAttack},
			ok:   false,
		},
		{
			name: "defense",
			msg: protocol.ClientMessage{
				Type: protocol.MsgExecuteDefense, ToolID: "firewall", IsCorrect: true, TimeRemaining: 12.5,
			},
			want: engine.Command{
				Type: engine.CmdDefense, ToolID: "firewall", IsCorrect: true, TimeRemaining: 12.5,
			},
			ok: true,
		},
		{
			name: "defense without tool",
			msg:  protocol.ClientMessage{Type: protocol.MsgExecuteDefense, IsCorrect: true},
			ok:   false,
		},
		{
			name: "time expired",
			msg:  protocol.ClientMessage{Type: protocol.MsgTimeExpired},
			want: engine.Command{Type: engine.CmdTimeExpired},
			ok:   true,
		},
		{
			name: "choose next role",
			msg:  protocol.ClientMessage{Type: protocol.MsgChooseNextRole, Role: "defender"},
			want: engine.Command{Type: engine.CmdChooseNextRole, Role: engine.RoleDefender},
			ok:   true,
		},
		{
			name: "choose next role without role",
			msg:  protocol.ClientMessage{Type: protocol.MsgChooseNextRole},
			ok:   false,
		},
		{
			name: "next round",
			msg:  protocol.ClientMessage{Type: protocol.MsgNextRound},
			want: engine.Command{Type: engine.CmdNextRound},
			ok:   true,
		},
		{
			name: "replay",
			msg:  protocol.ClientMessage{Type: protocol.MsgReplayGame},
			want: engine.Command{Type: engine.CmdReplay},
			ok:   true,
		},
		{
			name: "reset",
			msg:  protocol.ClientMessage{Type: protocol.MsgResetGame},
			want: engine.Command{Type: engine.CmdReset},
			ok:   true,
		},
		{
			name: "unknown type",
			msg:  protocol.ClientMessage{Type: "teleport"},
			ok:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toCommand(tc.msg)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("command = %+v, want %+v", got, tc.want)
			}
		})
	}
}
