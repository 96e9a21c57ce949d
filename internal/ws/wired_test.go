package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/catalog"
	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/protocol"
	"github.com/mfcosta-games/cyber-siege-backend/internal/registry"
)

func dialTestSocket(t *testing.T) *websocket.Conn {
	t.Helper()

	cat, err := catalog.Load("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reg := registry.New(ctx, engine.New(cat), registry.Options{})

	srv := httptest.NewServer(Handler(reg, zap.NewNop(), []string{"*"}))
	t.Cleanup(srv.Close)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(dialCancel)
	conn, _, err := websocket.Dial(dialCtx, strings.Replace(srv.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg protocol.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) protocol.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read while waiting for %q: %v", typ, err)
		}
		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal %q: %v", data, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestSocketJoinFlow(t *testing.T) {
	conn := dialTestSocket(t)

	send(t, conn, protocol.ClientMessage{
		Type:      protocol.MsgJoinGame,
		SessionID: "WXYZ",
		UserID:    "u1",
		Role:      "attacker",
		ThemeID:   "phishing",
	})

	joined := readUntil(t, conn, protocol.EvtPlayerJoined)
	if joined.Role != engine.RoleAttacker {
		t.Fatalf("player_joined role = %q", joined.Role)
	}

	snap := readUntil(t, conn, protocol.EvtGameState).State
	if snap.SessionID != "WXYZ" || snap.GameStatus != engine.StatusLobby {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.ActiveThemeID != "phishing" {
		t.Fatalf("activeThemeId = %q", snap.ActiveThemeID)
	}
}

func TestSocketRejectsJoinWithoutIdentity(t *testing.T) {
	conn := dialTestSocket(t)

	send(t, conn, protocol.ClientMessage{Type: protocol.MsgJoinGame, SessionID: "WXYZ"})
	errMsg := readUntil(t, conn, protocol.EvtError)
	if errMsg.Message != "missing user id" {
		t.Fatalf("error message = %q", errMsg.Message)
	}
}

func TestSocketRequiresJoinBeforeCommands(t *testing.T) {
	conn := dialTestSocket(t)

	send(t, conn, protocol.ClientMessage{Type: protocol.MsgExecuteAttack, ToolID: "fake_email"})
	errMsg := readUntil(t, conn, protocol.EvtError)
	if errMsg.Message != "join a session first" {
		t.Fatalf("error message = %q", errMsg.Message)
	}
}
