package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/protocol"
	"github.com/mfcosta-games/cyber-siege-backend/internal/registry"
	"github.com/mfcosta-games/cyber-siege-backend/internal/session"
)

const writeTimeout = 3 * time.Second

func Handler(reg *registry.Registry, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		log.Debug("socket connected", zap.String("conn_id", connID))
		queryCode := r.URL.Query().Get("code")
		out := make(chan protocol.ServerMessage, 16)
		var sess *session.Session

		readCtx, readCancel := context.WithCancel(r.Context())
		defer readCancel()

		// Writer goroutine. A write failure cancels the reader so the whole
		// connection tears down instead of lingering half-dead.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer readCancel()
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-out:
					payload, _ := json.Marshal(msg)
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// A shut-down session no longer drains its inbox; never block on it.
		deliver := func(target *session.Session, m session.Msg) bool {
			select {
			case target.Inbox() <- m:
				return true
			case <-target.Done():
				return false
			}
		}

		defer func() {
			if sess != nil {
				deliver(sess, session.Disconnect{ConnID: connID})
			}
		}()

		sendErr := func(msg string) {
			select {
			case out <- protocol.ServerMessage{Type: protocol.EvtError, Message: msg}:
			default:
			}
		}

		// Reader loop
		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendErr("bad json")
				continue
			}

			switch cm.Type {
			case protocol.MsgJoinGame, protocol.MsgStartGame:
				code := cm.SessionID
				if code == "" {
					code = queryCode
				}
				if code == "" {
					sendErr("missing session id")
					continue
				}
				if cm.UserID == "" {
					sendErr("missing user id")
					continue
				}
				target := reg.Ensure(code)
				reply := make(chan error, 1)
				if !deliver(target, session.Connect{
					ConnID: connID,
					Outbox: out,
					Cmd:    joinCommand(cm),
					Reply:  reply,
				}) {
					sendErr("session closed")
					continue
				}
				select {
				case err := <-reply:
					if err != nil {
						sendErr(err.Error())
						continue
					}
				case <-target.Done():
					sendErr("session closed")
					continue
				}
				if sess != nil && sess != target {
					deliver(sess, session.Disconnect{ConnID: connID})
				}
				sess = target

			case protocol.MsgRequestState:
				if sess == nil {
					sendErr("join a session first")
					continue
				}
				if !deliver(sess, session.RequestState{ConnID: connID}) {
					sendErr("session closed")
				}

			default:
				cmd, ok := toCommand(cm)
				if !ok {
					sendErr("unknown type")
					continue
				}
				if sess == nil {
					sendErr("join a session first")
					continue
				}
				if !deliver(sess, session.FromClient{ConnID: connID, Cmd: cmd}) {
					sendErr("session closed")
				}
			}
		}
	}
}

func joinCommand(m protocol.ClientMessage) engine.Command {
	t := engine.CmdJoin
	if m.Type == protocol.MsgStartGame {
		t = engine.CmdStartGame
	}
	return engine.Command{
		Type:    t,
		UserID:  m.UserID,
		Role:    engine.Role(m.Role),
		ThemeID: m.ResolvedThemeID(),
	}
}

func toCommand(m protocol.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case protocol.MsgExecuteAttack:
		return engine.Command{Type: engine.CmdAttack, ToolID: m.ToolID}, m.ToolID != ""
	case protocol.MsgExecuteDefense:
		return engine.Command{
			Type:          engine.CmdDefense,
			ToolID:        m.ToolID,
			IsCorrect:     m.IsCorrect,
			TimeRemaining: m.TimeRemaining,
		}, m.ToolID != ""
	case protocol.MsgTimeExpired:
		return engine.Command{Type: engine.CmdTimeExpired}, true
	case protocol.MsgChooseNextRole:
		return engine.Command{Type: engine.CmdChooseNextRole, Role: engine.Role(m.Role)}, m.Role != ""
	case protocol.MsgNextRound:
		return engine.Command{Type: engine.CmdNextRound}, true
	case protocol.MsgReplayGame:
		return engine.Command{Type: engine.CmdReplay}, true
	case protocol.MsgResetGame:
		return engine.Command{Type: engine.CmdReset}, true
	default:
		return engine.Command{}, false
	}
}
