package session

import (
	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/protocol"
)

type Msg interface{ isSessionMsg() }

// Connect binds a socket to the session via a join/start command. The reply
// carries the engine's verdict; on error the connection is never registered.
type Connect struct {
	ConnID string
	Outbox chan protocol.ServerMessage
	Cmd    engine.Command
	Reply  chan error
}

func (Connect) isSessionMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isSessionMsg() {}

type FromClient struct {
	ConnID string
	Cmd    engine.Command
}

func (FromClient) isSessionMsg() {}

type RequestState struct{ ConnID string }

func (RequestState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type View struct {
	NumClients int
	State      engine.State
}

// deadlineFired is the round timer landing in the serial queue. It races
// fairly with a concurrent defense: whichever is processed first wins.
type deadlineFired struct{ round int }

func (deadlineFired) isSessionMsg() {}

type graceExpired struct{ userID string }

func (graceExpired) isSessionMsg() {}
