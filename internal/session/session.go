package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/protocol"
)

const DefaultGracePeriod = 30 * time.Second

type client struct {
	userID string
	outbox chan protocol.ServerMessage
}

type armedTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

func (t *armedTimer) stop() {
	t.timer.Stop()
	close(t.cancel)
}

// Session is the per-room actor. All mutations run on its single loop
// goroutine, consuming an ordered inbox; two sessions never block each other.
type Session struct {
	code  string
	inbox chan Msg

	eng   engine.Engine
	state engine.State

	clients     map[string]*client
	clock       clockwork.Clock
	log         *zap.Logger
	gracePeriod time.Duration
	onFinished  func(engine.State)

	roundTimer  *armedTimer
	timerRound  int
	graceTimers map[string]*armedTimer

	// Read lock-free by the registry janitor.
	numClients atomic.Int32
	lastActive atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

type Options struct {
	Clock       clockwork.Clock
	Logger      *zap.Logger
	GracePeriod time.Duration
	OnFinished  func(engine.State)
}

func New(parent context.Context, code string, eng engine.Engine, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		code:        code,
		inbox:       make(chan Msg, 64),
		eng:         eng,
		state:       engine.NewState(code, opts.Clock.Now()),
		clients:     make(map[string]*client),
		clock:       opts.Clock,
		log:         opts.Logger.With(zap.String("room", code)),
		gracePeriod: opts.GracePeriod,
		onFinished:  opts.OnFinished,
		graceTimers: make(map[string]*armedTimer),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.lastActive.Store(opts.Clock.Now().UnixNano())

	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Code() string { return s.code }

func (s *Session) NumClients() int { return int(s.numClients.Load()) }

// Done is closed once the loop has exited; senders must select on it so a
// shut-down session never blocks them.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.handleConnect(msg)

			case Disconnect:
				s.handleDisconnect(msg)

			case FromClient:
				s.handleCommand(msg.ConnID, msg.Cmd)

			case RequestState:
				s.sendTo(msg.ConnID, protocol.ServerMessage{
					Type:  protocol.EvtGameState,
					State: protocol.NewSnapshot(s.state, s.clock.Now()),
				})

			case GetState:
				msg.Reply <- View{NumClients: len(s.clients), State: s.state}

			case deadlineFired:
				s.handleDeadline(msg)

			case graceExpired:
				s.handleGraceExpired(msg)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleConnect(msg Connect) {
	cmd := msg.Cmd
	cmd.Now = s.clock.Now()

	events, next, err := s.eng.Apply(s.state, cmd)
	if err != nil {
		msg.Reply <- err
		return
	}
	s.state = next
	s.clients[msg.ConnID] = &client{userID: cmd.UserID, outbox: msg.Outbox}
	s.numClients.Store(int32(len(s.clients)))
	s.touch()

	// A reconnection within the grace period silently rebinds.
	if t, ok := s.graceTimers[cmd.UserID]; ok {
		t.stop()
		delete(s.graceTimers, cmd.UserID)
	}
	msg.Reply <- nil

	for _, ev := range events {
		if ev.Type == engine.EvtPlayerJoined {
			s.broadcast(protocol.ServerMessage{
				Type:         protocol.EvtPlayerJoined,
				Role:         ev.Role,
				ConnectionID: msg.ConnID,
			})
		}
	}
	s.react(events)
	s.broadcastSnapshot()
	s.log.Info("player connected",
		zap.String("user_id", cmd.UserID),
		zap.String("conn_id", msg.ConnID))
}

func (s *Session) handleDisconnect(msg Disconnect) {
	c, ok := s.clients[msg.ConnID]
	if !ok {
		return
	}
	delete(s.clients, msg.ConnID)
	s.numClients.Store(int32(len(s.clients)))

	for _, other := range s.clients {
		if other.userID == c.userID {
			return // still connected elsewhere
		}
	}

	events, next, err := s.eng.Apply(s.state, engine.Command{
		Type:   engine.CmdMarkDisconnected,
		UserID: c.userID,
		Now:    s.clock.Now(),
	})
	if err != nil || len(events) == 0 {
		return
	}
	s.state = next
	s.react(events)
	s.broadcastSnapshot()
	s.armGraceTimer(c.userID)
	s.log.Info("player disconnected", zap.String("user_id", c.userID))
}

func (s *Session) handleCommand(connID string, cmd engine.Command) {
	c, ok := s.clients[connID]
	if !ok {
		return
	}
	// The seat binding is authoritative; never trust a client-sent identity.
	cmd.UserID = c.userID
	cmd.Now = s.clock.Now()

	events, next, err := s.eng.Apply(s.state, cmd)
	if err != nil {
		s.sendTo(connID, protocol.ServerMessage{Type: protocol.EvtError, Message: err.Error()})
		return
	}
	s.state = next
	s.touch()
	s.react(events)
	s.broadcastSnapshot()
}

func (s *Session) handleDeadline(msg deadlineFired) {
	// Stale fire: the round it was armed for has already resolved.
	if s.state.Status != engine.StatusAttacking || s.state.RoundNumber != msg.round {
		return
	}
	events, next, err := s.eng.Apply(s.state, engine.Command{
		Type: engine.CmdTimeExpired,
		Now:  s.clock.Now(),
	})
	if err != nil {
		s.log.Debug("deadline resolution rejected", zap.Error(err))
		return
	}
	s.state = next
	s.touch()
	s.react(events)
	s.broadcastSnapshot()
}

func (s *Session) handleGraceExpired(msg graceExpired) {
	delete(s.graceTimers, msg.userID)

	events, next, err := s.eng.Apply(s.state, engine.Command{
		Type:   engine.CmdReleaseSeat,
		UserID: msg.userID,
		Now:    s.clock.Now(),
	})
	if err != nil || len(events) == 0 {
		return
	}
	s.state = next
	s.react(events)
	s.broadcastSnapshot()
	s.log.Info("seat released after grace period", zap.String("user_id", msg.userID))
}

// react turns committed engine events into broadcasts and side effects.
// It runs strictly after the mutation commits.
func (s *Session) react(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtAttackExecuted:
			s.armRoundTimer(s.state.RoundNumber, s.state.RoundDuration)
			s.broadcast(protocol.ServerMessage{
				Type:        protocol.EvtAttackExecuted,
				ToolID:      ev.ToolID,
				RoundNumber: s.state.RoundNumber,
				StartTime:   s.state.RoundStartedAt.UnixMilli(),
			})

		case engine.EvtRoundResolved:
			s.stopRoundTimer()
			s.broadcast(protocol.ServerMessage{Type: protocol.EvtRoundResult, Result: ev.Result})

		case engine.EvtPlayerDisconnected, engine.EvtSeatReleased:
			s.broadcast(protocol.ServerMessage{Type: protocol.EvtPlayerDisconnected, Role: ev.Role})

		case engine.EvtNextRoundReady:
			s.broadcast(protocol.ServerMessage{Type: protocol.EvtNextRoundReady})

		case engine.EvtGameReset:
			s.stopRoundTimer()
			s.broadcast(protocol.ServerMessage{Type: protocol.EvtGameReset})

		case engine.EvtGameReplay:
			s.stopRoundTimer()
			s.broadcast(protocol.ServerMessage{Type: protocol.EvtGameReplay})

		case engine.EvtGameFinished:
			if s.onFinished != nil {
				go s.onFinished(s.state)
			}
		}
	}
}

func (s *Session) armRoundTimer(round int, d time.Duration) {
	s.stopRoundTimer()
	s.timerRound = round
	s.roundTimer = s.armTimer(d, func() {
		select {
		case s.inbox <- deadlineFired{round: round}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopRoundTimer() {
	if s.roundTimer != nil {
		s.roundTimer.stop()
		s.roundTimer = nil
	}
}

func (s *Session) armGraceTimer(userID string) {
	if t, ok := s.graceTimers[userID]; ok {
		t.stop()
	}
	s.graceTimers[userID] = s.armTimer(s.gracePeriod, func() {
		select {
		case s.inbox <- graceExpired{userID: userID}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) armTimer(d time.Duration, fire func()) *armedTimer {
	t := &armedTimer{timer: s.clock.NewTimer(d), cancel: make(chan struct{})}
	go func() {
		select {
		case <-t.timer.Chan():
			fire()
		case <-t.cancel:
		case <-s.ctx.Done():
		}
	}()
	return t
}

func (s *Session) broadcastSnapshot() {
	s.broadcast(protocol.ServerMessage{
		Type:  protocol.EvtGameState,
		State: protocol.NewSnapshot(s.state, s.clock.Now()),
	})
}

// Outboxes are never closed here: the ws layer also sends on them and a
// dropped socket may legitimately rejoin with the same channel. Dropping
// only forgets the connection; the writer side owns the channel's lifetime.
func (s *Session) broadcast(msg protocol.ServerMessage) {
	for id := range s.clients {
		s.trySend(id, msg)
	}
}

func (s *Session) sendTo(connID string, msg protocol.ServerMessage) {
	if _, ok := s.clients[connID]; !ok {
		return
	}
	s.trySend(connID, msg)
}

func (s *Session) trySend(connID string, msg protocol.ServerMessage) {
	c := s.clients[connID]
	select {
	case c.outbox <- msg:
	default:
		// Client is slow/full - drop it.
		delete(s.clients, connID)
		s.numClients.Store(int32(len(s.clients)))
		s.log.Warn("dropping slow client", zap.String("conn_id", connID))
	}
}

func (s *Session) touch() {
	s.lastActive.Store(s.clock.Now().UnixNano())
}

func (s *Session) shutdown() {
	s.stopRoundTimer()
	for id, t := range s.graceTimers {
		t.stop()
		delete(s.graceTimers, id)
	}
	clear(s.clients)
	s.numClients.Store(0)
	s.cancel()
}
