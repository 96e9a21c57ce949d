package registry

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/session"
)

const (
	// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive being
	// read out loud.
	codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength  = 4

	DefaultSessionTTL      = 30 * time.Minute
	DefaultJanitorInterval = time.Minute
)

type Msg interface{ isRegistryMsg() }

type EnsureMsg struct {
	Code  string
	Reply chan *session.Session
}

type GetMsg struct {
	Code  string
	Reply chan *session.Session
}

type RemoveMsg struct{ Code string }

type ShutdownMsg struct{}

func (EnsureMsg) isRegistryMsg()   {}
func (GetMsg) isRegistryMsg()      {}
func (RemoveMsg) isRegistryMsg()   {}
func (ShutdownMsg) isRegistryMsg() {}

// Registry owns the room-code to session map. It is itself an actor, so no
// lock ever spans sessions; the janitor evicts sessions that sat with no
// connected players past the TTL.
type Registry struct {
	inbox    chan Msg
	sessions map[string]*session.Session

	eng   engine.Engine
	clock clockwork.Clock
	log   *zap.Logger
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
}

type Options struct {
	Clock           clockwork.Clock
	Logger          *zap.Logger
	GracePeriod     time.Duration
	SessionTTL      time.Duration
	JanitorInterval time.Duration
	OnFinished      func(engine.State)
}

func New(parent context.Context, eng engine.Engine, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = DefaultJanitorInterval
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan Msg, 64),
		sessions: make(map[string]*session.Session),
		eng:      eng,
		clock:    opts.Clock,
		log:      opts.Logger,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

// Ensure returns the session for code, creating it on first use.
func (r *Registry) Ensure(code string) *session.Session {
	reply := make(chan *session.Session, 1)
	r.inbox <- EnsureMsg{Code: code, Reply: reply}
	return <-reply
}

// Lookup returns the session for code, or nil.
func (r *Registry) Lookup(code string) *session.Session {
	reply := make(chan *session.Session, 1)
	r.inbox <- GetMsg{Code: code, Reply: reply}
	return <-reply
}

func (r *Registry) loop() {
	janitor := r.clock.NewTicker(r.opts.JanitorInterval)
	defer janitor.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-janitor.Chan():
			r.sweep()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case EnsureMsg:
				code := Normalize(msg.Code)
				sess := r.sessions[code]
				if sess == nil {
					sess = session.New(r.ctx, code, r.eng, session.Options{
						Clock:       r.clock,
						Logger:      r.log,
						GracePeriod: r.opts.GracePeriod,
						OnFinished:  r.opts.OnFinished,
					})
					r.sessions[code] = sess
					r.log.Info("session created", zap.String("room", code))
				}
				msg.Reply <- sess

			case GetMsg:
				msg.Reply <- r.sessions[Normalize(msg.Code)] // may be nil

			case RemoveMsg:
				code := Normalize(msg.Code)
				if sess := r.sessions[code]; sess != nil {
					sess.Inbox() <- session.Shutdown{}
					delete(r.sessions, code)
				}

			case ShutdownMsg:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) sweep() {
	now := r.clock.Now()
	for code, sess := range r.sessions {
		if sess.NumClients() == 0 && now.Sub(sess.LastActive()) > r.opts.SessionTTL {
			sess.Inbox() <- session.Shutdown{}
			delete(r.sessions, code)
			r.log.Info("session evicted", zap.String("room", code))
		}
	}
}

func (r *Registry) shutdown() {
	for code, sess := range r.sessions {
		sess.Inbox() <- session.Shutdown{}
		delete(r.sessions, code)
	}
	r.cancel()
}

// Normalize makes room codes case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode produces a short random room code.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
