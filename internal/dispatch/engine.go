// Package dispatch runs every inbound server message through the ordered set
// of handlers and collects the resulting state change.
package dispatch

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"shengji/internal/history"
	"shengji/internal/notify"
	"shengji/internal/protocol"
	"shengji/internal/ratelimit"
	"shengji/internal/state"
)

// Engine owns the handler order and the notification gate. It keeps no other
// state between calls.
type Engine struct {
	handlers []Handler
	logger   *zap.Logger
}

type options struct {
	logger   *zap.Logger
	notifier notify.Notifier
	gate     *ratelimit.Gate
	interval time.Duration
	now      func() time.Time
	spawn    func(func())
	capacity int
	handlers []Handler
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets what plays the notification sound.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithGate sets the notification gate, e.g. one whose start time is known.
func WithGate(g *ratelimit.Gate) Option {
	return func(o *options) { o.gate = g }
}

// WithInterval sets the minimum spacing between notification sounds.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithClock sets the time source for the notification gate.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSpawn sets how the notification side effect is launched.
func WithSpawn(spawn func(func())) Option {
	return func(o *options) { o.spawn = spawn }
}

// WithCapacity sets how many chat lines are kept.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithHandlers replaces the standard handler list.
func WithHandlers(h ...Handler) Option {
	return func(o *options) { o.handlers = h }
}

// New builds an engine with the standard handler order: chat, broadcast,
// error, state, notification, outcome.
func New(opts ...Option) *Engine {
	o := options{
		interval: ratelimit.DefaultInterval,
		now:      time.Now,
		spawn:    func(f func()) { go f() },
		capacity: history.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.notifier == nil {
		o.notifier = notify.Nop()
	}
	if o.gate == nil {
		o.gate = ratelimit.New(o.now())
	}

	handlers := o.handlers
	if handlers == nil {
		handlers = []Handler{
			Chat{Capacity: o.capacity},
			Broadcast{Capacity: o.capacity},
			Error{},
			GameState{},
			&Notification{
				Gate:     o.gate,
				Notifier: o.notifier,
				Interval: o.interval,
				Now:      o.now,
				Spawn:    o.spawn,
				Logger:   o.logger,
			},
			Outcome{},
		}
	}
	return &Engine{handlers: handlers, logger: o.logger}
}

// Dispatch runs m through every handler in order. Each handler sees the state
// as left by the handlers before it. The merged update is returned for the
// caller to apply; s itself is not modified.
func (e *Engine) Dispatch(s state.ClientState, m protocol.Inbound) state.Update {
	switch msg := m.(type) {
	case protocol.Chat, protocol.Broadcast, protocol.Error, protocol.StateUpdate, protocol.Beep:
	case protocol.Unknown:
		e.logger.Debug("unrecognized message", zap.String("tag", msg.Tag), zap.Error(msg.Err))
	default:
		e.logger.Debug("unrecognized message", zap.String("type", fmt.Sprintf("%T", m)))
		m = protocol.Unknown{}
	}

	working := s
	var out state.Update
	for _, h := range e.handlers {
		u, ok := e.run(h, working, m)
		if !ok {
			continue
		}
		working = working.Apply(u)
		out = out.Merge(u)
	}
	return out
}

// run calls h, turning a panic into an error entry so the rest of the sweep
// still runs.
func (e *Engine) run(h Handler, s state.ClientState, m protocol.Inbound) (u state.Update, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				zap.String("handler", h.Name()),
				zap.Stringer("kind", m.Kind()),
				zap.Any("panic", r),
			)
			u = state.Update{}.WithErrors(appendError(s.Errors, fmt.Sprintf("%s: %v", h.Name(), r)))
			ok = true
		}
	}()
	return h.Handle(s, m)
}
