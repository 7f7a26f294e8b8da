package dispatch

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"shengji/internal/history"
	"shengji/internal/notify"
	"shengji/internal/protocol"
	"shengji/internal/ratelimit"
	"shengji/internal/state"
	"shengji/internal/stats"
)

// Parameters of the notification sound.
const (
	BeepCount     = 3
	BeepFrequency = 261.63 // middle C
	BeepDuration  = 200 * time.Millisecond
)

// Handler turns one inbound message into a partial state update. It returns
// false when the message is not its variant. Handlers must not modify s.
type Handler interface {
	Name() string
	Handle(s state.ClientState, m protocol.Inbound) (state.Update, bool)
}

// Chat appends participant chat lines to the bounded message log.
type Chat struct {
	Capacity int
}

func (Chat) Name() string { return "chat" }

func (h Chat) Handle(s state.ClientState, m protocol.Inbound) (state.Update, bool) {
	msg, ok := m.(protocol.Chat)
	if !ok {
		return state.Update{}, false
	}
	return state.Update{}.WithMessages(history.Append(s.Messages, msg.ChatMessage, h.Capacity)), true
}

// Broadcast logs game announcements as system chat lines.
type Broadcast struct {
	Capacity int
}

func (Broadcast) Name() string { return "broadcast" }

func (h Broadcast) Handle(s state.ClientState, m protocol.Inbound) (state.Update, bool) {
	b, ok := m.(protocol.Broadcast)
	if !ok {
		return state.Update{}, false
	}
	return state.Update{}.WithMessages(history.Append(s.Messages, b.ChatEntry(), h.Capacity)), true
}

// Error records server-reported errors. The list is never truncated.
type Error struct{}

func (Error) Name() string { return "error" }

func (Error) Handle(s state.ClientState, m protocol.Inbound) (state.Update, bool) {
	e, ok := m.(protocol.Error)
	if !ok {
		return state.Update{}, false
	}
	return state.Update{}.WithErrors(appendError(s.Errors, e.Message)), true
}

// GameState replaces the game snapshot and card metadata.
type GameState struct{}

func (GameState) Name() string { return "state" }

func (GameState) Handle(_ state.ClientState, m protocol.Inbound) (state.Update, bool) {
	u, ok := m.(protocol.StateUpdate)
	if !ok {
		return state.Update{}, false
	}
	return state.Update{}.WithGame(u.State, u.Cards), true
}

// Notification plays the notification sound, at most once per Interval. It
// never changes state.
type Notification struct {
	Gate     *ratelimit.Gate
	Notifier notify.Notifier
	Interval time.Duration
	Now      func() time.Time
	// Spawn runs the sound without holding up the sweep.
	Spawn  func(func())
	Logger *zap.Logger
}

func (*Notification) Name() string { return "notification" }

func (h *Notification) Handle(_ state.ClientState, m protocol.Inbound) (state.Update, bool) {
	if _, ok := m.(protocol.Beep); !ok {
		return state.Update{}, false
	}
	if !h.Gate.TryFire(h.Now(), h.Interval) {
		h.Logger.Debug("notification suppressed", zap.Duration("interval", h.Interval))
		return state.Update{}, false
	}
	h.Spawn(h.ring)
	return state.Update{}, false
}

func (h *Notification) ring() {
	defer func() {
		if r := recover(); r != nil {
			h.Logger.Warn("notifier panicked", zap.Any("panic", r))
		}
	}()
	if err := h.Notifier.Notify(BeepCount, BeepFrequency, BeepDuration); err != nil {
		h.Logger.Warn("notification failed", zap.Error(err))
	}
}

// Outcome folds the local player's finished-game result into the statistics.
type Outcome struct{}

func (Outcome) Name() string { return "outcome" }

func (Outcome) Handle(s state.ClientState, m protocol.Inbound) (state.Update, bool) {
	b, ok := m.(protocol.Broadcast)
	if !ok {
		return state.Update{}, false
	}
	o, ok := b.Outcome(s.Identity)
	if !ok {
		return state.Update{}, false
	}
	return state.Update{}.WithStatistics(stats.Fold(s.Statistics, o)), true
}

// appendError copies errs before appending so earlier snapshots keep their
// length.
func appendError(errs []string, e string) []string {
	return append(slices.Clip(errs), e)
}
