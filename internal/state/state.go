// Package state holds the client's view of the game and the sparse updates
// that move it forward.
package state

import (
	"encoding/json"
	"strings"

	"shengji/internal/protocol"
	"shengji/internal/stats"
)

// Field names one replaceable part of ClientState.
type Field uint8

const (
	FieldMessages Field = 1 << iota
	FieldErrors
	// FieldGame covers GameState and CardMetadata, which always move together.
	FieldGame
	FieldStatistics
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldMessages, "messages"},
	{FieldErrors, "errors"},
	{FieldGame, "game_state"},
	{FieldStatistics, "statistics"},
}

func (f Field) String() string {
	var parts []string
	for _, n := range fieldNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ClientState is the snapshot renderers read. Values are treated as
// immutable: updates build new slices rather than writing into old ones.
type ClientState struct {
	Identity     string                 `json:"name"`
	Messages     []protocol.ChatMessage `json:"messages"`
	Errors       []string               `json:"errors"`
	GameState    json.RawMessage        `json:"game_state"`
	CardMetadata json.RawMessage        `json:"cards"`
	Statistics   stats.GameStatistics   `json:"gameStatistics"`
}

// New returns the state a session starts from.
func New(identity string) ClientState {
	return ClientState{
		Identity: identity,
		Messages: []protocol.ChatMessage{},
		Errors:   []string{},
	}
}

// Update is a partial ClientState. Only the fields named in Fields carry
// meaning; the zero Update changes nothing.
type Update struct {
	Fields       Field
	Messages     []protocol.ChatMessage
	Errors       []string
	GameState    json.RawMessage
	CardMetadata json.RawMessage
	Statistics   stats.GameStatistics
}

// Has reports whether every field in f is set.
func (u Update) Has(f Field) bool {
	return u.Fields&f == f
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Fields == 0
}

// WithMessages returns u with the chat log set.
func (u Update) WithMessages(m []protocol.ChatMessage) Update {
	u.Fields |= FieldMessages
	u.Messages = m
	return u
}

// WithErrors returns u with the error list set.
func (u Update) WithErrors(e []string) Update {
	u.Fields |= FieldErrors
	u.Errors = e
	return u
}

// WithGame returns u with the game snapshot and its card metadata set.
func (u Update) WithGame(game, cards json.RawMessage) Update {
	u.Fields |= FieldGame
	u.GameState = game
	u.CardMetadata = cards
	return u
}

// WithStatistics returns u with the statistics set.
func (u Update) WithStatistics(s stats.GameStatistics) Update {
	u.Fields |= FieldStatistics
	u.Statistics = s
	return u
}

// Merge returns u overlaid with next. A field set in both takes next's value.
func (u Update) Merge(next Update) Update {
	if next.Has(FieldMessages) {
		u = u.WithMessages(next.Messages)
	}
	if next.Has(FieldErrors) {
		u = u.WithErrors(next.Errors)
	}
	if next.Has(FieldGame) {
		u = u.WithGame(next.GameState, next.CardMetadata)
	}
	if next.Has(FieldStatistics) {
		u = u.WithStatistics(next.Statistics)
	}
	return u
}

// Apply returns s with the fields set in u replaced. Fields u does not name
// are left as they are; Identity is never touched.
func (s ClientState) Apply(u Update) ClientState {
	if u.Has(FieldMessages) {
		s.Messages = u.Messages
	}
	if u.Has(FieldErrors) {
		s.Errors = u.Errors
	}
	if u.Has(FieldGame) {
		s.GameState = u.GameState
		s.CardMetadata = u.CardMetadata
	}
	if u.Has(FieldStatistics) {
		s.Statistics = u.Statistics
	}
	return s
}
