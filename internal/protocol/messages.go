package protocol

import (
	"encoding/json"

	"shengji/internal/stats"
)

// Variant tags: Server → Client
const (
	TagMessage   = "Message"
	TagBroadcast = "Broadcast"
	TagError     = "Error"
	TagState     = "State"
	TagBeep      = "Beep"
)

// Broadcast variant types that the client inspects.
const (
	VariantGameFinished = "GameFinished"
)

// SystemSender is the sender name used for chat entries synthesized from
// broadcasts.
const SystemSender = "GAME"

// Kind identifies the populated variant of an Inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindChat
	KindBroadcast
	KindError
	KindState
	KindBeep
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindBroadcast:
		return "broadcast"
	case KindError:
		return "error"
	case KindState:
		return "state"
	case KindBeep:
		return "beep"
	default:
		return "unknown"
	}
}

// Inbound is a decoded server push. The set of implementations is closed:
// Chat, Broadcast, Error, StateUpdate, Beep and Unknown.
type Inbound interface {
	Kind() Kind
	inbound()
}

// ChatMessage is one entry of the chat log, either typed by a participant or
// synthesized from a game broadcast.
type ChatMessage struct {
	From     string          `json:"from"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data,omitempty"`
	FromGame bool            `json:"from_game,omitempty"`
}

// Chat carries a participant chat entry.
type Chat struct {
	ChatMessage
}

// Broadcast is a game announcement. Data is kept verbatim for renderers;
// Variant is the part of it the client understands.
type Broadcast struct {
	Message string
	Data    json.RawMessage
	Variant BroadcastVariant
}

// BroadcastVariant is the tagged variant nested in a broadcast's data.
// Result is only populated for GameFinished.
type BroadcastVariant struct {
	Type   string                   `json:"type"`
	Result map[string]stats.Outcome `json:"result,omitempty"`
}

// UnmarshalJSON keeps the raw data and decodes the nested variant tag.
func (b *Broadcast) UnmarshalJSON(data []byte) error {
	var wire struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	b.Message = wire.Message
	b.Data = wire.Data

	var inner struct {
		Variant BroadcastVariant `json:"variant"`
	}
	if len(wire.Data) > 0 {
		// Data that is not an object simply has no variant.
		_ = json.Unmarshal(wire.Data, &inner)
	}
	b.Variant = inner.Variant
	return nil
}

// Outcome returns the finished-game result for participant, if this is a
// GameFinished broadcast that lists them.
func (b Broadcast) Outcome(participant string) (stats.Outcome, bool) {
	if b.Variant.Type != VariantGameFinished {
		return stats.Outcome{}, false
	}
	o, ok := b.Variant.Result[participant]
	return o, ok
}

// ChatEntry renders the broadcast as a system chat entry.
func (b Broadcast) ChatEntry() ChatMessage {
	return ChatMessage{
		From:     SystemSender,
		Message:  b.Message,
		Data:     b.Data,
		FromGame: true,
	}
}

// Error is a server-reported error for display.
type Error struct {
	Message string
}

// StateUpdate replaces the game snapshot and its card metadata together.
type StateUpdate struct {
	State json.RawMessage `json:"state"`
	Cards json.RawMessage `json:"cards"`
}

// Beep asks the client to play an audible notification.
type Beep struct{}

// Unknown is any frame the client does not recognize. Err is set when the
// frame could not be decoded at all.
type Unknown struct {
	Tag string
	Raw json.RawMessage
	Err error
}

func (Chat) Kind() Kind        { return KindChat }
func (Broadcast) Kind() Kind   { return KindBroadcast }
func (Error) Kind() Kind       { return KindError }
func (StateUpdate) Kind() Kind { return KindState }
func (Beep) Kind() Kind        { return KindBeep }
func (Unknown) Kind() Kind     { return KindUnknown }

func (Chat) inbound()        {}
func (Broadcast) inbound()   {}
func (Error) inbound()       {}
func (StateUpdate) inbound() {}
func (Beep) inbound()        {}
func (Unknown) inbound()     {}

// Message types: Client → Server

// JoinRoom is the first frame a client sends after connecting.
type JoinRoom struct {
	RoomName string `json:"room_name"`
	Name     string `json:"name"`
}

// ChatRequest encodes an outgoing chat line.
func ChatRequest(text string) ([]byte, error) {
	return NewEnvelope(TagMessage, text)
}
