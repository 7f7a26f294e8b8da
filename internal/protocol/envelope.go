package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the externally tagged wire wrapper: a JSON object with exactly
// one key naming the variant. Unit variants are sent as a bare JSON string.
type Envelope map[string]json.RawMessage

// NewEnvelope encodes payload under tag.
func NewEnvelope(tag string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	return json.Marshal(Envelope{tag: data})
}

// Decode turns one server frame into an Inbound value. It never fails:
// frames it cannot make sense of come back as Unknown.
func Decode(data []byte) Inbound {
	raw := append(json.RawMessage(nil), data...)

	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit == TagBeep {
			return Beep{}
		}
		return Unknown{Raw: raw}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Unknown{Raw: raw, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(env) != 1 {
		return Unknown{Raw: raw}
	}

	for tag, payload := range env {
		msg, err := decodeVariant(tag, payload)
		if err != nil {
			return Unknown{Raw: raw, Err: fmt.Errorf("decode %s: %w", tag, err)}
		}
		return msg
	}
	return Unknown{Raw: raw}
}

func decodeVariant(tag string, payload json.RawMessage) (Inbound, error) {
	// A null payload names a variant without carrying one.
	if isNull(payload) {
		return Unknown{Raw: append(json.RawMessage(nil), payload...), Tag: tag}, nil
	}
	switch tag {
	case TagMessage:
		var m Chat
		if err := json.Unmarshal(payload, &m.ChatMessage); err != nil {
			return nil, err
		}
		return m, nil
	case TagBroadcast:
		var b Broadcast
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TagError:
		var e Error
		if err := json.Unmarshal(payload, &e.Message); err != nil {
			return nil, err
		}
		if e.Message == "" {
			return Unknown{Raw: append(json.RawMessage(nil), payload...), Tag: tag}, nil
		}
		return e, nil
	case TagState:
		var s StateUpdate
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return Unknown{Raw: append(json.RawMessage(nil), payload...), Tag: tag}, nil
	}
}

func isNull(payload json.RawMessage) bool {
	p := bytes.TrimSpace(payload)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}
