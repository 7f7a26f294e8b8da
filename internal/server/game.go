package server

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Phases a game snapshot can be in, in play order. Exactly one is non-null.
var phases = []string{"Initialize", "Draw", "Exchange", "Play"}

// Phase returns the name of the active phase of a game snapshot, or "" if
// there is none.
func Phase(game json.RawMessage) string {
	if len(game) == 0 {
		return ""
	}
	for _, p := range phases {
		v := gjson.GetBytes(game, p)
		if v.Exists() && v.Type != gjson.Null {
			return p
		}
	}
	return ""
}

// ChatLink returns the room's external chat link from the active phase's
// propagated settings, or "".
func ChatLink(game json.RawMessage) string {
	p := Phase(game)
	if p == "" {
		return ""
	}
	return gjson.GetBytes(game, p+".propagated.chat_link").String()
}
