package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	qr "shengji/internal/qrcode"
	"shengji/internal/state"
	"shengji/internal/stats"
)

const (
	maxChatBytes = 1024
	maxWait      = 25 * time.Second
)

// StateSource is where handlers read client state from.
type StateSource interface {
	Snapshot() state.ClientState
	Subscribe() (<-chan struct{}, func())
}

// ChatSender forwards chat lines to the game server.
type ChatSender interface {
	SendChat(text string) error
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	Store  StateSource
	Chat   ChatSender
	Logger *zap.Logger
}

func NewHandlers(store StateSource, chat ChatSender, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{Store: store, Chat: chat, Logger: logger}
}

// HandleState returns the current client state as JSON. With ?wait=1 it
// first waits for the next change, up to maxWait.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") != "" {
		changed, cancel := h.Store.Subscribe()
		defer cancel()
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		select {
		case <-changed:
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}
	h.writeJSON(w, h.Store.Snapshot())
}

type statsResponse struct {
	stats.GameStatistics
	WinRate float64 `json:"winRate"`
}

// HandleStats returns the session's game statistics.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	s := h.Store.Snapshot().Statistics
	h.writeJSON(w, statsResponse{GameStatistics: s, WinRate: s.WinRate()})
}

// HandlePhase returns the active phase of the current game.
func (h *Handlers) HandlePhase(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"phase": Phase(h.Store.Snapshot().GameState)})
}

// HandleQR generates a QR code PNG for the room's chat link.
func (h *Handlers) HandleQR(w http.ResponseWriter, r *http.Request) {
	link := ChatLink(h.Store.Snapshot().GameState)
	png, err := qr.Generate(link)
	if errors.Is(err, qr.ErrEmpty) {
		http.Error(w, "no chat link", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("qr generation failed", zap.Error(err))
		http.Error(w, "QR generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleChat sends the request body as a chat line.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBytes+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxChatBytes {
		http.Error(w, "message too long", http.StatusRequestEntityTooLarge)
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}
	if err := h.Chat.SendChat(text); err != nil {
		h.Logger.Warn("chat not sent", zap.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Warn("write response", zap.Error(err))
	}
}
