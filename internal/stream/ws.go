package stream

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"loopmix/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// ControlMsg is one playback command, arriving over the WebSocket or the
// /api/control endpoint.
type ControlMsg struct {
	Op    string   `json:"op"`
	Name  string   `json:"name,omitempty"`
	Index *int     `json:"index,omitempty"`
	Value *float64 `json:"value,omitempty"`
	On    *bool    `json:"on,omitempty"`
	Names []string `json:"names,omitempty"`
	Bits  *uint64  `json:"bits,omitempty"`
}

// WSHandler upgrades control clients to WebSocket, applies their commands to
// the engine, and pushes a status snapshot to every client after each change.
type WSHandler struct {
	eng        *engine.Engine
	hub        *Hub
	selectSong func(index int) error
}

// NewWSHandler creates the WebSocket control handler. selectSong lets the
// host swap the engine's bound song; it may be nil when only one song is
// loaded.
func NewWSHandler(eng *engine.Engine, hub *Hub, selectSong func(int) error) *WSHandler {
	return &WSHandler{eng: eng, hub: hub, selectSong: selectSong}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 64)}
	h.hub.register <- client

	// Current state straight away so the client can render controls.
	if b, err := json.Marshal(h.eng.Snapshot()); err == nil {
		client.send <- b
	}

	go client.writePump()
	go client.readPump(func(message []byte) {
		h.handleMessage(client, message)
	})
}

func (h *WSHandler) handleMessage(client *Client, message []byte) {
	var cm ControlMsg
	if err := json.Unmarshal(message, &cm); err != nil {
		h.sendError(client, "invalid control message")
		return
	}
	if err := h.Apply(cm); err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.BroadcastStatus()
}

func (h *WSHandler) sendError(client *Client, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	select {
	case client.send <- b:
	default:
	}
}

// Apply dispatches one control command to the engine. Failed commands leave
// playback state untouched.
func (h *WSHandler) Apply(cm ControlMsg) error {
	switch cm.Op {
	case "part":
		if cm.Index != nil {
			if cm.Value != nil {
				return h.eng.SelectPartAt(*cm.Index, int(*cm.Value))
			}
			return h.eng.SelectPart(*cm.Index)
		}
		if cm.Name != "" {
			return h.eng.SelectPartName(cm.Name)
		}
		return errors.New("part: index or name required")
	case "variant":
		return h.eng.SetVariant(cm.Name)
	case "layer":
		switch {
		case cm.Value != nil:
			return h.eng.SetLayerGain(cm.Name, float32(*cm.Value))
		case cm.On != nil:
			return h.eng.SetLayer(cm.Name, *cm.On)
		default:
			return h.eng.ToggleLayer(cm.Name)
		}
	case "layers":
		if cm.Bits != nil {
			return h.eng.SetLayersBits(*cm.Bits)
		}
		return h.eng.SetLayers(cm.Names)
	case "volume":
		if cm.Value == nil {
			return errors.New("volume: value required")
		}
		h.eng.SetVolume(*cm.Value)
		return nil
	case "stop":
		h.eng.Stop()
		return nil
	case "play":
		return h.eng.Play()
	case "pause":
		paused := true
		if cm.On != nil {
			paused = *cm.On
		}
		h.eng.SetPaused(paused)
		return nil
	case "seek":
		if cm.Value == nil {
			return errors.New("seek: value required")
		}
		return h.eng.Seek(int(*cm.Value))
	case "song":
		if h.selectSong == nil || cm.Index == nil {
			return errors.New("song: index required")
		}
		return h.selectSong(*cm.Index)
	}
	return errors.New("unknown op " + cm.Op)
}

// BroadcastStatus pushes the engine's status snapshot to every client.
func (h *WSHandler) BroadcastStatus() {
	b, err := json.Marshal(h.eng.Snapshot())
	if err != nil {
		return
	}
	h.hub.Broadcast(b)
}
