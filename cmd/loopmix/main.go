package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"loopmix/internal/config"
	"loopmix/internal/engine"
	"loopmix/internal/song"
	"loopmix/internal/songfile"
	"loopmix/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = cfg.Songs
	}
	if len(paths) == 0 {
		log.Fatalf("usage: loopmix <song.json|audio file>... (or set LOOPMIX_SONGS)")
	}

	songs, err := songfile.OpenMultiple(ctx, paths...)
	if err != nil {
		log.Fatalf("load songs: %v", err)
	}
	for i, s := range songs {
		log.Printf("loaded song %d: %s (%d parts)", i, s.Title(), len(s.Parts))
	}

	eng := engine.New()
	eng.SetVolume(cfg.Volume)
	eng.SetSong(songs[0])
	if err := eng.SelectPart(0); err != nil {
		log.Fatalf("select part: %v", err)
	}

	var songMu sync.Mutex
	selectSong := func(i int) error {
		songMu.Lock()
		defer songMu.Unlock()
		if i < 0 || i >= len(songs) {
			return fmt.Errorf("song index %d out of range", i)
		}
		eng.SetSong(songs[i])
		return eng.SelectPart(0)
	}

	broadcaster := stream.NewBroadcaster()

	if cfg.Local {
		// The local device callback becomes the single consumer of the
		// engine's pull surface, so the broadcast pump stays off and the
		// network stream endpoints report unavailable.
		rate := beep.SampleRate(eng.SampleRate())
		if err := speaker.Init(rate, rate.N(cfg.DeviceLag)); err != nil {
			log.Fatalf("speaker init: %v", err)
		}
		speaker.Play(eng)
		log.Printf("local playback at %d Hz (network streaming disabled)", eng.SampleRate())
	} else {
		pump := stream.NewPump(eng)
		go pump.Run(ctx)
		go broadcaster.Run(ctx, pump.Batches())
	}

	hub := stream.NewHub()
	go hub.Run()
	wsHandler := stream.NewWSHandler(eng, hub, selectSong)
	webrtcHandler := stream.NewWebRTCHandler(broadcaster, eng.SampleRate, cfg.StreamName)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "loopmix")
		fmt.Fprintln(w, "  GET  /stream         chunked MP3 of the live mix")
		fmt.Fprintln(w, "  POST /webrtc/offer   WebRTC SDP offer/answer (Opus)")
		fmt.Fprintln(w, "  GET  /ws             WebSocket status + control")
		fmt.Fprintln(w, "  GET  /api/status     playback status")
		fmt.Fprintln(w, "  GET  /api/songs      loaded songs inventory")
		fmt.Fprintln(w, "  POST /api/control    control command")
	})

	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, eng.SampleRate, cfg.StreamName))
	mux.Handle("/webrtc/offer", webrtcHandler)
	mux.Handle("/ws", wsHandler)

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"playback":         eng.Snapshot(),
			"http_listeners":   broadcaster.ListenerCount(),
			"webrtc_listeners": webrtcHandler.PeerCount(),
			"control_clients":  hub.ClientCount(),
		})
	})

	mux.HandleFunc("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(songsInventory(songs))
	})

	mux.HandleFunc("/api/control", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var cm stream.ControlMsg
		if err := json.NewDecoder(r.Body).Decode(&cm); err != nil {
			http.Error(w, "invalid control message", http.StatusBadRequest)
			return
		}
		if err := wsHandler.Apply(cm); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wsHandler.BroadcastStatus()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "playback": eng.Snapshot()})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("loopmix live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func songsInventory(songs []*song.Song) []map[string]any {
	out := make([]map[string]any, 0, len(songs))
	for i, s := range songs {
		parts := make([]map[string]any, 0, len(s.Parts))
		for _, p := range s.Parts {
			parts = append(parts, map[string]any{
				"name":       p.Name,
				"title":      p.Title,
				"variants":   p.Layout.VariantNames(),
				"layers":     p.Layout.LayerNames(),
				"rate":       p.Track.Rate,
				"frames":     p.Track.Frames(),
				"loop_start": p.Track.LoopStart,
				"loop_end":   p.Track.LoopEnd,
			})
		}
		entry := map[string]any{
			"index": i,
			"title": s.Title(),
			"parts": parts,
		}
		if !s.Tags.Empty() {
			entry["tags"] = s.Tags.String()
		}
		out = append(out, entry)
	}
	return out
}
