package rest

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/app/notification"
	"github.com/osa030/sonobox/internal/domain/track"
)

// handleEvents streams playback events to one subscriber over SSE.
// Each connection has its own bounded mailbox in the broadcaster and
// emits a keepalive comment when no event arrives within the window.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(sub.ID)

	// Prime the new client with the current state so it does not have
	// to wait for the next transition.
	snap := s.ctrl.State()
	writeSSE(w, notification.Event{
		Type: notification.EventStateChanged,
		Payload: map[string]any{
			"state":   snap.StateName,
			"repeat":  snap.Repeat,
			"shuffle": snap.Shuffle,
		},
	})
	flusher.Flush()

	keepalive := time.NewTimer(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub.C:
			writeSSE(w, ev)
			flusher.Flush()
			resetTimer(keepalive, s.keepalive)
		case <-keepalive.C:
			// Comment line: ignored by EventSource, keeps proxies and
			// the TCP connection alive.
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
			keepalive.Reset(s.keepalive)
		}
	}
}

func writeSSE(w http.ResponseWriter, ev notification.Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		zlog.Debug().Msgf("rest: error marshaling event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func shuffleTracks(songs []track.Track) {
	rand.Shuffle(len(songs), func(i, j int) {
		songs[i], songs[j] = songs[j], songs[i]
	})
}
