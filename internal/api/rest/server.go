// Package rest exposes the playback controller's adapter surface over
// HTTP: command-enqueue endpoints, snapshot reads, and an SSE stream of
// playback events.
package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/app/command"
	"github.com/osa030/sonobox/internal/app/notification"
	"github.com/osa030/sonobox/internal/app/playback"
	"github.com/osa030/sonobox/internal/domain/track"
	"github.com/osa030/sonobox/internal/infra/catalog"
)

// Server holds the HTTP facade's collaborators. Every write goes
// through the controller's enqueue methods; reads use its snapshots.
type Server struct {
	ctrl        *playback.Controller
	broadcaster *notification.Broadcaster
	playlists   *catalog.Playlists
	keepalive   time.Duration
}

// New creates the HTTP facade. playlists may be nil when no playlist
// directory is configured.
func New(ctrl *playback.Controller, b *notification.Broadcaster, playlists *catalog.Playlists, keepalive time.Duration) *Server {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &Server{ctrl: ctrl, broadcaster: b, playlists: playlists, keepalive: keepalive}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Snapshot reads
	r.Get("/state", s.handleState)
	r.Get("/queue", s.handleQueue)
	r.Get("/queuedepth", s.handleQueueDepth)
	r.Get("/playing", s.handlePlaying)
	r.Get("/stats", s.handleStats)

	// Playback control
	r.Post("/play", s.command(s.ctrl.EnqueuePlay))
	r.Post("/pause", s.command(s.ctrl.EnqueuePause))
	r.Post("/stop", s.command(s.ctrl.EnqueueStop))
	r.Post("/next", s.command(s.ctrl.EnqueueNext))
	r.Post("/prev", s.command(s.ctrl.EnqueuePrev))

	// Volume and settings
	r.Post("/volume/up", s.command(s.ctrl.EnqueueVolumeUp))
	r.Post("/volume/down", s.command(s.ctrl.EnqueueVolumeDown))
	r.Post("/volume", s.handleSetVolume)
	r.Post("/repeat", s.command(s.ctrl.EnqueueToggleRepeat))
	r.Post("/shuffle", s.command(s.ctrl.EnqueueToggleShuffle))

	// Queue management
	r.Post("/queue/clear", s.command(s.ctrl.EnqueueClearQueue))
	r.Post("/song", s.handleAddSong)
	r.Post("/album/{albumID}", s.handleAddAlbum)

	// Playlists
	r.Get("/playlists", s.handleListPlaylists)
	r.Get("/playlist/{name}", s.handleShowPlaylist)
	r.Post("/playlist/{name}", s.handleQueuePlaylist)

	// Zone management
	r.Post("/zone/{ip}", s.handleSwitchZone)

	// Event stream
	r.Get("/events", s.handleEvents)

	return r
}

// command adapts a no-payload enqueue method into a handler.
func (s *Server) command(enqueue func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.enqueue(w, enqueue())
	}
}

// enqueue writes the standard response for an enqueue attempt,
// surfacing queue backpressure as 503.
func (s *Server) enqueue(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case errors.Is(err, command.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "command queue is full, retry later")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Queue())
}

func (s *Server) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"queuedepth": s.ctrl.State().QueueDepth})
}

func (s *Server) handlePlaying(w http.ResponseWriter, r *http.Request) {
	playing, ok := s.ctrl.Playing()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, playing)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.ctrl.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"controller":     stats,
		"subscribers":    s.broadcaster.SubscriberCount(),
		"events_dropped": s.broadcaster.Dropped(),
		"ts":             time.Now().Unix(),
	})
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid volume payload")
		return
	}
	s.enqueue(w, s.ctrl.EnqueueSetVolume(body.Volume))
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var song track.Track
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		writeError(w, http.StatusBadRequest, "invalid song payload")
		return
	}
	if song.URI == "" {
		writeError(w, http.StatusBadRequest, "song path is required")
		return
	}
	s.enqueue(w, s.ctrl.EnqueueAddSong(song))
}

func (s *Server) handleAddAlbum(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, s.ctrl.EnqueueAddAlbum(chi.URLParam(r, "albumID")))
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	if s.playlists == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := s.playlists.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleShowPlaylist(w http.ResponseWriter, r *http.Request) {
	if s.playlists == nil {
		writeError(w, http.StatusNotFound, "no playlist directory configured")
		return
	}
	songs, err := s.playlists.Tracks(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// handleQueuePlaylist loads a playlist into the queue. Shuffle is a
// producer concern: the batch is shuffled here, before enqueueing, when
// the controller's shuffle flag is set. The controller never reorders
// an already-enqueued batch.
func (s *Server) handleQueuePlaylist(w http.ResponseWriter, r *http.Request) {
	if s.playlists == nil {
		writeError(w, http.StatusNotFound, "no playlist directory configured")
		return
	}
	name := chi.URLParam(r, "name")
	songs, err := s.playlists.Tracks(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if s.ctrl.State().Shuffle {
		shuffleTracks(songs)
	}

	zlog.Info().Msgf("rest: queueing playlist %s (%d songs)", name, len(songs))
	s.enqueue(w, s.ctrl.EnqueueAddPlaylist(songs))
}

func (s *Server) handleSwitchZone(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, s.ctrl.EnqueueSwitchZone(chi.URLParam(r, "ip")))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Debug().Msgf("rest: error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
