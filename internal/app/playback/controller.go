package playback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/app/command"
	"github.com/osa030/sonobox/internal/domain/track"
)

const (
	maxVolume = 100
	minVolume = 0
)

// Config holds controller configuration.
type Config struct {
	GetTimeout     time.Duration // Dequeue wait before re-checking the running flag
	StopTimeout    time.Duration // How long Stop waits for the dispatch loop to exit
	EnqueueTimeout time.Duration // How long producers wait on a full command queue
	QueueSize      int           // Max pending commands (0 = unbounded)
}

func (c *Config) applyDefaults() {
	if c.GetTimeout <= 0 {
		c.GetTimeout = 100 * time.Millisecond
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = time.Second
	}
}

// Stats holds controller counters.
type Stats struct {
	CommandsProcessed int `json:"commands_processed"`
	Errors            int `json:"errors"`
	SongsPlayed       int `json:"songs_played"`
	AutoPlays         int `json:"auto_plays"`
}

// TrackChange is the payload of the track-changed hook.
type TrackChange struct {
	Track   track.Track
	Playing bool
}

// QueueChange is the payload of the queue-changed hook.
type QueueChange struct {
	Depth int
}

// StateChange is the payload of the state-changed hook.
type StateChange struct {
	State   TransportState
	Repeat  bool
	Shuffle bool
}

// VolumeChange is the payload of the volume-changed hook.
type VolumeChange struct {
	Volume int
}

// Controller owns all mutable playback state. Exactly one goroutine (the
// dispatch loop started by Start) mutates that state and issues stateful
// device calls; every other goroutine observes it through deep-copy
// snapshots or by enqueueing a command.
type Controller struct {
	commands *command.Queue
	config   Config
	resolver DeviceResolver
	catalog  Catalog

	// Guards the state below. The dispatch loop takes the write lock
	// for the duration of one command; snapshot getters take the read
	// lock for a quick copy.
	mu      sync.RWMutex
	device  Device
	queue   []track.Track
	playing track.Track
	state   TransportState
	repeat  bool
	shuffle bool
	volume  int
	stats   Stats

	// Notification hooks, fired synchronously on the dispatch
	// goroutine after each committed mutation. Registered callbacks
	// must not block. Set before Start.
	OnTrackChanged  func(TrackChange)
	OnQueueChanged  func(QueueChange)
	OnStateChanged  func(StateChange)
	OnVolumeChanged func(VolumeChange)

	running atomic.Bool
	done    chan struct{}
}

// NewController creates a controller bound to the given device.
// The resolver is used by SwitchZone; catalog by AddAlbum. Both may be
// nil for deployments that never issue those commands.
func NewController(device Device, catalog Catalog, resolver DeviceResolver, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		commands: command.NewBoundedQueue(cfg.QueueSize),
		config:   cfg,
		resolver: resolver,
		catalog:  catalog,
		device:   device,
		state:    Stopped,
		volume:   50,
	}
}

// Start launches the dispatch loop. The initial volume is read from the
// device best-effort so the first VolumeUp/VolumeDown clamps correctly.
func (c *Controller) Start() {
	if !c.running.CompareAndSwap(false, true) {
		zlog.Warn().Msg("controller: already running")
		return
	}

	if v, err := c.device.Volume(); err == nil {
		c.mu.Lock()
		c.volume = clampVolume(v)
		c.mu.Unlock()
	} else {
		zlog.Debug().Msgf("controller: could not read initial volume: %v", err)
	}

	c.done = make(chan struct{})
	go c.run()
	zlog.Info().Msgf("controller: started: device=%s", c.device.Name())
}

// Stop shuts the dispatch loop down. It waits up to StopTimeout for the
// loop to exit and logs, rather than hangs, when it does not.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	zlog.Info().Msg("controller: stopping...")
	select {
	case <-c.done:
		zlog.Info().Msg("controller: stopped")
	case <-time.After(c.config.StopTimeout):
		zlog.Warn().Msg("controller: dispatch loop did not stop cleanly")
	}
}

// run is the dispatch loop. This is the only place state is mutated.
func (c *Controller) run() {
	defer close(c.done)

	for c.running.Load() {
		cmd, ok := c.commands.Get(c.config.GetTimeout)
		if !ok {
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch processes one command. A failure in a single command can
// never halt the loop: errors and panics are recorded and the loop
// moves on.
func (c *Controller) dispatch(cmd command.Command) {
	c.mu.Lock()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("panic while handling %s: %v", cmd.Type, r)
			}
		}()
		return c.handleLocked(cmd)
	}()

	if err != nil {
		zlog.Error().Msgf("controller: error processing %s: %v", cmd.Type, err)
		c.stats.Errors++
		c.mu.Unlock()
		c.commands.MarkError()
		return
	}

	c.stats.CommandsProcessed++
	c.mu.Unlock()
	c.commands.MarkProcessed()

	if cmd.Callback != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zlog.Error().Msgf("controller: panic in command callback: %v", r)
				}
			}()
			cmd.Callback()
		}()
	}
}

// handleLocked routes one command to its handler. The command type is a
// closed enum; anything unknown is logged and otherwise ignored.
func (c *Controller) handleLocked(cmd command.Command) error {
	zlog.Debug().Msgf("controller: processing command: %s", cmd.Type)

	switch cmd.Type {
	case command.Play:
		c.handlePlayLocked()
	case command.Pause:
		c.handlePauseLocked()
	case command.Stop:
		c.handleStopLocked()
	case command.Next:
		c.handleNextLocked()
	case command.Prev:
		c.handlePrevLocked()
	case command.AddSong:
		return c.handleAddSongLocked(cmd)
	case command.AddSongs, command.AddPlaylist:
		return c.handleAddSongsLocked(cmd)
	case command.AddAlbum:
		return c.handleAddAlbumLocked(cmd)
	case command.ClearQueue:
		c.handleClearQueueLocked()
	case command.SetVolume:
		return c.handleSetVolumeLocked(cmd)
	case command.VolumeUp:
		c.handleVolumeStepLocked(1)
	case command.VolumeDown:
		c.handleVolumeStepLocked(-1)
	case command.ToggleRepeat:
		c.handleToggleRepeatLocked()
	case command.ToggleShuffle:
		c.handleToggleShuffleLocked()
	case command.SwitchZone:
		return c.handleSwitchZoneLocked(cmd)
	case command.TrackEnded:
		c.handleTrackEndedLocked()
	case command.UpdateState:
		return c.handleUpdateStateLocked(cmd)
	default:
		zlog.Warn().Msgf("controller: unknown command type: %d", cmd.Type)
	}
	return nil
}

// ---------------------------------------------------------------------
// Playback control
// ---------------------------------------------------------------------

func (c *Controller) handlePlayLocked() {
	if err := c.device.Play(); err != nil {
		zlog.Error().Msgf("controller: error resuming playback: %v", err)
		return
	}
	c.state = Playing
	c.notifyStateChangedLocked()
}

func (c *Controller) handlePauseLocked() {
	if err := c.device.Pause(); err != nil {
		zlog.Error().Msgf("controller: error pausing playback: %v", err)
		return
	}
	c.state = Paused
	c.notifyStateChangedLocked()
}

func (c *Controller) handleStopLocked() {
	if err := c.device.Stop(); err != nil {
		zlog.Error().Msgf("controller: error stopping playback: %v", err)
		return
	}
	c.state = Stopped
	c.notifyStateChangedLocked()
}

// handleNextLocked pops the queue head and plays it. On a device
// failure it moves on to the next queued track. A repeat re-append
// happens only after playback actually started, so a failing device
// drains at most the queue that existed on entry and can never loop.
func (c *Controller) handleNextLocked() {
	if len(c.queue) == 0 {
		zlog.Info().Msg("controller: next: queue empty")
		c.playing = track.Track{}
		c.notifyTrackChangedLocked()
		return
	}

	for len(c.queue) > 0 {
		c.playing = c.queue[0]
		c.queue = c.queue[1:]

		// Stop first so the device transitions cleanly between URIs.
		if err := c.device.Stop(); err != nil {
			zlog.Debug().Msgf("controller: pre-play stop failed: %v", err)
		}

		if err := c.device.PlayURI(c.playing.URI); err != nil {
			zlog.Error().Msgf("controller: error playing %s: %v", c.playing.DisplayName(), err)
			continue
		}

		if c.repeat {
			c.queue = append(c.queue, c.playing)
		}
		c.state = Playing
		c.stats.SongsPlayed++
		c.notifyTrackChangedLocked()
		c.notifyQueueChangedLocked()
		zlog.Info().Msgf("controller: now playing: %s", c.playing.DisplayName())
		return
	}

	zlog.Warn().Msg("controller: next: every queued track failed to play")
	c.playing = track.Track{}
	c.notifyTrackChangedLocked()
	c.notifyQueueChangedLocked()
}

func (c *Controller) handlePrevLocked() {
	if c.playing.IsZero() {
		zlog.Info().Msg("controller: prev: nothing playing")
		return
	}

	if err := c.device.PlayURI(c.playing.URI); err != nil {
		zlog.Error().Msgf("controller: error replaying %s: %v", c.playing.DisplayName(), err)
		return
	}
	c.state = Playing
	c.notifyTrackChangedLocked()
}

// handleTrackEndedLocked auto-advances, but only when the controller's
// own intent is Playing. A device-level end signal that arrives after a
// user pause or stop is a no-op.
func (c *Controller) handleTrackEndedLocked() {
	if c.state != Playing {
		zlog.Info().Msgf("controller: track ended but state is %s, not auto-playing", c.state)
		return
	}

	if len(c.queue) > 0 {
		c.stats.AutoPlays++
		c.handleNextLocked()
		return
	}

	zlog.Debug().Msg("controller: track ended, queue empty")
	c.state = Stopped
	c.playing = track.Track{}
	c.notifyStateChangedLocked()
	c.notifyTrackChangedLocked()
}

func (c *Controller) handleUpdateStateLocked(cmd command.Command) error {
	var data command.UpdateStateData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode update_state payload")
	}
	c.state = ParseTransportState(data.State)
	c.notifyStateChangedLocked()
	return nil
}

// ---------------------------------------------------------------------
// Queue management
// ---------------------------------------------------------------------

func (c *Controller) handleAddSongLocked(cmd command.Command) error {
	var data command.AddSongData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode add_song payload")
	}
	if data.Song.IsZero() {
		zlog.Warn().Msg("controller: add_song: empty track, queue unchanged")
		return nil
	}
	c.appendTracksLocked([]track.Track{data.Song})
	zlog.Info().Msgf("controller: added song: %s", data.Song.DisplayName())
	return nil
}

func (c *Controller) handleAddSongsLocked(cmd command.Command) error {
	var data command.AddSongsData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode add_songs payload")
	}
	if len(data.Songs) == 0 {
		return nil
	}
	c.appendTracksLocked(data.Songs)
	zlog.Info().Msgf("controller: added %d songs to queue", len(data.Songs))
	return nil
}

func (c *Controller) handleAddAlbumLocked(cmd command.Command) error {
	var data command.AddAlbumData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode add_album payload")
	}
	if c.catalog == nil {
		zlog.Warn().Msg("controller: add_album: no catalog configured")
		return nil
	}

	songs, err := c.catalog.AlbumTracks(data.AlbumID)
	if err != nil {
		// Unknown album is a no-op with a warning, not a failure.
		zlog.Warn().Msgf("controller: album %s not loaded: %v", data.AlbumID, err)
		return nil
	}
	c.appendTracksLocked(songs)
	zlog.Info().Msgf("controller: added %d songs from album %s", len(songs), data.AlbumID)
	return nil
}

// appendTracksLocked appends a batch to the queue tail and starts
// playback when the queue was empty and nothing was playing.
func (c *Controller) appendTracksLocked(songs []track.Track) {
	wasEmpty := len(c.queue) == 0 && c.playing.IsZero()
	c.queue = append(c.queue, songs...)
	c.notifyQueueChangedLocked()

	if wasEmpty && c.state != Playing {
		zlog.Info().Msg("controller: queue was empty, auto-starting playback")
		c.handleNextLocked()
	}
}

func (c *Controller) handleClearQueueLocked() {
	count := len(c.queue)
	c.queue = nil
	c.notifyQueueChangedLocked()
	zlog.Info().Msgf("controller: cleared queue (%d songs removed)", count)
}

// ---------------------------------------------------------------------
// Volume and settings
// ---------------------------------------------------------------------

func (c *Controller) handleSetVolumeLocked(cmd command.Command) error {
	var data command.SetVolumeData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode set_volume payload")
	}
	c.applyVolumeLocked(data.Volume)
	return nil
}

func (c *Controller) handleVolumeStepLocked(delta int) {
	c.applyVolumeLocked(c.volume + delta)
}

func (c *Controller) applyVolumeLocked(target int) {
	target = clampVolume(target)
	if err := c.device.SetVolume(target); err != nil {
		zlog.Error().Msgf("controller: error setting volume: %v", err)
		return
	}
	c.volume = target
	c.notifyVolumeChangedLocked()
}

func (c *Controller) handleToggleRepeatLocked() {
	c.repeat = !c.repeat
	c.notifyStateChangedLocked()
	zlog.Info().Msgf("controller: repeat: %v", c.repeat)
}

func (c *Controller) handleToggleShuffleLocked() {
	c.shuffle = !c.shuffle
	c.notifyStateChangedLocked()
	zlog.Info().Msgf("controller: shuffle: %v", c.shuffle)
}

func (c *Controller) handleSwitchZoneLocked(cmd command.Command) error {
	var data command.SwitchZoneData
	if err := cmd.DecodeData(&data); err != nil {
		return errors.Wrap(err, "decode switch_zone payload")
	}
	if c.resolver == nil {
		zlog.Warn().Msg("controller: switch_zone: no device resolver configured")
		return nil
	}

	device, err := c.resolver(data.ZoneIP)
	if err != nil {
		zlog.Error().Msgf("controller: error switching zone to %s: %v", data.ZoneIP, err)
		return nil
	}
	c.device = device
	zlog.Info().Msgf("controller: switched to zone: %s", data.ZoneIP)
	return nil
}

// ---------------------------------------------------------------------
// Notification hooks
// ---------------------------------------------------------------------

// fireHook isolates one observer invocation so a failing observer can
// never abort the dispatch loop or suppress the other hooks.
func fireHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("controller: panic in %s hook: %v", name, r)
		}
	}()
	fn()
}

func (c *Controller) notifyTrackChangedLocked() {
	if c.OnTrackChanged == nil {
		return
	}
	ev := TrackChange{Track: c.playing, Playing: !c.playing.IsZero()}
	fireHook("track_changed", func() { c.OnTrackChanged(ev) })
}

func (c *Controller) notifyQueueChangedLocked() {
	if c.OnQueueChanged == nil {
		return
	}
	ev := QueueChange{Depth: len(c.queue)}
	fireHook("queue_changed", func() { c.OnQueueChanged(ev) })
}

func (c *Controller) notifyStateChangedLocked() {
	if c.OnStateChanged == nil {
		return
	}
	ev := StateChange{State: c.state, Repeat: c.repeat, Shuffle: c.shuffle}
	fireHook("state_changed", func() { c.OnStateChanged(ev) })
}

func (c *Controller) notifyVolumeChangedLocked() {
	if c.OnVolumeChanged == nil {
		return
	}
	ev := VolumeChange{Volume: c.volume}
	fireHook("volume_changed", func() { c.OnVolumeChanged(ev) })
}

func clampVolume(v int) int {
	if v > maxVolume {
		return maxVolume
	}
	if v < minVolume {
		return minVolume
	}
	return v
}
