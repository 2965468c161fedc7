package playback

import (
	"time"

	"github.com/osa030/sonobox/internal/app/command"
	"github.com/osa030/sonobox/internal/domain/track"
)

// This file is the adapter surface used by request handlers: every write
// is translated into an enqueued command and every read returns a deep
// copy, so no caller ever touches controller-owned state directly.

// StateSnapshot is an immutable copy of the aggregate playback state.
type StateSnapshot struct {
	Playing    track.Track    `json:"playing"`
	HasPlaying bool           `json:"has_playing"`
	QueueDepth int            `json:"queue_depth"`
	State      TransportState `json:"-"`
	StateName  string         `json:"state"`
	Repeat     bool           `json:"repeat"`
	Shuffle    bool           `json:"shuffle"`
	Volume     int            `json:"volume"`
}

// ControllerStats combines controller counters with queue counters.
type ControllerStats struct {
	Stats
	Queue command.Stats `json:"queue_stats"`
}

// State returns a snapshot of the aggregate state.
func (c *Controller) State() StateSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StateSnapshot{
		Playing:    c.playing,
		HasPlaying: !c.playing.IsZero(),
		QueueDepth: len(c.queue),
		State:      c.state,
		StateName:  c.state.String(),
		Repeat:     c.repeat,
		Shuffle:    c.shuffle,
		Volume:     c.volume,
	}
}

// Queue returns a copy of the pending track queue in play order.
func (c *Controller) Queue() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]track.Track, len(c.queue))
	copy(out, c.queue)
	return out
}

// Playing returns the currently playing track, if any.
func (c *Controller) Playing() (track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playing, !c.playing.IsZero()
}

// Stats returns a copy of the controller and queue counters.
func (c *Controller) Stats() ControllerStats {
	c.mu.RLock()
	s := c.stats
	c.mu.RUnlock()
	return ControllerStats{Stats: s, Queue: c.commands.Stats()}
}

// Device returns the currently bound device.
func (c *Controller) Device() Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.device
}

// EnqueueTimeout reports how long a submission waits on a full command
// queue before failing with backpressure.
func (c *Controller) EnqueueTimeout() time.Duration {
	return c.config.EnqueueTimeout
}

// submit enqueues a command, surfacing backpressure to the caller.
func (c *Controller) submit(cmd command.Command) error {
	return c.commands.PutTimeout(cmd, c.config.EnqueueTimeout)
}

// EnqueuePlay requests playback resume.
func (c *Controller) EnqueuePlay() error { return c.submit(command.New(command.Play)) }

// EnqueuePause requests a pause.
func (c *Controller) EnqueuePause() error { return c.submit(command.New(command.Pause)) }

// EnqueueStop requests a stop.
func (c *Controller) EnqueueStop() error { return c.submit(command.New(command.Stop)) }

// EnqueueNext requests a skip to the next queued track.
func (c *Controller) EnqueueNext() error { return c.submit(command.New(command.Next)) }

// EnqueuePrev requests a replay of the current track.
func (c *Controller) EnqueuePrev() error { return c.submit(command.New(command.Prev)) }

// EnqueueAddSong appends one track to the queue tail.
func (c *Controller) EnqueueAddSong(song track.Track) error {
	return c.submit(command.NewAddSong(song))
}

// EnqueueAddSongs appends a batch of tracks to the queue tail.
func (c *Controller) EnqueueAddSongs(songs []track.Track) error {
	return c.submit(command.NewAddSongs(songs))
}

// EnqueueAddPlaylist appends playlist tracks to the queue tail.
func (c *Controller) EnqueueAddPlaylist(songs []track.Track) error {
	return c.submit(command.NewAddPlaylist(songs))
}

// EnqueueAddAlbum appends all tracks of a catalog album.
func (c *Controller) EnqueueAddAlbum(albumID string) error {
	return c.submit(command.NewAddAlbum(albumID))
}

// EnqueueClearQueue empties the queue without stopping playback.
func (c *Controller) EnqueueClearQueue() error {
	return c.submit(command.New(command.ClearQueue))
}

// EnqueueSetVolume requests an absolute volume level.
func (c *Controller) EnqueueSetVolume(volume int) error {
	return c.submit(command.NewSetVolume(volume))
}

// EnqueueVolumeUp requests a one-step volume increase.
func (c *Controller) EnqueueVolumeUp() error { return c.submit(command.New(command.VolumeUp)) }

// EnqueueVolumeDown requests a one-step volume decrease.
func (c *Controller) EnqueueVolumeDown() error { return c.submit(command.New(command.VolumeDown)) }

// EnqueueToggleRepeat flips the repeat flag.
func (c *Controller) EnqueueToggleRepeat() error {
	return c.submit(command.New(command.ToggleRepeat))
}

// EnqueueToggleShuffle flips the shuffle flag.
func (c *Controller) EnqueueToggleShuffle() error {
	return c.submit(command.New(command.ToggleShuffle))
}

// EnqueueSwitchZone rebinds the controller to a different zone device.
func (c *Controller) EnqueueSwitchZone(zoneIP string) error {
	return c.submit(command.NewSwitchZone(zoneIP))
}

// enqueueInternal is used by the monitor for controller-internal
// commands. Internal commands never wait on a full queue; a saturated
// queue means the next poll will retry anyway.
func (c *Controller) enqueueInternal(cmd command.Command) error {
	return c.commands.Put(cmd)
}
