package notification

import "github.com/osa030/sonobox/internal/app/playback"

// Constructors translating controller hook payloads into wire events.
// The payload shapes are what the web UI reads off the event stream.

// TrackChangedEvent builds a track_changed event.
func TrackChangedEvent(ch playback.TrackChange) Event {
	return Event{
		Type: EventTrackChanged,
		Payload: map[string]any{
			"title":     ch.Track.Title,
			"artist":    ch.Track.Artist,
			"album":     ch.Track.Album,
			"position":  "0:00:00",
			"duration":  ch.Track.Length,
			"album_art": ch.Track.AlbumArtURI,
		},
	}
}

// QueueChangedEvent builds a queue_changed event.
func QueueChangedEvent(ch playback.QueueChange) Event {
	return Event{
		Type:    EventQueueChanged,
		Payload: map[string]any{"queuedepth": ch.Depth},
	}
}

// StateChangedEvent builds a state_changed event.
func StateChangedEvent(ch playback.StateChange) Event {
	return Event{
		Type: EventStateChanged,
		Payload: map[string]any{
			"state":   ch.State.String(),
			"repeat":  ch.Repeat,
			"shuffle": ch.Shuffle,
		},
	}
}

// VolumeChangedEvent builds a volume_changed event.
func VolumeChangedEvent(ch playback.VolumeChange) Event {
	return Event{
		Type:    EventVolumeChanged,
		Payload: map[string]any{"volume": ch.Volume},
	}
}

// Attach wires the four controller hooks to the broadcaster.
func Attach(ctrl *playback.Controller, b *Broadcaster) {
	ctrl.OnTrackChanged = func(ch playback.TrackChange) { b.Publish(TrackChangedEvent(ch)) }
	ctrl.OnQueueChanged = func(ch playback.QueueChange) { b.Publish(QueueChangedEvent(ch)) }
	ctrl.OnStateChanged = func(ch playback.StateChange) { b.Publish(StateChangedEvent(ch)) }
	ctrl.OnVolumeChanged = func(ch playback.VolumeChange) { b.Publish(VolumeChangedEvent(ch)) }
}
