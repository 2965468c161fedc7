// Package command provides the command vocabulary and the thread-safe
// command queue consumed by the playback controller.
package command

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/osa030/sonobox/internal/domain/track"
)

// Type identifies a controller command.
type Type int

const (
	// Playback control
	Play Type = iota
	Pause
	Stop
	Next
	Prev

	// Queue management
	AddSong
	AddSongs
	AddAlbum
	AddPlaylist
	ClearQueue

	// Settings
	SetVolume
	VolumeUp
	VolumeDown
	ToggleRepeat
	ToggleShuffle

	// Zone management
	SwitchZone

	// Internal commands, produced only by the controller and the
	// playback monitor. Never exposed through the adapter surface.
	TrackEnded
	UpdateState
)

// String returns the string representation of the command type.
func (t Type) String() string {
	switch t {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	case Next:
		return "next"
	case Prev:
		return "prev"
	case AddSong:
		return "add_song"
	case AddSongs:
		return "add_songs"
	case AddAlbum:
		return "add_album"
	case AddPlaylist:
		return "add_playlist"
	case ClearQueue:
		return "clear_queue"
	case SetVolume:
		return "set_volume"
	case VolumeUp:
		return "volume_up"
	case VolumeDown:
		return "volume_down"
	case ToggleRepeat:
		return "toggle_repeat"
	case ToggleShuffle:
		return "toggle_shuffle"
	case SwitchZone:
		return "switch_zone"
	case TrackEnded:
		return "_track_ended"
	case UpdateState:
		return "_update_state"
	default:
		return "unknown"
	}
}

// Internal reports whether the command type is controller-internal.
func (t Type) Internal() bool {
	return t == TrackEnded || t == UpdateState
}

// Command is an immutable instruction consumed exactly once by the
// controller goroutine. Data carries the optional payload; Callback, if
// set, is invoked on the controller goroutine after the command has been
// handled.
type Command struct {
	Type      Type
	Data      map[string]any
	Callback  func()
	CreatedAt time.Time
}

// New creates a command without a payload.
func New(t Type) Command {
	return Command{Type: t, CreatedAt: time.Now()}
}

// NewWithData creates a command carrying a payload map.
func NewWithData(t Type, data map[string]any) Command {
	return Command{Type: t, Data: data, CreatedAt: time.Now()}
}

// DecodeData decodes the payload map into a typed payload struct.
func (c Command) DecodeData(out any) error {
	return mapstructure.Decode(c.Data, out)
}

// Typed payloads for commands that carry data. Producers build the map
// with the matching constructor; handlers decode with DecodeData.

// AddSongData is the payload for AddSong.
type AddSongData struct {
	Song track.Track `mapstructure:"song"`
}

// AddSongsData is the payload for AddSongs and AddPlaylist.
type AddSongsData struct {
	Songs []track.Track `mapstructure:"songs"`
}

// AddAlbumData is the payload for AddAlbum.
type AddAlbumData struct {
	AlbumID string `mapstructure:"album_id"`
}

// SetVolumeData is the payload for SetVolume.
type SetVolumeData struct {
	Volume int `mapstructure:"volume"`
}

// SwitchZoneData is the payload for SwitchZone.
type SwitchZoneData struct {
	ZoneIP string `mapstructure:"zone_ip"`
}

// UpdateStateData is the payload for UpdateState.
type UpdateStateData struct {
	State string `mapstructure:"state"`
}

// NewAddSong builds an AddSong command.
func NewAddSong(song track.Track) Command {
	return NewWithData(AddSong, map[string]any{"song": song})
}

// NewAddSongs builds an AddSongs command.
func NewAddSongs(songs []track.Track) Command {
	return NewWithData(AddSongs, map[string]any{"songs": songs})
}

// NewAddPlaylist builds an AddPlaylist command.
func NewAddPlaylist(songs []track.Track) Command {
	return NewWithData(AddPlaylist, map[string]any{"songs": songs})
}

// NewAddAlbum builds an AddAlbum command.
func NewAddAlbum(albumID string) Command {
	return NewWithData(AddAlbum, map[string]any{"album_id": albumID})
}

// NewSetVolume builds a SetVolume command.
func NewSetVolume(volume int) Command {
	return NewWithData(SetVolume, map[string]any{"volume": volume})
}

// NewSwitchZone builds a SwitchZone command.
func NewSwitchZone(zoneIP string) Command {
	return NewWithData(SwitchZone, map[string]any{"zone_ip": zoneIP})
}

// NewUpdateState builds an UpdateState command.
func NewUpdateState(state string) Command {
	return NewWithData(UpdateState, map[string]any{"state": state})
}
