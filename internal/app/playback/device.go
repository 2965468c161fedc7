package playback

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/sonobox/internal/domain/track"
)

// ErrAlbumNotFound is returned by a Catalog for an unknown album ID.
var ErrAlbumNotFound = errors.New("album not found in catalog")

// Device abstracts the control surface of a physical playback device.
// All calls are synchronous and may fail; the controller treats failures
// as soft errors. Only the controller goroutine issues stateful calls.
type Device interface {
	Play() error
	Pause() error
	Stop() error
	PlayURI(uri string) error
	TransportState() (TransportState, error)
	Volume() (int, error)
	SetVolume(level int) error
	ClearQueue() error
	Name() string
}

// DeviceResolver binds a zone address to a Device. Injected into the
// controller so SwitchZone never reaches for a process-wide singleton.
type DeviceResolver func(zoneIP string) (Device, error)

// Catalog is the read-only lookup used when building tracks for
// AddAlbum commands.
type Catalog interface {
	AlbumTracks(albumID string) ([]track.Track, error)
}
