package playback

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sonobox/internal/domain/track"
)

// fakeDevice simulates a zone player without hardware. It records every
// stateful call and can be told to fail specific URIs or everything.
type fakeDevice struct {
	mu        sync.Mutex
	name      string
	transport TransportState
	volume    int
	calls     []string
	played    []string
	failURIs  map[string]bool
	failAll   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{name: "fake", volume: 50, failURIs: map[string]bool{}}
}

func (d *fakeDevice) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	if d.failAll {
		return errors.New("device unreachable")
	}
	return nil
}

func (d *fakeDevice) Play() error {
	if err := d.record("play"); err != nil {
		return err
	}
	d.mu.Lock()
	d.transport = Playing
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Pause() error {
	if err := d.record("pause"); err != nil {
		return err
	}
	d.mu.Lock()
	d.transport = Paused
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Stop() error {
	if err := d.record("stop"); err != nil {
		return err
	}
	d.mu.Lock()
	d.transport = Stopped
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) PlayURI(uri string) error {
	if err := d.record("play_uri:" + uri); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failURIs[uri] {
		return errors.Newf("cannot play %s", uri)
	}
	d.played = append(d.played, uri)
	d.transport = Playing
	return nil
}

func (d *fakeDevice) TransportState() (TransportState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return Stopped, errors.New("device unreachable")
	}
	return d.transport, nil
}

func (d *fakeDevice) Volume() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume, nil
}

func (d *fakeDevice) SetVolume(level int) error {
	if err := d.record("set_volume"); err != nil {
		return err
	}
	d.mu.Lock()
	d.volume = level
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) ClearQueue() error { return d.record("clear_queue") }

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) setTransport(s TransportState) {
	d.mu.Lock()
	d.transport = s
	d.mu.Unlock()
}

func (d *fakeDevice) playedURIs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.played))
	copy(out, d.played)
	return out
}

func (d *fakeDevice) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// fakeCatalog serves a fixed album table.
type fakeCatalog struct {
	albums map[string][]track.Track
}

func (c *fakeCatalog) AlbumTracks(albumID string) ([]track.Track, error) {
	songs, ok := c.albums[albumID]
	if !ok {
		return nil, errors.Wrapf(ErrAlbumNotFound, "album %s", albumID)
	}
	return songs, nil
}
