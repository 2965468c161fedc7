package sonos

import (
	"net"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sonobox/internal/app/playback"
)

// Speaker drives one Sonos zone player. It implements playback.Device;
// only the controller goroutine issues its stateful calls.
type Speaker struct {
	ip     string
	client *client
}

// NewSpeaker creates a speaker driver for the zone player at ip.
func NewSpeaker(ip string, timeout time.Duration) *Speaker {
	return &Speaker{ip: ip, client: newClient(ip, timeout)}
}

// Resolver returns a playback.DeviceResolver that binds zone IPs to
// speaker drivers, for SwitchZone.
func Resolver(timeout time.Duration) playback.DeviceResolver {
	return func(zoneIP string) (playback.Device, error) {
		if net.ParseIP(zoneIP) == nil {
			return nil, errors.Newf("invalid zone ip: %q", zoneIP)
		}
		return NewSpeaker(zoneIP, timeout), nil
	}
}

// Play resumes playback of the current transport URI.
func (s *Speaker) Play() error {
	_, err := s.client.call(avTransportType, avTransportPath, "Play", map[string]string{
		"InstanceID": "0",
		"Speed":      "1",
	})
	return err
}

// Pause pauses playback.
func (s *Speaker) Pause() error {
	_, err := s.client.call(avTransportType, avTransportPath, "Pause", map[string]string{
		"InstanceID": "0",
	})
	return err
}

// Stop halts playback.
func (s *Speaker) Stop() error {
	_, err := s.client.call(avTransportType, avTransportPath, "Stop", map[string]string{
		"InstanceID": "0",
	})
	return err
}

// PlayURI points the transport at a URI and starts playback.
func (s *Speaker) PlayURI(uri string) error {
	_, err := s.client.call(avTransportType, avTransportPath, "SetAVTransportURI", map[string]string{
		"InstanceID":         "0",
		"CurrentURI":         uri,
		"CurrentURIMetaData": "",
	})
	if err != nil {
		return err
	}
	return s.Play()
}

// TransportState returns the device's observed transport state.
func (s *Speaker) TransportState() (playback.TransportState, error) {
	payload, err := s.client.call(avTransportType, avTransportPath, "GetTransportInfo", map[string]string{
		"InstanceID": "0",
	})
	if err != nil {
		return playback.Stopped, err
	}
	return playback.ParseTransportState(extractText(payload, "CurrentTransportState")), nil
}

// Volume returns the current volume level.
func (s *Speaker) Volume() (int, error) {
	payload, err := s.client.call(renderingCtrlType, renderingCtrlPath, "GetVolume", map[string]string{
		"InstanceID": "0",
		"Channel":    "Master",
	})
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(extractText(payload, "CurrentVolume"))
	if err != nil {
		return 0, errors.Wrap(err, "parse volume")
	}
	return v, nil
}

// SetVolume sets the volume level.
func (s *Speaker) SetVolume(level int) error {
	_, err := s.client.call(renderingCtrlType, renderingCtrlPath, "SetVolume", map[string]string{
		"InstanceID":    "0",
		"Channel":       "Master",
		"DesiredVolume": strconv.Itoa(level),
	})
	return err
}

// ClearQueue removes all tracks from the device's native queue.
func (s *Speaker) ClearQueue() error {
	_, err := s.client.call(avTransportType, avTransportPath, "RemoveAllTracksFromQueue", map[string]string{
		"InstanceID": "0",
	})
	return err
}

// Name returns the zone player address for logging.
func (s *Speaker) Name() string {
	return s.ip
}
