package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sonobox/internal/app/command"
	"github.com/osa030/sonobox/internal/domain/track"
)

var (
	trackA = track.Track{Title: "A", Artist: "Artist", URI: "http://media/a.mp3"}
	trackB = track.Track{Title: "B", Artist: "Artist", URI: "http://media/b.mp3"}
	trackC = track.Track{Title: "C", Artist: "Artist", URI: "http://media/c.mp3"}
)

// newTestController builds a controller whose dispatch is driven
// directly by the tests, without the loop goroutine.
func newTestController(t *testing.T) (*Controller, *fakeDevice) {
	t.Helper()
	device := newFakeDevice()
	ctrl := NewController(device, nil, nil, Config{})
	return ctrl, device
}

func TestController_Next(t *testing.T) {
	t.Run("pops queue head", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.queue = []track.Track{trackA, trackB}

		ctrl.dispatch(command.New(command.Next))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "A", playing.Title)
		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
		assert.Equal(t, Playing, ctrl.State().State)
		assert.Equal(t, []string{trackA.URI}, device.playedURIs())
		assert.Equal(t, 1, ctrl.Stats().SongsPlayed)
	})

	t.Run("repeat re-appends popped track", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.queue = []track.Track{trackA}
		ctrl.repeat = true

		ctrl.dispatch(command.New(command.Next))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "A", playing.Title)
		assert.Equal(t, []track.Track{trackA}, ctrl.Queue())
	})

	t.Run("empty queue clears now playing", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.playing = trackA

		ctrl.dispatch(command.New(command.Next))

		_, ok := ctrl.Playing()
		assert.False(t, ok)
	})

	t.Run("skips to next track on device failure", func(t *testing.T) {
		ctrl, device := newTestController(t)
		device.failURIs[trackA.URI] = true
		device.failURIs[trackB.URI] = true
		ctrl.queue = []track.Track{trackA, trackB, trackC}

		ctrl.dispatch(command.New(command.Next))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "C", playing.Title)
		assert.Empty(t, ctrl.Queue())
		assert.Equal(t, []string{trackC.URI}, device.playedURIs())
	})

	t.Run("gives up when every queued track fails", func(t *testing.T) {
		ctrl, device := newTestController(t)
		device.failURIs[trackA.URI] = true
		device.failURIs[trackB.URI] = true
		ctrl.queue = []track.Track{trackA, trackB}

		var depths []int
		ctrl.OnQueueChanged = func(ch QueueChange) { depths = append(depths, ch.Depth) }

		ctrl.dispatch(command.New(command.Next))

		assert.Empty(t, ctrl.Queue())
		assert.Empty(t, device.playedURIs())
		// Nothing is left as now playing and subscribers see the
		// drained queue.
		_, ok := ctrl.Playing()
		assert.False(t, ok)
		assert.Equal(t, []int{0}, depths)
		assert.Equal(t, 1, ctrl.Stats().CommandsProcessed)
		assert.Equal(t, 0, ctrl.Stats().Errors)
	})

	t.Run("repeat with a failing device terminates", func(t *testing.T) {
		ctrl, device := newTestController(t)
		device.failURIs[trackA.URI] = true
		ctrl.queue = []track.Track{trackA}
		ctrl.repeat = true

		// A failed track must not rejoin the tail, or this dispatch
		// would never finish.
		ctrl.dispatch(command.New(command.Next))

		assert.Empty(t, ctrl.Queue())
		_, ok := ctrl.Playing()
		assert.False(t, ok)
	})

	t.Run("repeat skips failed tracks but keeps the playable one", func(t *testing.T) {
		ctrl, device := newTestController(t)
		device.failURIs[trackA.URI] = true
		ctrl.queue = []track.Track{trackA, trackB}
		ctrl.repeat = true

		ctrl.dispatch(command.New(command.Next))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "B", playing.Title)
		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
	})
}

func TestController_Prev(t *testing.T) {
	t.Run("replays current track", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.playing = trackA

		ctrl.dispatch(command.New(command.Prev))

		assert.Equal(t, []string{trackA.URI}, device.playedURIs())
		assert.Equal(t, Playing, ctrl.State().State)
	})

	t.Run("no-op when nothing has ever played", func(t *testing.T) {
		ctrl, device := newTestController(t)

		ctrl.dispatch(command.New(command.Prev))

		assert.Empty(t, device.playedURIs())
		assert.Equal(t, Stopped, ctrl.State().State)
	})
}

func TestController_PlayPauseStop(t *testing.T) {
	ctrl, device := newTestController(t)

	ctrl.dispatch(command.New(command.Play))
	assert.Equal(t, Playing, ctrl.State().State)

	ctrl.dispatch(command.New(command.Pause))
	assert.Equal(t, Paused, ctrl.State().State)

	ctrl.dispatch(command.New(command.Stop))
	assert.Equal(t, Stopped, ctrl.State().State)

	assert.Equal(t, []string{"play", "pause", "stop"}, device.callLog())
}

func TestController_PlayFailureKeepsState(t *testing.T) {
	ctrl, device := newTestController(t)
	device.failAll = true

	ctrl.dispatch(command.New(command.Play))

	// Device failure is a soft error: intent is unchanged and the
	// command still completes.
	assert.Equal(t, Stopped, ctrl.State().State)
	assert.Equal(t, 1, ctrl.Stats().CommandsProcessed)
}

func TestController_TrackEnded(t *testing.T) {
	t.Run("advances when playing with queue", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.state = Playing
		ctrl.playing = trackA
		ctrl.queue = []track.Track{trackB}

		ctrl.dispatch(command.New(command.TrackEnded))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "B", playing.Title)
		assert.Equal(t, 1, ctrl.Stats().AutoPlays)
	})

	t.Run("stops when playing with empty queue", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.state = Playing
		ctrl.playing = trackA

		ctrl.dispatch(command.New(command.TrackEnded))

		_, ok := ctrl.Playing()
		assert.False(t, ok)
		assert.Equal(t, Stopped, ctrl.State().State)
	})

	t.Run("respects paused intent", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.state = Paused
		ctrl.playing = trackA
		ctrl.queue = []track.Track{trackB}

		ctrl.dispatch(command.New(command.TrackEnded))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "A", playing.Title)
		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
		assert.Equal(t, Paused, ctrl.State().State)
		assert.Empty(t, device.playedURIs())
	})

	t.Run("respects stopped intent", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.state = Stopped
		ctrl.queue = []track.Track{trackB}

		ctrl.dispatch(command.New(command.TrackEnded))

		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
		assert.Empty(t, device.playedURIs())
	})
}

func TestController_AddSongs(t *testing.T) {
	t.Run("auto-starts on first enqueue", func(t *testing.T) {
		ctrl, _ := newTestController(t)

		ctrl.dispatch(command.NewAddSongs([]track.Track{trackA, trackB}))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "A", playing.Title)
		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
		assert.Equal(t, Playing, ctrl.State().State)
	})

	t.Run("appends without restart while playing", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.state = Playing
		ctrl.playing = trackA

		ctrl.dispatch(command.NewAddSongs([]track.Track{trackB}))

		playing, _ := ctrl.Playing()
		assert.Equal(t, "A", playing.Title)
		assert.Equal(t, []track.Track{trackB}, ctrl.Queue())
		assert.Empty(t, device.playedURIs())
	})

	t.Run("single song auto-starts too", func(t *testing.T) {
		ctrl, _ := newTestController(t)

		ctrl.dispatch(command.NewAddSong(trackA))

		playing, ok := ctrl.Playing()
		require.True(t, ok)
		assert.Equal(t, "A", playing.Title)
		assert.Empty(t, ctrl.Queue())
	})
}

func TestController_AddAlbum(t *testing.T) {
	catalog := &fakeCatalog{albums: map[string][]track.Track{
		"42": {trackA, trackB},
	}}

	t.Run("queues album tracks", func(t *testing.T) {
		device := newFakeDevice()
		ctrl := NewController(device, catalog, nil, Config{})
		ctrl.state = Playing
		ctrl.playing = trackC

		ctrl.dispatch(command.NewAddAlbum("42"))

		assert.Equal(t, []track.Track{trackA, trackB}, ctrl.Queue())
	})

	t.Run("unknown album leaves queue unchanged", func(t *testing.T) {
		device := newFakeDevice()
		ctrl := NewController(device, catalog, nil, Config{})

		ctrl.dispatch(command.NewAddAlbum("nope"))

		assert.Empty(t, ctrl.Queue())
		assert.Equal(t, 0, ctrl.Stats().Errors)
	})
}

func TestController_ClearQueue(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctrl.state = Playing
	ctrl.playing = trackA
	ctrl.queue = []track.Track{trackB, trackC}

	ctrl.dispatch(command.New(command.ClearQueue))

	assert.Empty(t, ctrl.Queue())
	// Clearing the queue never interrupts the current track.
	playing, ok := ctrl.Playing()
	require.True(t, ok)
	assert.Equal(t, "A", playing.Title)
	assert.Equal(t, Playing, ctrl.State().State)
}

func TestController_Volume(t *testing.T) {
	t.Run("clamps above maximum", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.volume = 100

		ctrl.dispatch(command.New(command.VolumeUp))

		assert.Equal(t, 100, ctrl.State().Volume)
		assert.Equal(t, 100, device.volume)
	})

	t.Run("clamps below minimum", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.volume = 0

		ctrl.dispatch(command.New(command.VolumeDown))

		assert.Equal(t, 0, ctrl.State().Volume)
	})

	t.Run("set volume clamps out-of-range targets", func(t *testing.T) {
		ctrl, _ := newTestController(t)

		ctrl.dispatch(command.NewSetVolume(150))
		assert.Equal(t, 100, ctrl.State().Volume)

		ctrl.dispatch(command.NewSetVolume(-5))
		assert.Equal(t, 0, ctrl.State().Volume)
	})

	t.Run("volume survives arbitrary step sequences", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		ctrl.volume = 98

		for i := 0; i < 10; i++ {
			ctrl.dispatch(command.New(command.VolumeUp))
		}
		assert.Equal(t, 100, ctrl.State().Volume)

		for i := 0; i < 200; i++ {
			ctrl.dispatch(command.New(command.VolumeDown))
		}
		assert.Equal(t, 0, ctrl.State().Volume)
	})

	t.Run("device failure leaves volume unchanged", func(t *testing.T) {
		ctrl, device := newTestController(t)
		ctrl.volume = 40
		device.failAll = true

		ctrl.dispatch(command.NewSetVolume(80))

		assert.Equal(t, 40, ctrl.State().Volume)
	})
}

func TestController_Toggles(t *testing.T) {
	ctrl, _ := newTestController(t)

	ctrl.dispatch(command.New(command.ToggleRepeat))
	assert.True(t, ctrl.State().Repeat)
	ctrl.dispatch(command.New(command.ToggleRepeat))
	assert.False(t, ctrl.State().Repeat)

	ctrl.dispatch(command.New(command.ToggleShuffle))
	ctrl.dispatch(command.New(command.ToggleShuffle))
	assert.False(t, ctrl.State().Shuffle)
}

func TestController_SwitchZone(t *testing.T) {
	second := newFakeDevice()
	second.name = "second"

	device := newFakeDevice()
	resolver := func(zoneIP string) (Device, error) {
		return second, nil
	}
	ctrl := NewController(device, nil, resolver, Config{})

	ctrl.dispatch(command.NewSwitchZone("192.168.1.41"))

	assert.Equal(t, "second", ctrl.Device().Name())
}

func TestController_UpdateState(t *testing.T) {
	ctrl, _ := newTestController(t)

	ctrl.dispatch(command.NewUpdateState("PAUSED"))
	assert.Equal(t, Paused, ctrl.State().State)

	ctrl.dispatch(command.NewUpdateState("PLAYING"))
	assert.Equal(t, Playing, ctrl.State().State)
}

func TestController_Hooks(t *testing.T) {
	t.Run("fires hooks on mutations", func(t *testing.T) {
		ctrl, _ := newTestController(t)

		var mu sync.Mutex
		var events []string
		ctrl.OnTrackChanged = func(TrackChange) {
			mu.Lock()
			events = append(events, "track")
			mu.Unlock()
		}
		ctrl.OnQueueChanged = func(QueueChange) {
			mu.Lock()
			events = append(events, "queue")
			mu.Unlock()
		}
		ctrl.OnStateChanged = func(StateChange) {
			mu.Lock()
			events = append(events, "state")
			mu.Unlock()
		}
		ctrl.OnVolumeChanged = func(VolumeChange) {
			mu.Lock()
			events = append(events, "volume")
			mu.Unlock()
		}

		ctrl.dispatch(command.NewAddSongs([]track.Track{trackA}))
		ctrl.dispatch(command.New(command.VolumeUp))
		ctrl.dispatch(command.New(command.Pause))

		mu.Lock()
		defer mu.Unlock()
		assert.Contains(t, events, "track")
		assert.Contains(t, events, "queue")
		assert.Contains(t, events, "state")
		assert.Contains(t, events, "volume")
	})

	t.Run("panicking hook does not abort dispatch", func(t *testing.T) {
		ctrl, _ := newTestController(t)
		stateFired := false
		ctrl.OnQueueChanged = func(QueueChange) { panic("bad observer") }
		ctrl.OnTrackChanged = func(TrackChange) { stateFired = true }

		ctrl.dispatch(command.NewAddSongs([]track.Track{trackA}))

		assert.True(t, stateFired)
		assert.Equal(t, 1, ctrl.Stats().CommandsProcessed)
		assert.Equal(t, 0, ctrl.Stats().Errors)
	})
}

func TestController_Callback(t *testing.T) {
	ctrl, _ := newTestController(t)
	done := false
	cmd := command.New(command.Play)
	cmd.Callback = func() { done = true }

	ctrl.dispatch(cmd)

	assert.True(t, done)
}

func TestController_DispatchLoop(t *testing.T) {
	const producers = 4
	const perProducer = 25

	ctrl, _ := newTestController(t)
	ctrl.Start()
	defer ctrl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, ctrl.EnqueueToggleRepeat())
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return ctrl.Stats().Queue.Processed == producers*perProducer
	}, 5*time.Second, 10*time.Millisecond)

	stats := ctrl.Stats()
	assert.Equal(t, producers*perProducer, stats.CommandsProcessed)
	assert.Equal(t, 0, stats.Queue.Pending)
	// Even toggle count restores the original value.
	assert.False(t, ctrl.State().Repeat)
}

func TestController_StartStop(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctrl.Start()
	ctrl.Start() // double start is a logged no-op
	ctrl.Stop()
	ctrl.Stop() // double stop is a no-op
}
