// Package catalog provides read-only track lookup from a media-library
// export plus m3u playlist loading.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/app/playback"
	"github.com/osa030/sonobox/internal/domain/track"
)

// albumRecord mirrors one album in the library export file.
type albumRecord struct {
	Title  string                 `json:"title"`
	Artist string                 `json:"artist"`
	Key    string                 `json:"key"`
	Tracks map[string]trackRecord `json:"tracks"`
}

// trackRecord mirrors one track entry inside an album record.
type trackRecord struct {
	Song   string   `json:"song"`
	Artist string   `json:"artist"`
	Length string   `json:"length"`
	Key    string   `json:"key"`
	Path   []string `json:"path"`
}

// Catalog serves immutable Track values built from a library export.
// It implements playback.Catalog.
type Catalog struct {
	albums    map[string]albumRecord
	songIndex map[string]string // song key -> album id
	baseURL   string            // media server base URL
	mediaPath string            // local media root, for album art probing
}

// Load reads a library export file. baseURL is the media server tracks
// are streamed from; mediaPath is the local media root used to check
// whether album art exists.
func Load(dbPath, baseURL, mediaPath string) (*Catalog, error) {
	data, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read catalog file")
	}

	var albums map[string]albumRecord
	if err := json.Unmarshal(data, &albums); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog file")
	}

	songIndex := make(map[string]string)
	for albumID, album := range albums {
		for _, t := range album.Tracks {
			if t.Key != "" {
				songIndex[t.Key] = albumID
			}
		}
	}

	zlog.Info().Msgf("catalog: loaded %d albums, %d songs", len(albums), len(songIndex))
	return &Catalog{
		albums:    albums,
		songIndex: songIndex,
		baseURL:   baseURL,
		mediaPath: mediaPath,
	}, nil
}

// AlbumTracks returns all tracks of an album in album order. Track
// entries are keyed by track number, sorted numerically so track 10
// follows track 9.
func (c *Catalog) AlbumTracks(albumID string) ([]track.Track, error) {
	album, ok := c.albums[albumID]
	if !ok {
		return nil, errors.Wrapf(playback.ErrAlbumNotFound, "album %s", albumID)
	}

	numbers := make([]string, 0, len(album.Tracks))
	for n := range album.Tracks {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool {
		a, errA := strconv.Atoi(numbers[i])
		b, errB := strconv.Atoi(numbers[j])
		if errA != nil || errB != nil {
			return numbers[i] < numbers[j]
		}
		return a < b
	})

	songs := make([]track.Track, 0, len(album.Tracks))
	for _, n := range numbers {
		songs = append(songs, c.buildTrack(album.Tracks[n], album))
	}
	return songs, nil
}

// TrackBySongKey looks a single track up by its catalog song key.
func (c *Catalog) TrackBySongKey(songKey string) (track.Track, error) {
	albumID, ok := c.songIndex[songKey]
	if !ok {
		return track.Track{}, errors.Newf("song %s not found in catalog", songKey)
	}
	album := c.albums[albumID]
	for _, t := range album.Tracks {
		if t.Key == songKey {
			return c.buildTrack(t, album), nil
		}
	}
	return track.Track{}, errors.Newf("song %s not found in album %s", songKey, albumID)
}

// AlbumCount returns the number of albums in the catalog.
func (c *Catalog) AlbumCount() int {
	return len(c.albums)
}

func (c *Catalog) buildTrack(t trackRecord, album albumRecord) track.Track {
	out := track.Track{
		Title:       orUnknown(t.Song),
		Artist:      orUnknown(t.Artist),
		Album:       orUnknown(album.Title),
		AlbumArtist: orUnknown(album.Artist),
		Length:      t.Length,
		AlbumKey:    album.Key,
		SongKey:     t.Key,
	}
	if out.Length == "" {
		out.Length = "0:00"
	}
	if len(t.Path) > 0 {
		out.URI = c.baseURL + escapePath(t.Path[0])
	}
	if album.Key != "" && c.hasAlbumArt(album.Key) {
		out.AlbumArtURI = fmt.Sprintf("%s/album-art/%s.png", c.baseURL, album.Key)
	}
	return out
}

func (c *Catalog) hasAlbumArt(albumKey string) bool {
	if c.mediaPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.mediaPath, "album-art", albumKey+".png"))
	return err == nil
}

// escapePath URL-escapes a library path segment by segment, keeping the
// slashes that separate directories.
func escapePath(p string) string {
	u := url.URL{Path: p}
	return u.EscapedPath()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
