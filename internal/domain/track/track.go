// Package track provides the Track domain entity.
package track

// Track represents a single playable item in the jukebox.
// All fields are plain values, so copying a Track copies everything;
// tracks are immutable once built by the catalog. The json tags are the
// wire keys the UI clients use, shared by snapshot reads, add-song
// requests, and the event stream.
type Track struct {
	Title       string `json:"title"`        // Track title
	Artist      string `json:"artist"`       // Track artist
	Album       string `json:"album"`        // Album title
	AlbumArtist string `json:"album_artist"` // Album artist (may differ from track artist)
	Length      string `json:"length"`       // Human-readable duration, e.g. "3:42"
	URI         string `json:"path"`         // Playable URI served by the media server
	AlbumArtURI string `json:"album_art"`    // Album art URL ("" when no art exists)
	AlbumKey    string `json:"akey"`         // Catalog cross-reference to the album
	SongKey     string `json:"skey"`         // Catalog cross-reference to the song
}

// IsZero reports whether the track carries no playable content.
func (t Track) IsZero() bool {
	return t.URI == "" && t.Title == ""
}

// DisplayName returns a short human-readable label for logging.
func (t Track) DisplayName() string {
	if t.Title == "" {
		return "Unknown"
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
