package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonobox/internal/domain/track"
)

// Playlists serves m3u/m3u8 playlist files from a directory.
type Playlists struct {
	dir     string
	baseURL string
}

// NewPlaylists creates a playlist loader rooted at dir.
func NewPlaylists(dir, baseURL string) *Playlists {
	return &Playlists{dir: dir, baseURL: baseURL}
}

// List returns the playlist file names found in the directory.
func (p *Playlists) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if strings.HasSuffix(lower, ".m3u") || strings.HasSuffix(lower, ".m3u8") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Tracks parses one playlist file into playable tracks. Entries are
// library-relative paths turned into media server URIs.
func (p *Playlists) Tracks(name string) ([]track.Track, error) {
	entries, err := ParseM3U(filepath.Join(p.dir, name))
	if err != nil {
		return nil, err
	}

	songs := make([]track.Track, 0, len(entries))
	for _, e := range entries {
		t := track.Track{
			Title:  e.Title,
			Length: e.Length,
			URI:    p.baseURL + escapePath(e.Path),
		}
		if t.Title == "" {
			t.Title = filepath.Base(e.Path)
		}
		songs = append(songs, t)
	}
	return songs, nil
}

// M3UEntry is one parsed playlist line pair.
type M3UEntry struct {
	Title  string
	Length string
	Path   string
}

// ParseM3U parses an m3u/m3u8 file. A missing #EXTM3U header yields an
// empty playlist, matching how the jukebox has always treated malformed
// playlist files.
func ParseM3U(path string) ([]M3UEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open playlist")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() || !strings.HasPrefix(scanner.Text(), "#EXTM3U") {
		zlog.Debug().Msgf("catalog: file %q lacks #EXTM3U as first line", path)
		return []M3UEntry{}, nil
	}

	var playlist []M3UEntry
	var pending M3UEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			info := strings.TrimPrefix(line, "#EXTINF:")
			length, title, found := strings.Cut(info, ",")
			if !found {
				title = info
				length = ""
			}
			pending = M3UEntry{Title: title, Length: length}
		case strings.HasPrefix(line, "#"):
			// Comment line.
		case line != "":
			pending.Path = line
			playlist = append(playlist, pending)
			pending = M3UEntry{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read playlist")
	}
	return playlist, nil
}
